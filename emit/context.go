// Package emit renders one codegen.File per metadata entity, one emitter
// per EntityKind, using goa.design/goa/v3/codegen's File/SectionTemplate/
// ImportSpec toolkit for fragment assembly, import finalization, and
// gofmt-clean output — the same toolkit the rest of the Goa-derived
// generator ecosystem uses for templated source assembly, reused here as a
// generic file/section accumulator rather than reimplemented.
package emit

import (
	"goa.design/goa/v3/codegen"

	"github.com/win32gen/win32gen/accumulate"
	"github.com/win32gen/win32gen/codegen/shared"
	"github.com/win32gen/win32gen/collision"
	"github.com/win32gen/win32gen/handlepolicy"
	"github.com/win32gen/win32gen/metadata"
	"github.com/win32gen/win32gen/project"
)

// Context is shared, read-only state every emitter consults: the metadata
// index for resolving further entities, the projector for type expressions,
// the handle policy for safe-handle substitution, the collision resolver
// for identifier qualification/suppression, and the session's configured
// ClassName/Namespace.
type Context struct {
	Idx        *metadata.Index
	Project    *project.Projector
	Handles    *handlepolicy.Policy
	Collisions *collision.Resolver
	ClassName  string
	Namespace  string
	PkgName    string // Go package name emitted code declares itself under
}

// resolveIdent asks the collision resolver what name e should declare
// under in the emitted package. When the resolver reports Suppress, ok is
// false and the caller must skip emission entirely (a prior, distinct
// emission already owns that identifier). When it reports Qualify, the
// returned name is disambiguated with a "Win32" suffix so it no longer
// collides with a host-declared symbol of the same name.
func (c *Context) resolveIdent(name string, e metadata.Entity) (string, bool) {
	switch c.Collisions.Resolve(c.PkgName, name, e) {
	case collision.Suppress:
		return "", false
	case collision.Qualify:
		return name + "Win32", true
	default:
		return name, true
	}
}

func toImportSpecs(specs []project.ImportSpec) []*codegen.ImportSpec {
	out := make([]*codegen.ImportSpec, 0, len(specs))
	for _, s := range specs {
		out = append(out, &codegen.ImportSpec{Name: s.Name, Path: s.Path})
	}
	return out
}

func dedupImports(specs []*codegen.ImportSpec) []*codegen.ImportSpec {
	return shared.MergeImportSpecs(specs)
}

func depsToKeys(deps []metadata.Entity, kindOf func(metadata.Entity) accumulate.EntityKind) []accumulate.EmissionKey {
	out := make([]accumulate.EmissionKey, 0, len(deps))
	for _, d := range deps {
		out = append(out, accumulate.EmissionKey{Entity: d, Kind: kindOf(d)})
	}
	return out
}
