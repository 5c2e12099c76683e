// Package handlepolicy decides which handle typedefs are eligible for a
// generated safe-handle wrapper and classifies the release function's
// return type so the wrapper's Close method knows how to interpret it.
package handlepolicy

import (
	"strings"

	"github.com/win32gen/win32gen/metadata"
)

// ReleaseClassification discriminates how a release function reports
// failure, so the generated Close method knows what "it didn't work"
// looks like for this particular handle kind.
type ReleaseClassification int

const (
	ReturnBOOL ReleaseClassification = iota
	ReturnLSTATUS
	ReturnNTSTATUS
	ReturnHRESULT
	ReturnVoid
	ReturnOther
)

// SafeHandleDescriptor is everything emit needs to generate one safe-handle
// wrapper type and its Close method.
type SafeHandleDescriptor struct {
	HandleEntity   metadata.Entity
	HandleTypeName string
	ReleaseFunc    metadata.MethodDef
	Classification ReleaseClassification
	WrapperName    string // e.g. "HKEY" typedef -> "HKEYHandle"
}

// Policy resolves safe-handle eligibility for handle typedefs found in one
// metadata.Index, caching the result per entity since the same handle
// typedef is frequently referenced from many signatures.
type Policy struct {
	idx       *metadata.Index
	resolved  map[metadata.Entity]*SafeHandleDescriptor
	excluded  map[string]bool // namespace-handle type names, excluded regardless of RAIIFree
}

func New(idx *metadata.Index) *Policy {
	return &Policy{
		idx:      idx,
		resolved: make(map[metadata.Entity]*SafeHandleDescriptor),
		excluded: make(map[string]bool),
	}
}

// Resolve returns the SafeHandleDescriptor for a handle typedef entity, if
// metadata marks it eligible: it must carry a RAIIFree attribute naming a
// resolvable release function, and must not carry the namespace-handle
// exclusion attribute.
func (p *Policy) Resolve(handle metadata.TypeDef) (*SafeHandleDescriptor, bool, error) {
	if d, ok := p.resolved[handle.Entity]; ok {
		return d, d != nil, nil
	}
	if _, excl, err := p.idx.GetCustomAttribute(handle.Entity, metadata.AttrNamespaceHandle); err != nil {
		return nil, false, err
	} else if excl {
		p.resolved[handle.Entity] = nil
		return nil, false, nil
	}
	raii, ok, err := p.idx.GetCustomAttribute(handle.Entity, metadata.AttrRAIIFree)
	if err != nil {
		return nil, false, err
	}
	if !ok || len(raii.Args) == 0 {
		p.resolved[handle.Entity] = nil
		return nil, false, nil
	}
	releaseName, _ := raii.Args[0].(string)
	if releaseName == "" {
		p.resolved[handle.Entity] = nil
		return nil, false, nil
	}
	releaseFunc, ok, err := p.idx.FindMethodAnywhere(releaseName)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		p.resolved[handle.Entity] = nil
		return nil, false, nil
	}
	desc := &SafeHandleDescriptor{
		HandleEntity:   handle.Entity,
		HandleTypeName: handle.Name,
		ReleaseFunc:    releaseFunc,
		Classification: classifyRelease(releaseFunc),
		WrapperName:    handle.Name + "Handle",
	}
	p.resolved[handle.Entity] = desc
	return desc, true, nil
}

// SafeHandleTypeName implements project.HandleResolver.
func (p *Policy) SafeHandleTypeName(e metadata.Entity) (string, bool) {
	d, ok := p.resolved[e]
	if !ok || d == nil {
		return "", false
	}
	return d.WrapperName, true
}

// classifyRelease inspects a release function's return type shape via its
// declared name, since Win32 metadata does not separately tag "this is an
// NTSTATUS/LSTATUS/HRESULT"-shaped integer return: these conventions are
// identified by the well-known type names Win32 metadata signatures use for
// each (BOOL, LSTATUS, NTSTATUS, HRESULT), falling back to void/other.
func classifyRelease(m metadata.MethodDef) ReleaseClassification {
	if m.Return.Type.Kind == metadata.RefPrimitive && m.Return.Type.Primitive == metadata.PrimVoid {
		return ReturnVoid
	}
	if m.Return.Type.Kind != metadata.RefNamed {
		return ReturnOther
	}
	name := namedReturnTypeHint(m)
	switch {
	case name == "BOOL":
		return ReturnBOOL
	case name == "LSTATUS":
		return ReturnLSTATUS
	case name == "NTSTATUS":
		return ReturnNTSTATUS
	case name == "HRESULT":
		return ReturnHRESULT
	default:
		return ReturnOther
	}
}

// namedReturnTypeHint recovers the simple name a RefNamed return type
// points at, from MethodDef.ReturnTypeNameHint (filled in at decode time).
// The decoder does not carry a resolved name on TypeRef (only the raw
// Entity), so this relies on a release function's return name matching one of the
// fixed Win32 status-code conventions this policy classifies by name; full
// TypeDef resolution for an arbitrary return type is project's job, not
// handlepolicy's, since only these four names are ever load-bearing here.
func namedReturnTypeHint(m metadata.MethodDef) string {
	return strings.TrimSpace(m.ReturnTypeNameHint)
}
