// Package win32gen is the generation facade: given an open metadata index,
// a host context, and a set of options, it resolves named lookup requests
// into a deduplicated set of generated Go compilation units.
package win32gen

import (
	"context"
	"errors"

	"goa.design/goa/v3/codegen"

	"github.com/win32gen/win32gen/accumulate"
	"github.com/win32gen/win32gen/codegen/ir"
	"github.com/win32gen/win32gen/collision"
	"github.com/win32gen/win32gen/emit"
	"github.com/win32gen/win32gen/handlepolicy"
	"github.com/win32gen/win32gen/internal/config"
	"github.com/win32gen/win32gen/internal/xlog"
	"github.com/win32gen/win32gen/metadata"
	"github.com/win32gen/win32gen/project"
)

// Sentinel errors forming this module's error taxonomy. DownstreamDiagnostic
// is intentionally not part of this set — surfacing a host compiler's
// diagnostics about generated code is the host's concern, not this
// generator's.
var (
	ErrNotSupported = errors.New("win32gen: operation not supported")
	ErrNotFound     = errors.New("win32gen: entity not found")
)

// HostContext carries the facade's collaborator contract: the host's
// already-declared symbol set (for collision resolution), its Go language
// version (gating generics-dependent emission choices), and whether it
// wants documentation comments carried into generated code.
type HostContext struct {
	HostSymbols collision.HostSymbols
	GoVersion   string
	DocComments bool
}

// Generator is a single generation session bound to one open metadata
// index. It is single-threaded, cooperatively cancellable via
// context.Context, and carries no shared mutable state with any other
// Generator instance.
type Generator struct {
	idx    *metadata.Index
	store  *accumulate.Store
	opts   config.Options
	host   HostContext
	logger xlog.Logger
}

// New constructs a Generator over an already-open metadata index. Options
// are validated and defaulted once, here.
func New(idx *metadata.Index, opts config.Options, host HostContext) (*Generator, error) {
	opts, err := config.Normalize(opts)
	if err != nil {
		return nil, err
	}
	handles := handlepolicy.New(idx)
	proj := project.New(idx, handles, opts.Namespace)
	resolver := collision.New(host.HostSymbols)
	ctx := &emit.Context{
		Idx:        idx,
		Project:    proj,
		Handles:    handles,
		Collisions: resolver,
		ClassName:  opts.ClassName,
		Namespace:  opts.Namespace,
		PkgName:    "win32",
	}
	emitters := map[accumulate.EntityKind]accumulate.Emitter{
		accumulate.KindMethod:    &emit.MethodEmitter{Ctx: ctx},
		accumulate.KindStruct:    &emit.StructEmitter{Ctx: ctx},
		accumulate.KindUnion:     &emit.StructEmitter{Ctx: ctx},
		accumulate.KindEnum:      &emit.EnumEmitter{Ctx: ctx},
		accumulate.KindInterface: &emit.InterfaceEmitter{Ctx: ctx},
		accumulate.KindDelegate:  &emit.DelegateEmitter{Ctx: ctx},
		accumulate.KindConstant:  &emit.ConstantEmitter{Ctx: ctx},
		accumulate.KindHandle:    &emit.HandleEmitter{Ctx: ctx},
	}
	return &Generator{
		idx:    idx,
		store:  accumulate.NewStore(emitters),
		opts:   opts,
		host:   host,
		logger: xlog.NopLogger{},
	}, nil
}

// SetLogger overrides the Logger used for this session's structured
// logging; the default discards every call.
func (g *Generator) SetLogger(l xlog.Logger) { g.logger = l }

// GenerateByName resolves one method or type by exact name. A direct
// request naming GetLastError is rejected with ErrNotSupported, since
// surfacing the raw Win32 last-error mechanism is left to the host's own
// runtime conventions, not this generator's emitted bindings. Only an
// error is returned: a name that matches nothing returns nil, the same as
// a name that produced output.
func (g *Generator) GenerateByName(ctx context.Context, name string) (err error) {
	ctx, span := xlog.StartSpan(ctx, "win32gen.GenerateByName")
	defer func() { xlog.EndSpan(span, err) }()
	g.logger.Info(ctx, "generate by name", "name", name)

	if name == "GetLastError" {
		return ErrNotSupported
	}
	if m, ok, err := g.idx.FindMethodAnywhere(name); err != nil {
		g.logger.Error(ctx, "resolving method by name failed", "name", name, "err", err)
		return err
	} else if ok {
		g.store.Add(accumulate.EmissionKey{Entity: m.Entity, Kind: accumulate.KindMethod})
		return g.store.Drain(cancelCheck(ctx))
	}
	for td, err := range g.idx.IterAllTopLevelTypes() {
		if err != nil {
			g.logger.Error(ctx, "resolving type by name failed", "name", name, "err", err)
			return err
		}
		if td.Name == name {
			g.store.Add(accumulate.EmissionKey{Entity: td.Entity, Kind: kindForTypeKind(td.Kind)})
			return g.store.Drain(cancelCheck(ctx))
		}
	}
	g.logger.Warn(ctx, "no method or type matched name", "name", name)
	return nil // soft miss: nothing scheduled, nil error
}

// GenerateByModulePattern schedules every method in modules matching a
// "module.glob" pattern. Requests for GetLastError within the pattern are
// silently skipped rather than rejected, since a bulk request is not
// naming GetLastError directly.
func (g *Generator) GenerateByModulePattern(ctx context.Context, pattern string) (err error) {
	ctx, span := xlog.StartSpan(ctx, "win32gen.GenerateByModulePattern")
	defer func() { xlog.EndSpan(span, err) }()
	g.logger.Info(ctx, "generate by module pattern", "pattern", pattern)

	for m, err := range g.idx.IterMethodsByModulePattern(pattern) {
		if err != nil {
			return err
		}
		if m.Name == "GetLastError" {
			continue
		}
		g.store.Add(accumulate.EmissionKey{Entity: m.Entity, Kind: accumulate.KindMethod})
		if err := checkCtx(ctx); err != nil {
			return err
		}
	}
	return g.store.Drain(cancelCheck(ctx))
}

// GenerateAll schedules every top-level type and every method reachable
// through module-pattern enumeration of "*.*".
func (g *Generator) GenerateAll(ctx context.Context) (err error) {
	ctx, span := xlog.StartSpan(ctx, "win32gen.GenerateAll")
	defer func() { xlog.EndSpan(span, err) }()
	g.logger.Info(ctx, "generate all")

	for td, err := range g.idx.IterAllTopLevelTypes() {
		if err != nil {
			return err
		}
		g.store.Add(accumulate.EmissionKey{Entity: td.Entity, Kind: kindForTypeKind(td.Kind)})
		if err := checkCtx(ctx); err != nil {
			return err
		}
	}
	return g.GenerateByModulePattern(ctx, "*.*")
}

// Files returns the generated compilation units accumulated so far,
// grouped per the EmitSingleFile option.
func (g *Generator) Files() []*codegen.File {
	path := g.opts.Namespace + ".go"
	return g.store.Files(g.opts.EmitSingleFile, path)
}

// Close releases the mmap'd metadata file backing this session. Once
// closed, a Generator must not be used again.
func (g *Generator) Close() error {
	return g.idx.Close()
}

// Describe snapshots this session's accumulated schedule as an
// ir.Session: every emitted unit, its kind, the file it contributed to,
// and the further units its projection pulled in. Intended for tooling
// that wants to inspect or diff a generation session's shape without
// parsing the emitted Go source itself.
func (g *Generator) Describe() ir.Session {
	keys := g.store.OrderedKeys()
	names := make(map[accumulate.EmissionKey]string, len(keys))
	for _, k := range keys {
		names[k] = g.entityName(k.Entity)
	}
	units := make([]ir.Unit, 0, len(keys))
	for _, k := range keys {
		deps := g.store.DepsOf(k)
		depNames := make([]string, 0, len(deps))
		for _, d := range deps {
			if n, ok := names[d]; ok {
				depNames = append(depNames, n)
			}
		}
		units = append(units, ir.Unit{
			Name:      names[k],
			Kind:      kindName(k.Kind),
			Path:      g.store.PathOf(k),
			DependsOn: depNames,
		})
	}
	return ir.Session{Namespace: g.opts.Namespace, ClassName: g.opts.ClassName, Units: units}
}

func (g *Generator) entityName(e metadata.Entity) string {
	for td, err := range g.idx.IterAllTopLevelTypes() {
		if err == nil && td.Entity == e {
			return td.Name
		}
	}
	for m, err := range g.idx.IterMethodsByModulePattern("*.*") {
		if err == nil && m.Entity == e {
			return m.Name
		}
	}
	return ""
}

func kindName(k accumulate.EntityKind) string {
	switch k {
	case accumulate.KindMethod:
		return "method"
	case accumulate.KindStruct:
		return "struct"
	case accumulate.KindUnion:
		return "union"
	case accumulate.KindEnum:
		return "enum"
	case accumulate.KindInterface:
		return "interface"
	case accumulate.KindDelegate:
		return "delegate"
	case accumulate.KindConstant:
		return "constant"
	case accumulate.KindHandle:
		return "handle"
	default:
		return "unknown"
	}
}

func kindForTypeKind(k metadata.TypeKind) accumulate.EntityKind {
	switch k {
	case metadata.KindEnum:
		return accumulate.KindEnum
	case metadata.KindDelegate:
		return accumulate.KindDelegate
	case metadata.KindInterface:
		return accumulate.KindInterface
	case metadata.KindHandleTypedef:
		return accumulate.KindHandle
	default:
		return accumulate.KindStruct
	}
}

func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func cancelCheck(ctx context.Context) func() error {
	return func() error { return checkCtx(ctx) }
}
