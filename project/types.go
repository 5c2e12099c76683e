// Package project turns a metadata type reference into a concrete Go type
// expression plus the set of other entities that expression depends on,
// following the BOOL/handle/COM-pointer/array projection rules the rest of
// this generator relies on to stay consistent across raw and friendly
// overloads.
package project

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/win32gen/win32gen/codegen/naming"
	"github.com/win32gen/win32gen/metadata"
)

// Context discriminates where a type reference occurs, since several
// projection rules (BOOL, handles, arrays) depend on it.
type Context int

const (
	ContextField Context = iota
	ContextParameter
	ContextReturn
	ContextInterfaceMethodParameter
)

// Overload selects between the raw (ABI-faithful) and friendly (ergonomic)
// projections of a signature.
type Overload int

const (
	OverloadRaw Overload = iota
	OverloadFriendly
)

// ProjectedType is the result of projecting one metadata.TypeRef: the Go
// expression to emit plus every entity the emitted code depends on, so
// callers can schedule those entities for generation without re-deriving
// the dependency set from the type graph a second time.
type ProjectedType struct {
	GoExpr     string // e.g. "uint32", "*HWND", "[]uint16", "*IUnknownVtbl"
	Deps       []metadata.Entity
	Imports    []ImportSpec
	IsSlice    bool // friendly-overload size-indexed array became a slice
	ElemGoExpr string // meaningful when IsSlice or fixed-array
}

// ImportSpec mirrors goa.design/goa/v3/codegen.ImportSpec's shape (Name,
// Path) so callers can build codegen.ImportSpec values from it without
// project importing the codegen package itself.
type ImportSpec struct {
	Name string
	Path string
}

// Projector resolves named type references against a metadata.Index so
// projection can follow TypeRef.Named to the underlying TypeDef (to tell a
// handle typedef from an enum from a plain struct, etc).
type Projector struct {
	idx     *metadata.Index
	handles HandleResolver
	ns      string // configured root namespace; not consulted by the projection rules
}

// HandleResolver reports whether a named entity has an eligible safe-handle
// projection, and if so its generated type name. Implemented by package
// handlepolicy; declared here to avoid an import cycle.
type HandleResolver interface {
	SafeHandleTypeName(e metadata.Entity) (string, bool)
}

func New(idx *metadata.Index, handles HandleResolver, namespace string) *Projector {
	return &Projector{idx: idx, handles: handles, ns: namespace}
}

// Project projects t for the given context/overload.
func (p *Projector) Project(t metadata.TypeRef, ctx Context, ov Overload) (ProjectedType, error) {
	switch t.Kind {
	case metadata.RefPrimitive:
		return p.projectPrimitive(t, ctx, ov), nil
	case metadata.RefPointer:
		return p.projectPointer(t, ctx, ov)
	case metadata.RefArray:
		return p.projectArray(t, ctx, ov)
	case metadata.RefNamed:
		return p.projectNamed(t, ctx, ov)
	default:
		return ProjectedType{}, fmt.Errorf("project: unhandled TypeRef kind %v", t.Kind)
	}
}

func (p *Projector) projectPrimitive(t metadata.TypeRef, ctx Context, ov Overload) ProjectedType {
	switch t.Primitive {
	case metadata.PrimVoid:
		return ProjectedType{GoExpr: ""}
	case metadata.PrimBool:
		// Friendly parameter/return positions get the idiomatic bool;
		// fields and raw overloads keep the metadata's own bit width,
		// which callers pass through unchanged elsewhere (native bool is
		// rare in Win32 metadata; this is distinct from typedef BOOL,
		// handled under projectNamed).
		if (ctx == ContextParameter || ctx == ContextReturn) && ov == OverloadFriendly {
			return ProjectedType{GoExpr: "bool"}
		}
		return ProjectedType{GoExpr: "bool"}
	case metadata.PrimChar:
		return ProjectedType{GoExpr: "uint16"}
	case metadata.PrimI8:
		return ProjectedType{GoExpr: "int8"}
	case metadata.PrimU8:
		return ProjectedType{GoExpr: "uint8"}
	case metadata.PrimI16:
		return ProjectedType{GoExpr: "int16"}
	case metadata.PrimU16:
		return ProjectedType{GoExpr: "uint16"}
	case metadata.PrimI32:
		return ProjectedType{GoExpr: "int32"}
	case metadata.PrimU32:
		return ProjectedType{GoExpr: "uint32"}
	case metadata.PrimI64:
		return ProjectedType{GoExpr: "int64"}
	case metadata.PrimU64:
		return ProjectedType{GoExpr: "uint64"}
	case metadata.PrimF32:
		return ProjectedType{GoExpr: "float32"}
	case metadata.PrimF64:
		return ProjectedType{GoExpr: "float64"}
	default:
		return ProjectedType{GoExpr: "uintptr"}
	}
}

func (p *Projector) projectPointer(t metadata.TypeRef, ctx Context, ov Overload) (ProjectedType, error) {
	if t.Elem == nil {
		return ProjectedType{GoExpr: "unsafe.Pointer", Imports: []ImportSpec{{Path: "unsafe"}}}, nil
	}
	// PWSTR/LPWSTR (pointer-to-UTF16) out-params always project as raw
	// *uint16 in every context, both overloads: Go has no implicit
	// marshalled string-out convention the way a managed host does, so
	// there is no ergonomic gain to hide the pointer behind in the
	// friendly overload, and hiding it would break parity between raw
	// and friendly call sites.
	inner, err := p.Project(*t.Elem, ctx, ov)
	if err != nil {
		return ProjectedType{}, err
	}
	pt := ProjectedType{GoExpr: "*" + inner.GoExpr, Deps: inner.Deps, Imports: inner.Imports}
	return pt, nil
}

func (p *Projector) projectArray(t metadata.TypeRef, ctx Context, ov Overload) (ProjectedType, error) {
	if t.Elem == nil {
		return ProjectedType{}, fmt.Errorf("project: array TypeRef missing element type")
	}
	elem, err := p.Project(*t.Elem, ContextField, ov)
	if err != nil {
		return ProjectedType{}, err
	}
	// Fixed-length (SizeConst) vs size-param-indexed (SizeParamIndex)
	// disambiguation happens in the caller (emit), which knows the
	// owning FieldDef/Param's flags; Project only knows the element
	// shape. Callers combine GoExpr accordingly: "[N]"+ElemGoExpr for
	// SizeConst, "[]"+ElemGoExpr for a friendly-overload slice, or
	// "*"+ElemGoExpr plus an explicit length parameter for the raw
	// overload of a SizeParamIndex array.
	return ProjectedType{
		GoExpr:     elem.GoExpr,
		ElemGoExpr: elem.GoExpr,
		Deps:       elem.Deps,
		Imports:    elem.Imports,
		IsSlice:    ov == OverloadFriendly,
	}, nil
}

func (p *Projector) projectNamed(t metadata.TypeRef, ctx Context, ov Overload) (ProjectedType, error) {
	td, ok, err := p.resolveNamed(t.Named)
	if err != nil {
		return ProjectedType{}, err
	}
	if !ok {
		return ProjectedType{GoExpr: "uintptr", Deps: []metadata.Entity{t.Named}}, nil
	}

	switch td.Kind {
	case metadata.KindHandleTypedef:
		if (ctx == ContextParameter || ctx == ContextReturn) && ov == OverloadFriendly {
			if safeName, ok := p.handles.SafeHandleTypeName(td.Entity); ok {
				return ProjectedType{GoExpr: "*" + safeName, Deps: []metadata.Entity{td.Entity}}, nil
			}
		}
		return ProjectedType{GoExpr: td.Name, Deps: []metadata.Entity{td.Entity}}, nil
	case metadata.KindInterface:
		// COM interface pointer: projects to *<Name>Vtbl and schedules
		// the interface (and transitively its base chain, picked up
		// when the interface entity itself is emitted).
		return ProjectedType{GoExpr: "*" + td.Name + "Vtbl", Deps: append([]metadata.Entity{td.Entity}, td.BaseIfaces...)}, nil
	case metadata.KindDelegate:
		return ProjectedType{GoExpr: td.Name, Deps: []metadata.Entity{td.Entity}}, nil
	case metadata.KindEnum:
		return ProjectedType{GoExpr: td.Name, Deps: []metadata.Entity{td.Entity}}, nil
	default:
		if td.Name == "BOOL" {
			// The real Win32 BOOL typedef (a struct-kind TypeDef in
			// metadata, distinct from the rarely-used ECMA PrimBool):
			// friendly parameter/return positions get idiomatic bool,
			// everything else keeps the typedef for ABI fidelity.
			if (ctx == ContextParameter || ctx == ContextReturn) && ov == OverloadFriendly {
				return ProjectedType{GoExpr: "bool"}, nil
			}
			return ProjectedType{GoExpr: td.Name, Deps: []metadata.Entity{td.Entity}}, nil
		}
		if isLargeIntegerAlias(td.Namespace, td.Name) {
			if td.Name == "ULARGE_INTEGER" {
				return ProjectedType{GoExpr: "uint64"}, nil
			}
			return ProjectedType{GoExpr: "int64"}, nil
		}
		if isWinRTIncidental(td.Namespace) {
			alias := winRTImportAlias(td.Namespace)
			return ProjectedType{
				GoExpr:  alias + "." + td.Name,
				Deps:    []metadata.Entity{td.Entity},
				Imports: []ImportSpec{{Name: alias, Path: winRTImportPath(td.Namespace)}},
			}, nil
		}
		return ProjectedType{GoExpr: td.Name, Deps: []metadata.Entity{td.Entity}}, nil
	}
}

func (p *Projector) resolveNamed(e metadata.Entity) (metadata.TypeDef, bool, error) {
	// The Metadata Index keys types by namespace+name, not by raw token,
	// so resolving a TypeRef back to a TypeDef goes through
	// IterAllTopLevelTypes once per distinct lookup miss; callers hit
	// this rarely enough (one per distinct named type reference in a
	// signature or field) that the linear scan is not a bottleneck for
	// a single generation session.
	for td, err := range p.idx.IterAllTopLevelTypes() {
		if err != nil {
			return metadata.TypeDef{}, false, err
		}
		if td.Entity == e {
			return td, true, nil
		}
	}
	return metadata.TypeDef{}, false, nil
}

func isLargeIntegerAlias(namespace, name string) bool {
	return name == "ULARGE_INTEGER" || name == "LARGE_INTEGER"
}

func isWinRTIncidental(namespace string) bool {
	return len(namespace) >= 8 && namespace[:8] == "Windows."
}

func winRTImportAlias(namespace string) string {
	return "winrt_" + strings.Join(naming.NamespaceSegments(namespace), "_")
}

func winRTImportPath(namespace string) string {
	return "github.com/win32gen/win32gen/gen/" + strings.Join(naming.NamespaceSegments(namespace), "/")
}

// GUIDExpr renders a 16-byte GUID value as a windows.GUID composite
// literal, used by both constant emission and COM IID emission.
func GUIDExpr(g [16]byte) string {
	u, err := uuid.FromBytes(reorderGUIDToUUID(g))
	if err != nil {
		return fmt.Sprintf("windows.GUID{/* invalid GUID bytes: %v */}", err)
	}
	d1 := uint32(g[0]) | uint32(g[1])<<8 | uint32(g[2])<<16 | uint32(g[3])<<24
	d2 := uint16(g[4]) | uint16(g[5])<<8
	d3 := uint16(g[6]) | uint16(g[7])<<8
	return fmt.Sprintf(
		"windows.GUID{Data1: 0x%08X, Data2: 0x%04X, Data3: 0x%04X, Data4: [8]byte{0x%02X, 0x%02X, 0x%02X, 0x%02X, 0x%02X, 0x%02X, 0x%02X, 0x%02X}} /* %s */",
		d1, d2, d3, g[8], g[9], g[10], g[11], g[12], g[13], g[14], g[15], u.String(),
	)
}

// reorderGUIDToUUID converts a little-endian Data1/Data2/Data3 GUID byte
// sequence into the big-endian byte order uuid.FromBytes expects, purely
// so GUIDExpr can render a canonical string for the trailing comment.
func reorderGUIDToUUID(g [16]byte) []byte {
	out := make([]byte, 16)
	out[0], out[1], out[2], out[3] = g[3], g[2], g[1], g[0]
	out[4], out[5] = g[5], g[4]
	out[6], out[7] = g[7], g[6]
	copy(out[8:], g[8:])
	return out
}
