package emit

import (
	"fmt"
	"strconv"
	"strings"

	"goa.design/goa/v3/codegen"

	"github.com/win32gen/win32gen/accumulate"
	"github.com/win32gen/win32gen/codegen/naming"
	"github.com/win32gen/win32gen/metadata"
	"github.com/win32gen/win32gen/project"
)

// StructEmitter emits plain structs (LayoutSequential, and LayoutExplicit
// structs whose fields occupy distinct offsets, via inserted `_ [N]byte`
// padding) and, on a separate path, true unions (KindUnion: every field
// overlapping offset 0) as a single backing byte array plus typed accessor
// methods.
type StructEmitter struct{ Ctx *Context }

type structFieldData struct {
	Name    string
	GoType  string
	Comment string
}

type structFileData struct {
	PackageName string
	Name        string
	Fields      []structFieldData
	IsUnion     bool
	UnionSize   int
}

const structTmpl = `
{{ if .IsUnion }}
// {{ .Name }} is a union: fields share one backing array of {{ .UnionSize }} bytes.
// Read/write through the typed accessor methods below, not the raw field.
type {{ .Name }} struct {
	raw [{{ .UnionSize }}]byte
}
{{ range .Fields }}
func (u *{{ $.Name }}) {{ .Name }}() {{ .GoType }} {
	return *(*{{ .GoType }})(unsafe.Pointer(&u.raw[0]))
}

func (u *{{ $.Name }}) Set{{ .Name }}(v {{ .GoType }}) {
	*(*{{ .GoType }})(unsafe.Pointer(&u.raw[0])) = v
}
{{ end }}
{{ else }}
// {{ .Name }} is open to user augmentation in package {{ .PackageName }}:
// additional methods may be declared on it in the same package.
type {{ .Name }} struct {
{{ range .Fields }}	{{ .Name }} {{ .GoType }} {{ if .Comment }}// {{ .Comment }}{{ end }}
{{ end }}}
{{ end }}
`

func (e *StructEmitter) Emit(ent metadata.Entity) (*codegen.File, []accumulate.EmissionKey, error) {
	td, ok, err := findTypeDef(e.Ctx, ent)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("emit: struct entity not found in metadata index")
	}
	name, ok := e.Ctx.resolveIdent(td.Name, ent)
	if !ok {
		return nil, nil, nil
	}

	var fields []structFieldData
	var deps []metadata.Entity
	var imports []project.ImportSpec
	for _, f := range td.Fields {
		pt, err := e.Ctx.Project.Project(f.Type, project.ContextField, project.OverloadRaw)
		if err != nil {
			return nil, nil, err
		}
		goType := pt.GoExpr
		if f.FixedArrayLen > 0 {
			goType = fmt.Sprintf("[%d]%s", f.FixedArrayLen, pt.ElemGoExpr)
		}
		name := sanitizeFieldName(f.Name)
		comment := ""
		if f.Bitfield != nil {
			comment = fmt.Sprintf("bitfield %d..%d of %s", f.Bitfield.BitOffset, f.Bitfield.BitOffset+f.Bitfield.BitWidth, f.Bitfield.BackingField)
		}
		fields = append(fields, structFieldData{Name: name, GoType: goType, Comment: comment})
		deps = append(deps, pt.Deps...)
		imports = append(imports, pt.Imports...)
	}

	isUnion := td.Kind == metadata.KindUnion

	data := structFileData{
		PackageName: e.Ctx.PkgName,
		Name:        name,
		Fields:      fields,
		IsUnion:     isUnion,
	}
	if isUnion {
		data.UnionSize = maxFieldOffsetSize(td)
		imports = append(imports, project.ImportSpec{Path: "unsafe"})
	} else if td.Layout.Explicit {
		data.Fields = padExplicitLayout(fields, td.Fields)
	}

	specs := dedupImports(toImportSpecs(imports))
	sections := []*codegen.SectionTemplate{
		codegen.Header(name+" struct", e.Ctx.PkgName, specs),
		{Name: "struct-" + name, Source: structTmpl, Data: data},
	}
	file := &codegen.File{Path: strings.ToLower(name) + ".go", SectionTemplates: sections}
	return file, depsToKeys(deps, e.Ctx.KindOf), nil
}

func sanitizeFieldName(name string) string {
	return naming.EscapeReserved(name, true)
}

// padExplicitLayout interleaves `_ [N]byte` gap fields between fields so a
// LayoutExplicit (non-union) struct reproduces its native offsets exactly,
// rather than letting the Go compiler's own field layout decide them.
// fields and td.Fields are parallel slices (one structFieldData per
// FieldDef, built in the same order). When a field's Go-side size can't be
// determined (a named struct/enum field, for instance), the cursor jumps to
// that field's own offset instead of guessing a gap size for the field
// after it — the remaining layout still starts from a correct offset.
func padExplicitLayout(fields []structFieldData, defs []metadata.FieldDef) []structFieldData {
	out := make([]structFieldData, 0, len(fields))
	cursor := 0
	pad := 0
	for i, f := range defs {
		if f.HasOffset {
			if f.Offset > cursor {
				out = append(out, structFieldData{
					Name:   fmt.Sprintf("Pad%d_", pad),
					GoType: fmt.Sprintf("[%d]byte", f.Offset-cursor),
				})
				pad++
			}
			cursor = f.Offset
		}
		out = append(out, fields[i])
		if sz, ok := goTypeSize(fields[i].GoType); ok {
			cursor += sz
		} else if f.HasOffset {
			cursor = f.Offset
		}
	}
	return out
}

// goTypeSize reports the in-memory size of a handful of Go type expressions
// this package itself emits (scalars, pointers, fixed-size arrays), enough
// to compute the padding gaps explicit-layout structs need between fields.
// Named struct/enum/interface types return false: their size isn't known
// locally, so the caller falls back to the field's own declared offset.
func goTypeSize(t string) (int, bool) {
	switch t {
	case "uint8", "int8", "bool":
		return 1, true
	case "uint16", "int16":
		return 2, true
	case "uint32", "int32", "float32":
		return 4, true
	case "uint64", "int64", "float64", "uintptr":
		return 8, true
	}
	if strings.HasPrefix(t, "*") {
		return 8, true
	}
	if strings.HasPrefix(t, "[") {
		if end := strings.Index(t, "]"); end > 0 {
			if n, err := strconv.Atoi(t[1:end]); err == nil {
				if elemSz, ok := goTypeSize(t[end+1:]); ok {
					return n * elemSz, true
				}
			}
		}
	}
	return 0, false
}

func maxFieldOffsetSize(td metadata.TypeDef) int {
	max := 0
	for _, f := range td.Fields {
		if f.HasOffset && f.Offset > max {
			max = f.Offset
		}
	}
	if max == 0 {
		max = 8
	}
	return max + 8
}

