package emit

import (
	"fmt"
	"strings"

	"goa.design/goa/v3/codegen"

	"github.com/win32gen/win32gen/accumulate"
	"github.com/win32gen/win32gen/metadata"
	"github.com/win32gen/win32gen/project"
)

// ConstantEmitter emits one named literal: a Go const for ordinary
// integer/float values, and a package-level var for values Go has no constant
// expression for (IEEE float specials, GUIDs, handle-typed sentinels,
// UTF-16-backed strings).
type ConstantEmitter struct{ Ctx *Context }

type constantFileData struct {
	PackageName string
	Name        string
	IsVar       bool
	Expr        string
	GoType      string
}

const constantTmpl = `
{{ if .IsVar }}
var {{ .Name }} {{ if .GoType }}{{ .GoType }}{{ end }} = {{ .Expr }}
{{ else }}
const {{ .Name }} = {{ .Expr }}
{{ end }}
`

func (e *ConstantEmitter) Emit(ent metadata.Entity) (*codegen.File, []accumulate.EmissionKey, error) {
	c, ok, err := e.findConstant(ent)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("emit: constant entity not found in metadata index")
	}
	goName, ok := e.Ctx.resolveIdent(codegen.Goify(c.Name, true), ent)
	if !ok {
		return nil, nil, nil
	}

	var data constantFileData
	data.PackageName = e.Ctx.PkgName
	data.Name = goName
	var imports []project.ImportSpec
	var deps []accumulate.EmissionKey

	switch c.Kind {
	case metadata.ConstInt:
		data.Expr = fmt.Sprintf("%d", c.IntValue)
	case metadata.ConstFloat:
		data.Expr = fmt.Sprintf("%v", c.FloatValue)
	case metadata.ConstFloatNaN:
		data.IsVar = true
		data.GoType = "float64"
		data.Expr = "math.NaN()"
		imports = append(imports, project.ImportSpec{Path: "math"})
	case metadata.ConstFloatPosInf:
		data.IsVar = true
		data.GoType = "float64"
		data.Expr = "math.Inf(1)"
		imports = append(imports, project.ImportSpec{Path: "math"})
	case metadata.ConstFloatNegInf:
		data.IsVar = true
		data.GoType = "float64"
		data.Expr = "math.Inf(-1)"
		imports = append(imports, project.ImportSpec{Path: "math"})
	case metadata.ConstString:
		data.IsVar = true
		data.GoType = "*uint16"
		data.Expr = fmt.Sprintf("sync.OnceValue(func() *uint16 {\n\tu := utf16.Encode([]rune(%q + \"\\x00\"))\n\treturn &u[0]\n})()", c.StringValue)
		imports = append(imports, project.ImportSpec{Path: "sync"}, project.ImportSpec{Path: "unicode/utf16"})
	case metadata.ConstGUID:
		data.IsVar = true
		data.GoType = "windows.GUID"
		data.Expr = project.GUIDExpr(c.GUIDValue)
		imports = append(imports, project.ImportSpec{Name: "windows", Path: "golang.org/x/sys/windows"})
	case metadata.ConstHandleSentinel:
		data.IsVar = true
		handleType := "uintptr"
		if c.HandleTypeRef.Kind == metadata.RefNamed {
			if td, ok, _ := findTypeDef(e.Ctx, c.HandleTypeRef.Named); ok {
				handleType = td.Name
				deps = append(deps, accumulate.EmissionKey{Entity: td.Entity, Kind: accumulate.KindHandle})
			}
		}
		data.GoType = handleType
		data.Expr = fmt.Sprintf("%s(%d)", handleType, c.IntValue)
	default:
		data.Expr = fmt.Sprintf("%d", c.IntValue)
	}

	specs := dedupImports(toImportSpecs(imports))
	sections := []*codegen.SectionTemplate{
		codegen.Header(c.Name+" constant", e.Ctx.PkgName, specs),
		{Name: "const-" + c.Name, Source: constantTmpl, Data: data},
	}
	file := &codegen.File{Path: "constants_" + strings.ToLower(data.Name) + ".go", SectionTemplates: sections}
	return file, deps, nil
}

// findConstant resolves ent to its ConstantRef by scanning every top-level
// type's fields for a matching entity; Win32 metadata represents most
// constants as literal-valued fields on synthetic "Apis" container types.
func (e *ConstantEmitter) findConstant(ent metadata.Entity) (metadata.ConstantRef, bool, error) {
	for td, err := range e.Ctx.Idx.IterAllTopLevelTypes() {
		if err != nil {
			return metadata.ConstantRef{}, false, err
		}
		for _, f := range td.Fields {
			if f.Entity == ent && f.ConstantValue != nil {
				c := *f.ConstantValue
				c.Entity = f.Entity
				c.Name = f.Name
				return c, true, nil
			}
		}
	}
	return metadata.ConstantRef{}, false, nil
}
