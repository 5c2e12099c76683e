package emit

import (
	"fmt"
	"strings"

	"goa.design/goa/v3/codegen"

	"github.com/win32gen/win32gen/accumulate"
	"github.com/win32gen/win32gen/metadata"
	"github.com/win32gen/win32gen/project"
)

// DelegateEmitter emits a named func(...) type for a delegate TypeDef,
// projected from its Invoke method's signature.
type DelegateEmitter struct{ Ctx *Context }

type delegateFileData struct {
	PackageName string
	Name        string
	Params      string
	Return      string
}

const delegateTmpl = `
type {{ .Name }} func({{ .Params }}) {{ .Return }}
`

func (e *DelegateEmitter) Emit(ent metadata.Entity) (*codegen.File, []accumulate.EmissionKey, error) {
	td, ok, err := findTypeDef(e.Ctx, ent)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("emit: delegate entity not found in metadata index")
	}
	name, ok := e.Ctx.resolveIdent(td.Name, ent)
	if !ok {
		return nil, nil, nil
	}
	var invoke *metadata.MethodDef
	for i := range td.Methods {
		if td.Methods[i].Name == "Invoke" {
			invoke = &td.Methods[i]
			break
		}
	}
	if invoke == nil {
		return nil, nil, fmt.Errorf("emit: delegate %s has no Invoke method", td.Name)
	}

	var deps []metadata.Entity
	var imports []project.ImportSpec
	var paramParts []string
	for _, p := range invoke.Params {
		pt, err := e.Ctx.Project.Project(p.Type, project.ContextParameter, project.OverloadRaw)
		if err != nil {
			return nil, nil, err
		}
		paramParts = append(paramParts, pt.GoExpr)
		deps = append(deps, pt.Deps...)
		imports = append(imports, pt.Imports...)
	}
	retExpr, err := e.Ctx.Project.Project(invoke.Return.Type, project.ContextReturn, project.OverloadRaw)
	if err != nil {
		return nil, nil, err
	}
	deps = append(deps, retExpr.Deps...)
	imports = append(imports, retExpr.Imports...)

	data := delegateFileData{
		PackageName: e.Ctx.PkgName,
		Name:        name,
		Params:      strings.Join(paramParts, ", "),
		Return:      retExpr.GoExpr,
	}
	specs := dedupImports(toImportSpecs(imports))
	sections := []*codegen.SectionTemplate{
		codegen.Header(name+" delegate", e.Ctx.PkgName, specs),
		{Name: "delegate-" + name, Source: delegateTmpl, Data: data},
	}
	file := &codegen.File{Path: strings.ToLower(name) + ".go", SectionTemplates: sections}
	return file, depsToKeys(deps, e.Ctx.KindOf), nil
}
