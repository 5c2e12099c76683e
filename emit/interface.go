package emit

import (
	"fmt"
	"strings"

	"goa.design/goa/v3/codegen"

	"github.com/win32gen/win32gen/accumulate"
	"github.com/win32gen/win32gen/metadata"
	"github.com/win32gen/win32gen/project"
)

// InterfaceEmitter emits a COM interface as a vtable-pointer struct plus a
// wrapper embedding it, with one raw method per vtable slot (including
// every base interface's slots, concatenated ahead of the interface's own
// in declaration order) and a friendly overload where a parameter/return
// qualifies.
type InterfaceEmitter struct{ Ctx *Context }

type vtableSlotData struct {
	FieldName  string
	MethodName string
	ParamDecl  string
	ArgsCall   string
	Return     string

	HasFriendly        bool
	FriendlyMethodName string
	FriendlyParamDecl  string
	FriendlyReturn     string
	FriendlyBody       string
}

type interfaceFileData struct {
	PackageName string
	Name        string
	Slots       []vtableSlotData
	GUIDExpr    string
	HasGUID     bool
}

const interfaceTmpl = `
type {{ .Name }}Vtbl struct {
	QueryInterface uintptr
	AddRef         uintptr
	Release        uintptr
{{ range .Slots }}	{{ .FieldName }} uintptr
{{ end }}}

type {{ .Name }} struct {
	Vtbl *{{ .Name }}Vtbl
}

{{ if .HasGUID }}
var IID_{{ .Name }} = {{ .GUIDExpr }}
{{ end }}

{{ range .Slots }}
func (o *{{ $.Name }}) {{ .MethodName }}({{ .ParamDecl }}) {{ .Return }} {
	ret, _, _ := syscall.SyscallN(o.Vtbl.{{ .FieldName }}, {{ .ArgsCall }})
	return {{ .Return }}(ret)
}

{{ if .HasFriendly }}
func (o *{{ $.Name }}) {{ .FriendlyMethodName }}({{ .FriendlyParamDecl }}) {{ .FriendlyReturn }} {
{{ .FriendlyBody }}
}
{{ end }}
{{ end }}
`

func (e *InterfaceEmitter) Emit(ent metadata.Entity) (*codegen.File, []accumulate.EmissionKey, error) {
	td, ok, err := findTypeDef(e.Ctx, ent)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("emit: interface entity not found in metadata index")
	}
	name, ok := e.Ctx.resolveIdent(td.Name, ent)
	if !ok {
		return nil, nil, nil
	}

	var allMethods []metadata.MethodDef
	for _, baseEnt := range td.BaseIfaces {
		if baseTd, ok, err := findTypeDef(e.Ctx, baseEnt); err == nil && ok {
			allMethods = append(allMethods, baseTd.Methods...)
		}
	}
	allMethods = append(allMethods, td.Methods...)

	var deps []metadata.Entity
	var imports []project.ImportSpec
	imports = append(imports, project.ImportSpec{Path: "syscall"})
	var slots []vtableSlotData
	for _, m := range allMethods {
		var paramDecls, argsCall []string
		argsCall = append(argsCall, "uintptr(unsafe.Pointer(o))")
		for i, p := range m.Params {
			pt, err := e.Ctx.Project.Project(p.Type, project.ContextInterfaceMethodParameter, project.OverloadRaw)
			if err != nil {
				return nil, nil, err
			}
			argName := fmt.Sprintf("arg%d", i)
			paramDecls = append(paramDecls, argName+" "+pt.GoExpr)
			argsCall = append(argsCall, fmt.Sprintf("uintptr(%s)", argName))
			deps = append(deps, pt.Deps...)
			imports = append(imports, pt.Imports...)
		}
		retExpr, err := e.Ctx.Project.Project(m.Return.Type, project.ContextReturn, project.OverloadRaw)
		if err != nil {
			return nil, nil, err
		}
		if retExpr.GoExpr == "" {
			retExpr.GoExpr = "uintptr"
		}
		deps = append(deps, retExpr.Deps...)
		methodName := codegen.Goify(m.Name, true)
		slot := vtableSlotData{
			FieldName:  methodName,
			MethodName: methodName,
			ParamDecl:  strings.Join(paramDecls, ", "),
			ArgsCall:   strings.Join(argsCall, ", "),
			Return:     retExpr.GoExpr,
		}

		friendlyEligible := false
		for _, p := range m.Params {
			if p.Flags.SizeParamIndex >= 0 || isHandleParam(e.Ctx, p.Type) || isBoolParam(e.Ctx, p.Type) {
				friendlyEligible = true
				break
			}
		}
		if !friendlyEligible {
			friendlyEligible = isBoolParam(e.Ctx, m.Return.Type)
		}
		if friendlyEligible {
			slot.HasFriendly = true
			slot.FriendlyMethodName = methodName + "Friendly"
			slot.FriendlyParamDecl, slot.FriendlyReturn, slot.FriendlyBody, err = e.buildFriendlyMethod(m, methodName, &deps, &imports)
			if err != nil {
				return nil, nil, err
			}
		}
		slots = append(slots, slot)
	}
	imports = append(imports, project.ImportSpec{Path: "unsafe"})

	data := interfaceFileData{PackageName: e.Ctx.PkgName, Name: name, Slots: slots}
	if td.HasGUID {
		data.HasGUID = true
		data.GUIDExpr = project.GUIDExpr(td.GUID)
		imports = append(imports, project.ImportSpec{Name: "windows", Path: "golang.org/x/sys/windows"})
	}

	specs := dedupImports(toImportSpecs(imports))
	sections := []*codegen.SectionTemplate{
		codegen.Header(name+" COM interface", e.Ctx.PkgName, specs),
		{Name: "interface-" + name, Source: interfaceTmpl, Data: data},
	}
	file := &codegen.File{Path: strings.ToLower(name) + ".go", SectionTemplates: sections}
	return file, depsToKeys(deps, e.Ctx.KindOf), nil
}

// buildFriendlyMethod mirrors MethodEmitter.buildFriendly for a COM vtable
// slot: the friendly overload forwards to the raw method on the same
// receiver, applying the same BOOL->bool, safe-handle, and size-indexed
// slice conversions a P/Invoke extern's friendly overload gets.
func (e *InterfaceEmitter) buildFriendlyMethod(m metadata.MethodDef, rawName string, deps *[]metadata.Entity, imports *[]project.ImportSpec) (string, string, string, error) {
	var paramDecls []string
	var callArgs []string
	var boolPrelude []string
	skip := make(map[int]bool)
	for _, p := range m.Params {
		if p.Flags.SizeParamIndex >= 0 {
			skip[p.Flags.SizeParamIndex] = true
		}
	}
	for i, p := range m.Params {
		if skip[i] {
			continue
		}
		pt, err := e.Ctx.Project.Project(p.Type, project.ContextParameter, project.OverloadFriendly)
		if err != nil {
			return "", "", "", err
		}
		name := fmt.Sprintf("arg%d", i)
		goType := pt.GoExpr
		if p.Flags.SizeParamIndex >= 0 && pt.IsSlice {
			goType = "[]" + pt.ElemGoExpr
		}
		paramDecls = append(paramDecls, name+" "+goType)
		*deps = append(*deps, pt.Deps...)
		*imports = append(*imports, pt.Imports...)

		switch {
		case p.Flags.SizeParamIndex >= 0:
			callArgs = append(callArgs, fmt.Sprintf("%sRaw", name))
		case isHandleParam(e.Ctx, p.Type):
			callArgs = append(callArgs, fmt.Sprintf("%s.Handle()", name))
		case pt.GoExpr == "bool" && isBoolParam(e.Ctx, p.Type):
			rawPt, err := e.Ctx.Project.Project(p.Type, project.ContextInterfaceMethodParameter, project.OverloadRaw)
			if err != nil {
				return "", "", "", err
			}
			boolPrelude = append(boolPrelude, fmt.Sprintf("\t%sRaw := %s(0)\n\tif %s { %sRaw = %s(1) }\n", name, rawPt.GoExpr, name, name, rawPt.GoExpr))
			callArgs = append(callArgs, fmt.Sprintf("%sRaw", name))
		default:
			callArgs = append(callArgs, name)
		}
	}

	retExpr, err := e.Ctx.Project.Project(m.Return.Type, project.ContextReturn, project.OverloadFriendly)
	if err != nil {
		return "", "", "", err
	}
	ret := retExpr.GoExpr
	if ret == "" {
		ret = "error"
	}
	rawRetExpr, err := e.Ctx.Project.Project(m.Return.Type, project.ContextReturn, project.OverloadRaw)
	if err != nil {
		return "", "", "", err
	}
	boolReturn := ret == "bool" && rawRetExpr.GoExpr != "bool" && rawRetExpr.GoExpr != ""

	var body strings.Builder
	for i, p := range m.Params {
		if p.Flags.SizeParamIndex < 0 {
			continue
		}
		name := fmt.Sprintf("arg%d", i)
		fmt.Fprintf(&body, "\t%sRaw := uintptr(0)\n\tif len(%s) > 0 { %sRaw = uintptr(unsafe.Pointer(&%s[0])) }\n", name, name, name, name)
	}
	for _, stmt := range boolPrelude {
		body.WriteString(stmt)
	}
	if boolReturn {
		fmt.Fprintf(&body, "\tr1 := o.%s(%s)\n\treturn r1 != 0", rawName, strings.Join(callArgs, ", "))
	} else {
		fmt.Fprintf(&body, "\treturn o.%s(%s)", rawName, strings.Join(callArgs, ", "))
	}
	*imports = append(*imports, project.ImportSpec{Path: "unsafe"})

	return strings.Join(paramDecls, ", "), ret, body.String(), nil
}
