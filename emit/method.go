package emit

import (
	"fmt"
	"strings"

	"goa.design/goa/v3/codegen"

	"github.com/win32gen/win32gen/accumulate"
	"github.com/win32gen/win32gen/metadata"
	"github.com/win32gen/win32gen/project"
)

// MethodEmitter emits one P/Invoke extern declaration: a package-level
// lazily-bound proc var grouped under the configured ClassName, a raw
// overload matching the metadata signature exactly, and — whenever a
// parameter or the return qualifies (safe-handle substitution, BOOL->bool,
// size-indexed slice promotion) — a friendly overload wrapping it.
type MethodEmitter struct{ Ctx *Context }

type methodParamData struct {
	Name   string
	GoType string
}

type methodFileData struct {
	PackageName   string
	ClassName     string
	Module        string
	EntryPoint    string
	ProcVar       string
	FuncName      string
	RawParams     []methodParamData
	RawCallArgs   string
	RawReturn     string
	SetLastError  bool
	HasFriendly   bool
	FriendlyParams []methodParamData
	FriendlyReturn string
	FriendlyBody   string
}

const methodTmpl = `
// {{ .FuncName }} is grouped under {{ .ClassName }}, binding {{ .Module }}!{{ .EntryPoint }}.
var {{ .ProcVar }} = sync.OnceValue(func() *syscall.LazyProc {
	return syscall.NewLazyDLL("{{ .Module }}").NewProc("{{ .EntryPoint }}")
})

func {{ .FuncName }}({{ range $i, $p := .RawParams }}{{ if $i }}, {{ end }}{{ $p.Name }} {{ $p.GoType }}{{ end }}) {{ .RawReturn }} {
{{ if .SetLastError }}
	r1, _, e1 := {{ .ProcVar }}().Call({{ .RawCallArgs }})
	if r1 == 0 && e1 != 0 {
		return {{ .RawReturn }}(r1)
	}
	return {{ .RawReturn }}(r1)
{{ else }}
	r1, _, _ := {{ .ProcVar }}().Call({{ .RawCallArgs }})
	return {{ .RawReturn }}(r1)
{{ end }}
}

{{ if .HasFriendly }}
func {{ .FuncName }}Friendly({{ range $i, $p := .FriendlyParams }}{{ if $i }}, {{ end }}{{ $p.Name }} {{ $p.GoType }}{{ end }}) {{ .FriendlyReturn }} {
{{ .FriendlyBody }}
}
{{ end }}
`

func (e *MethodEmitter) Emit(ent metadata.Entity) (*codegen.File, []accumulate.EmissionKey, error) {
	md, ok, err := e.findMethod(ent)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("emit: method entity not found in metadata index")
	}
	if md.PInvoke == nil {
		return nil, nil, fmt.Errorf("emit: method %s has no P/Invoke mapping", md.Name)
	}
	funcName, ok := e.Ctx.resolveIdent(codegen.Goify(md.Name, true), ent)
	if !ok {
		return nil, nil, nil
	}

	var deps []metadata.Entity
	var imports []project.ImportSpec
	imports = append(imports, project.ImportSpec{Path: "syscall"}, project.ImportSpec{Path: "sync"})

	var rawParams []methodParamData
	var rawArgs []string
	friendlyEligible := false
	for _, p := range md.Params {
		pt, err := e.Ctx.Project.Project(p.Type, project.ContextParameter, project.OverloadRaw)
		if err != nil {
			return nil, nil, err
		}
		name := codegen.Goify(p.Name, false)
		if name == "" {
			name = "arg"
		}
		rawParams = append(rawParams, methodParamData{Name: name, GoType: pt.GoExpr})
		rawArgs = append(rawArgs, fmt.Sprintf("uintptr(%s)", name))
		deps = append(deps, pt.Deps...)
		imports = append(imports, pt.Imports...)

		if p.Flags.SizeParamIndex >= 0 || isHandleParam(e.Ctx, p.Type) || isBoolParam(e.Ctx, p.Type) {
			friendlyEligible = true
		}
	}
	retExpr, err := e.Ctx.Project.Project(md.Return.Type, project.ContextReturn, project.OverloadRaw)
	if err != nil {
		return nil, nil, err
	}
	deps = append(deps, retExpr.Deps...)
	if !friendlyEligible {
		friendlyEligible = isBoolParam(e.Ctx, md.Return.Type)
	}
	rawReturn := retExpr.GoExpr
	if rawReturn == "" {
		rawReturn = "uintptr"
	}

	data := methodFileData{
		PackageName:  e.Ctx.PkgName,
		ClassName:    e.Ctx.ClassName,
		Module:       md.PInvoke.Module,
		EntryPoint:   md.PInvoke.EntryPoint,
		ProcVar:      "proc" + funcName,
		FuncName:     funcName,
		RawParams:    rawParams,
		RawCallArgs:  strings.Join(rawArgs, ", "),
		RawReturn:    rawReturn,
		SetLastError: md.PInvoke.SetLastError,
	}

	if friendlyEligible {
		data.HasFriendly = true
		data.FriendlyParams, data.FriendlyReturn, data.FriendlyBody, err = e.buildFriendly(md, data.FuncName, &deps, &imports)
		if err != nil {
			return nil, nil, err
		}
	}

	specs := dedupImports(toImportSpecs(imports))
	sections := []*codegen.SectionTemplate{
		codegen.Header(md.Name+" extern", e.Ctx.PkgName, specs),
		{Name: "method-" + md.Name, Source: methodTmpl, Data: data},
	}
	file := &codegen.File{Path: "methods_" + strings.ToLower(md.PInvoke.Module) + ".go", SectionTemplates: sections}
	return file, depsToKeys(deps, e.Ctx.KindOf), nil
}

// buildFriendly projects the friendly overload's signature (safe-handle
// substitution, BOOL->bool, size-param-indexed slice promotion) and its
// forwarding body. The body always forwards to the raw extern so behavior
// between overloads never diverges.
func (e *MethodEmitter) buildFriendly(md metadata.MethodDef, rawName string, deps *[]metadata.Entity, imports *[]project.ImportSpec) ([]methodParamData, string, string, error) {
	var params []methodParamData
	var callArgs []string
	var boolPrelude []string
	skip := make(map[int]bool)
	for i, p := range md.Params {
		if p.Flags.SizeParamIndex >= 0 {
			skip[p.Flags.SizeParamIndex] = true
		}
		_ = i
	}
	for i, p := range md.Params {
		if skip[i] {
			continue
		}
		pt, err := e.Ctx.Project.Project(p.Type, project.ContextParameter, project.OverloadFriendly)
		if err != nil {
			return nil, "", "", err
		}
		name := codegen.Goify(p.Name, false)
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		goType := pt.GoExpr
		if p.Flags.SizeParamIndex >= 0 && pt.IsSlice {
			goType = "[]" + pt.ElemGoExpr
		}
		params = append(params, methodParamData{Name: name, GoType: goType})
		*deps = append(*deps, pt.Deps...)
		*imports = append(*imports, pt.Imports...)

		switch {
		case p.Flags.SizeParamIndex >= 0:
			callArgs = append(callArgs, fmt.Sprintf("%sRaw", name))
		case isHandleParam(e.Ctx, p.Type):
			callArgs = append(callArgs, fmt.Sprintf("%s.Handle()", name))
		case pt.GoExpr == "bool" && isBoolParam(e.Ctx, p.Type):
			rawPt, err := e.Ctx.Project.Project(p.Type, project.ContextParameter, project.OverloadRaw)
			if err != nil {
				return nil, "", "", err
			}
			boolPrelude = append(boolPrelude, fmt.Sprintf("\t%sRaw := %s(0)\n\tif %s { %sRaw = %s(1) }\n", name, rawPt.GoExpr, name, name, rawPt.GoExpr))
			callArgs = append(callArgs, fmt.Sprintf("%sRaw", name))
		default:
			callArgs = append(callArgs, name)
		}
	}

	retExpr, err := e.Ctx.Project.Project(md.Return.Type, project.ContextReturn, project.OverloadFriendly)
	if err != nil {
		return nil, "", "", err
	}
	ret := retExpr.GoExpr
	if ret == "" {
		ret = "error"
	}
	rawRetExpr, err := e.Ctx.Project.Project(md.Return.Type, project.ContextReturn, project.OverloadRaw)
	if err != nil {
		return nil, "", "", err
	}
	boolReturn := ret == "bool" && rawRetExpr.GoExpr != "bool" && rawRetExpr.GoExpr != ""

	var body strings.Builder
	for i, p := range md.Params {
		if p.Flags.SizeParamIndex < 0 {
			continue
		}
		name := codegen.Goify(p.Name, false)
		fmt.Fprintf(&body, "\t%sRaw := uintptr(0)\n\tif len(%s) > 0 { %sRaw = uintptr(unsafe.Pointer(&%s[0])) }\n", name, name, name, name)
		_ = i
	}
	for _, stmt := range boolPrelude {
		body.WriteString(stmt)
	}
	if boolReturn {
		fmt.Fprintf(&body, "\tr1 := %s(%s)\n\treturn r1 != 0", rawName, strings.Join(callArgs, ", "))
	} else {
		fmt.Fprintf(&body, "\treturn %s(%s)", rawName, strings.Join(callArgs, ", "))
	}
	*imports = append(*imports, project.ImportSpec{Path: "unsafe"})

	return params, ret, body.String(), nil
}

func isBoolParam(c *Context, t metadata.TypeRef) bool {
	if t.Kind == metadata.RefPrimitive && t.Primitive == metadata.PrimBool {
		return true
	}
	if t.Kind != metadata.RefNamed {
		return false
	}
	td, ok, err := findTypeDef(c, t.Named)
	return err == nil && ok && td.Name == "BOOL"
}

func isHandleParam(c *Context, t metadata.TypeRef) bool {
	if t.Kind != metadata.RefNamed {
		return false
	}
	if _, ok := c.Handles.SafeHandleTypeName(t.Named); ok {
		return true
	}
	return false
}

func (e *MethodEmitter) findMethod(ent metadata.Entity) (metadata.MethodDef, bool, error) {
	for m, err := range e.Ctx.Idx.IterMethodsByModulePattern("*.*") {
		if err != nil {
			return metadata.MethodDef{}, false, err
		}
		if m.Entity == ent {
			return m, true, nil
		}
	}
	return metadata.MethodDef{}, false, nil
}
