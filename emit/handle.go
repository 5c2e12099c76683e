package emit

import (
	"fmt"
	"strings"

	"goa.design/goa/v3/codegen"

	"github.com/win32gen/win32gen/accumulate"
	"github.com/win32gen/win32gen/handlepolicy"
	"github.com/win32gen/win32gen/metadata"
)

// HandleEmitter emits a handle typedef's underlying integer type and,
// where handlepolicy finds it eligible (a resolvable RAIIFree release
// function, not namespace-excluded), a safe-handle wrapper struct
// implementing io.Closer.
type HandleEmitter struct{ Ctx *Context }

type handleFileData struct {
	PackageName    string
	TypedefName    string
	WrapperName    string
	HasWrapper     bool
	ReleaseFunc    string
	Classification handlepolicy.ReleaseClassification
}

const handleTmpl = `
type {{ .TypedefName }} uintptr

{{ if .HasWrapper }}
// {{ .WrapperName }} owns one {{ .TypedefName }} and releases it via
// {{ .ReleaseFunc }} on Close. It implements io.Closer.
type {{ .WrapperName }} struct {
	h {{ .TypedefName }}
}

func (w *{{ .WrapperName }}) Handle() {{ .TypedefName }} { return w.h }

func (w *{{ .WrapperName }}) Close() error {
	if w.h == 0 {
		return nil
	}
{{ if eq .Classification 0 }}
	ok, _, callErr := {{ .ReleaseFunc }}().Call(uintptr(w.h))
	w.h = 0
	if ok == 0 {
		return callErr
	}
	return nil
{{ else if eq .Classification 2 }}
	status, _, _ := {{ .ReleaseFunc }}().Call(uintptr(w.h))
	w.h = 0
	if status != 0 {
		return fmt.Errorf("{{ .ReleaseFunc }}: NTSTATUS 0x%x", uint32(status))
	}
	return nil
{{ else if eq .Classification 3 }}
	hr, _, _ := {{ .ReleaseFunc }}().Call(uintptr(w.h))
	w.h = 0
	if int32(hr) < 0 {
		return fmt.Errorf("{{ .ReleaseFunc }}: HRESULT 0x%x", uint32(hr))
	}
	return nil
{{ else if eq .Classification 4 }}
	{{ .ReleaseFunc }}().Call(uintptr(w.h))
	w.h = 0
	return nil
{{ else }}
	status, _, _ := {{ .ReleaseFunc }}().Call(uintptr(w.h))
	w.h = 0
	if status != 0 {
		return fmt.Errorf("{{ .ReleaseFunc }}: LSTATUS %d", int32(status))
	}
	return nil
{{ end }}
}
{{ end }}
`

func (e *HandleEmitter) Emit(ent metadata.Entity) (*codegen.File, []accumulate.EmissionKey, error) {
	td, ok, err := findTypeDef(e.Ctx, ent)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("emit: handle entity not found in metadata index")
	}
	name, ok := e.Ctx.resolveIdent(td.Name, ent)
	if !ok {
		return nil, nil, nil
	}

	data := handleFileData{PackageName: e.Ctx.PkgName, TypedefName: name}
	imports := []*codegen.ImportSpec{{Path: "fmt"}}
	var deps []accumulate.EmissionKey
	if desc, ok, err := e.Ctx.Handles.Resolve(td); err != nil {
		return nil, nil, err
	} else if ok {
		data.HasWrapper = true
		data.WrapperName = desc.WrapperName
		data.ReleaseFunc = releaseAccessorName(desc)
		data.Classification = desc.Classification
		deps = append(deps, accumulate.EmissionKey{Entity: desc.ReleaseFunc.Entity, Kind: accumulate.KindMethod})
	}

	sections := []*codegen.SectionTemplate{
		codegen.Header(name+" handle", e.Ctx.PkgName, imports),
		{Name: "handle-" + name, Source: handleTmpl, Data: data},
	}
	file := &codegen.File{Path: strings.ToLower(name) + ".go", SectionTemplates: sections}
	return file, deps, nil
}

func releaseAccessorName(desc *handlepolicy.SafeHandleDescriptor) string {
	return "proc" + codegen.Goify(desc.ReleaseFunc.Name, true)
}
