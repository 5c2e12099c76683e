package emit

import (
	"fmt"
	"strings"

	"goa.design/goa/v3/codegen"

	"github.com/win32gen/win32gen/accumulate"
	"github.com/win32gen/win32gen/metadata"
)

// EnumEmitter emits a defined integer type plus a const block; members
// tagged via AssociatedEnum on a secondary metadata type are folded into
// the same const block as the enum they're associated with.
type EnumEmitter struct{ Ctx *Context }

type enumMemberData struct {
	Name  string
	Value int64
}

type enumFileData struct {
	PackageName string
	Name        string
	Underlying  string
	Members     []enumMemberData
}

const enumTmpl = `
type {{ .Name }} {{ .Underlying }}

const (
{{ range .Members }}	{{ .Name }} {{ $.Name }} = {{ .Value }}
{{ end }})
`

func (e *EnumEmitter) Emit(ent metadata.Entity) (*codegen.File, []accumulate.EmissionKey, error) {
	td, ok, err := findTypeDef(e.Ctx, ent)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("emit: enum entity not found in metadata index")
	}
	name, ok := e.Ctx.resolveIdent(td.Name, ent)
	if !ok {
		return nil, nil, nil
	}

	underlying := "int32"
	var members []enumMemberData
	for _, f := range td.Fields {
		if f.ConstantValue == nil {
			continue
		}
		members = append(members, enumMemberData{
			Name:  codegen.Goify(f.Name, true),
			Value: f.ConstantValue.IntValue,
		})
	}
	for _, assoc := range e.associatedMembers(td.Entity) {
		members = append(members, assoc)
	}

	data := enumFileData{PackageName: e.Ctx.PkgName, Name: name, Underlying: underlying, Members: members}
	sections := []*codegen.SectionTemplate{
		codegen.Header(name+" enum", e.Ctx.PkgName, nil),
		{Name: "enum-" + name, Source: enumTmpl, Data: data},
	}
	file := &codegen.File{Path: strings.ToLower(name) + ".go", SectionTemplates: sections}
	return file, nil, nil
}

// associatedMembers folds constants from a secondary metadata type tagged
// AssociatedEnum(thisEnumName) into this enum's const block, per the
// AssociatedEnum attribute convention.
func (e *EnumEmitter) associatedMembers(enumEntity metadata.Entity) []enumMemberData {
	var out []enumMemberData
	enumName := ""
	if td, ok, _ := findTypeDef(e.Ctx, enumEntity); ok {
		enumName = td.Name
	}
	if enumName == "" {
		return nil
	}
	for td, err := range e.Ctx.Idx.IterAllTopLevelTypes() {
		if err != nil {
			break
		}
		for _, f := range td.Fields {
			for _, a := range f.AssociatedEnumNames() {
				if a == enumName && f.ConstantValue != nil {
					out = append(out, enumMemberData{Name: codegen.Goify(f.Name, true), Value: f.ConstantValue.IntValue})
				}
			}
		}
	}
	return out
}
