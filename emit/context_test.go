package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/goa/v3/codegen"

	"github.com/win32gen/win32gen/accumulate"
	"github.com/win32gen/win32gen/collision"
	"github.com/win32gen/win32gen/metadata"
	"github.com/win32gen/win32gen/project"
)

func TestResolveIdentAccept(t *testing.T) {
	c := &Context{Collisions: collision.New(nil), PkgName: "win32"}
	name, ok := c.resolveIdent("HWND", metadata.Entity{})
	assert.True(t, ok)
	assert.Equal(t, "HWND", name)
}

func TestResolveIdentQualify(t *testing.T) {
	host := collision.HostSymbols{"win32": {"HWND": true}}
	c := &Context{Collisions: collision.New(host), PkgName: "win32"}
	name, ok := c.resolveIdent("HWND", metadata.Entity{})
	assert.True(t, ok)
	assert.Equal(t, "HWNDWin32", name)
}

func TestToImportSpecs(t *testing.T) {
	specs := toImportSpecs([]project.ImportSpec{{Name: "windows", Path: "golang.org/x/sys/windows"}, {Path: "fmt"}})
	require.Len(t, specs, 2)
	assert.Equal(t, "windows", specs[0].Name)
	assert.Equal(t, "golang.org/x/sys/windows", specs[0].Path)
	assert.Equal(t, "fmt", specs[1].Path)
}

func TestDedupImports(t *testing.T) {
	in := []*codegen.ImportSpec{{Path: "fmt"}, {Path: "fmt"}, {Path: "unsafe"}}
	out := dedupImports(in)
	assert.Len(t, out, 2)
}

func TestDepsToKeys(t *testing.T) {
	var e1, e2 metadata.Entity
	kindOf := func(metadata.Entity) accumulate.EntityKind { return accumulate.KindStruct }
	keys := depsToKeys([]metadata.Entity{e1, e2}, kindOf)
	require.Len(t, keys, 2)
	assert.Equal(t, accumulate.KindStruct, keys[0].Kind)
	assert.Equal(t, accumulate.KindStruct, keys[1].Kind)
}
