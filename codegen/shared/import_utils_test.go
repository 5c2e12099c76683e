package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/goa/v3/codegen"
)

func TestMergeImportSpecsDedupesAndSorts(t *testing.T) {
	a := []*codegen.ImportSpec{
		{Path: "syscall"},
		{Name: "windows", Path: "golang.org/x/sys/windows"},
	}
	b := []*codegen.ImportSpec{
		{Path: "syscall"}, // duplicate of a's first entry
		{Path: "unsafe"},
	}

	got := MergeImportSpecs(a, b)
	require.Len(t, got, 3)
	paths := make([]string, len(got))
	for i, s := range got {
		paths[i] = s.Path
	}
	// Sort key is Name+"\x00"+Path: unnamed imports (empty Name) sort
	// before the named "windows" import regardless of path text.
	assert.Equal(t, []string{"syscall", "unsafe", "golang.org/x/sys/windows"}, paths)
}

func TestMergeImportSpecsSkipsNilAndEmptyPath(t *testing.T) {
	got := MergeImportSpecs([]*codegen.ImportSpec{nil, {Path: ""}, {Path: "fmt"}})
	require.Len(t, got, 1)
	assert.Equal(t, "fmt", got[0].Path)
}

func TestMergeImportSpecsEmptyInputReturnsNil(t *testing.T) {
	assert.Nil(t, MergeImportSpecs())
	assert.Nil(t, MergeImportSpecs(nil, nil))
}

func TestMergeImportSpecsDistinguishesByName(t *testing.T) {
	got := MergeImportSpecs([]*codegen.ImportSpec{
		{Name: "foo", Path: "example.com/pkg"},
		{Name: "bar", Path: "example.com/pkg"},
	})
	assert.Len(t, got, 2)
}
