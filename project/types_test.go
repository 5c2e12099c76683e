package project

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/win32gen/win32gen/metadata"
)

// entityComparer compares metadata.Entity by its exported Token() accessor:
// the struct's backing field is unexported, so cmp would otherwise panic
// rather than compare it.
var entityComparer = cmp.Comparer(func(a, b metadata.Entity) bool { return a.Token() == b.Token() })

func TestProjectPrimitives(t *testing.T) {
	p := New(nil, nil, "windows.win32")
	cases := []struct {
		prim metadata.PrimitiveKind
		want string
	}{
		{metadata.PrimVoid, ""},
		{metadata.PrimBool, "bool"},
		{metadata.PrimChar, "uint16"},
		{metadata.PrimI8, "int8"},
		{metadata.PrimU8, "uint8"},
		{metadata.PrimI16, "int16"},
		{metadata.PrimU16, "uint16"},
		{metadata.PrimI32, "int32"},
		{metadata.PrimU32, "uint32"},
		{metadata.PrimI64, "int64"},
		{metadata.PrimU64, "uint64"},
		{metadata.PrimF32, "float32"},
		{metadata.PrimF64, "float64"},
	}
	for _, c := range cases {
		t.Run(c.want, func(t *testing.T) {
			got, err := p.Project(metadata.TypeRef{Kind: metadata.RefPrimitive, Primitive: c.prim}, ContextField, OverloadRaw)
			require.NoError(t, err)
			assert.Equal(t, c.want, got.GoExpr)
		})
	}
}

func TestProjectPointerToPrimitive(t *testing.T) {
	p := New(nil, nil, "windows.win32")
	elem := metadata.TypeRef{Kind: metadata.RefPrimitive, Primitive: metadata.PrimU16}
	got, err := p.Project(metadata.TypeRef{Kind: metadata.RefPointer, Elem: &elem}, ContextParameter, OverloadRaw)
	require.NoError(t, err)
	assert.Equal(t, "*uint16", got.GoExpr)
}

// TestProjectPointerStructuralDiff uses go-cmp instead of assert.Equal so a
// future regression in the full ProjectedType shape (Deps/Imports included,
// not just GoExpr) prints a structural diff.
func TestProjectPointerStructuralDiff(t *testing.T) {
	p := New(nil, nil, "windows.win32")
	elem := metadata.TypeRef{Kind: metadata.RefPointer}
	got, err := p.Project(metadata.TypeRef{Kind: metadata.RefPointer, Elem: &elem}, ContextParameter, OverloadRaw)
	require.NoError(t, err)

	want := ProjectedType{
		GoExpr:  "*unsafe.Pointer",
		Imports: []ImportSpec{{Path: "unsafe"}},
	}
	if diff := cmp.Diff(want, got, entityComparer); diff != "" {
		t.Errorf("Project(*void) mismatch (-want +got):\n%s", diff)
	}
}

func TestProjectRawPointerNilElem(t *testing.T) {
	p := New(nil, nil, "windows.win32")
	got, err := p.Project(metadata.TypeRef{Kind: metadata.RefPointer}, ContextParameter, OverloadRaw)
	require.NoError(t, err)
	assert.Equal(t, "unsafe.Pointer", got.GoExpr)
	require.Len(t, got.Imports, 1)
	assert.Equal(t, "unsafe", got.Imports[0].Path)
}

func TestProjectArrayFriendlyIsSlice(t *testing.T) {
	p := New(nil, nil, "windows.win32")
	elem := metadata.TypeRef{Kind: metadata.RefPrimitive, Primitive: metadata.PrimU8}
	got, err := p.Project(metadata.TypeRef{Kind: metadata.RefArray, Elem: &elem}, ContextParameter, OverloadFriendly)
	require.NoError(t, err)
	assert.True(t, got.IsSlice)
	assert.Equal(t, "uint8", got.ElemGoExpr)
}

func TestProjectArrayRawIsNotSlice(t *testing.T) {
	p := New(nil, nil, "windows.win32")
	elem := metadata.TypeRef{Kind: metadata.RefPrimitive, Primitive: metadata.PrimU8}
	got, err := p.Project(metadata.TypeRef{Kind: metadata.RefArray, Elem: &elem}, ContextParameter, OverloadRaw)
	require.NoError(t, err)
	assert.False(t, got.IsSlice)
}

func TestProjectArrayMissingElemErrors(t *testing.T) {
	p := New(nil, nil, "windows.win32")
	_, err := p.Project(metadata.TypeRef{Kind: metadata.RefArray}, ContextField, OverloadRaw)
	assert.Error(t, err)
}

func TestProjectUnhandledKindErrors(t *testing.T) {
	p := New(nil, nil, "windows.win32")
	_, err := p.Project(metadata.TypeRef{Kind: metadata.TypeRefKind(99)}, ContextField, OverloadRaw)
	assert.Error(t, err)
}

func TestGUIDExprFormatsFields(t *testing.T) {
	g := [16]byte{0x01, 0x00, 0x00, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B}
	expr := GUIDExpr(g)
	assert.Contains(t, expr, "windows.GUID{")
	assert.Contains(t, expr, "Data1: 0x00000001")
	assert.Contains(t, expr, "Data2: 0x0002")
	assert.Contains(t, expr, "Data3: 0x0003")
}

func TestWinRTImportAliasAndPath(t *testing.T) {
	alias := winRTImportAlias("Windows.Foundation")
	assert.Equal(t, "winrt_windows_foundation", alias)
	path := winRTImportPath("Windows.Foundation")
	assert.True(t, strings.HasSuffix(path, "/windows/foundation"))
}

func TestIsWinRTIncidental(t *testing.T) {
	assert.True(t, isWinRTIncidental("Windows.Foundation"))
	assert.False(t, isWinRTIncidental("Win32.Foundation"))
}

func TestIsLargeIntegerAlias(t *testing.T) {
	assert.True(t, isLargeIntegerAlias("", "ULARGE_INTEGER"))
	assert.True(t, isLargeIntegerAlias("", "LARGE_INTEGER"))
	assert.False(t, isLargeIntegerAlias("", "FILETIME"))
}
