package win32gen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/win32gen/win32gen/accumulate"
	"github.com/win32gen/win32gen/internal/config"
	"github.com/win32gen/win32gen/metadata"
)

// TestGenerateByNameRejectsGetLastError exercises the one GenerateByName
// path that never touches the metadata index, so it runs without a real
// .winmd file.
func TestGenerateByNameRejectsGetLastError(t *testing.T) {
	g, err := New(nil, config.Options{}, HostContext{})
	require.NoError(t, err)
	err = g.GenerateByName(context.Background(), "GetLastError")
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	_, err := New(nil, config.Options{ClassName: "1Invalid"}, HostContext{})
	assert.Error(t, err)
}

func TestDescribeEmptySession(t *testing.T) {
	g, err := New(nil, config.Options{ClassName: "PInvoke", Namespace: "windows.win32"}, HostContext{})
	require.NoError(t, err)
	sess := g.Describe()
	assert.Equal(t, "windows.win32", sess.Namespace)
	assert.Equal(t, "PInvoke", sess.ClassName)
	assert.Empty(t, sess.Units)
}

func TestFilesEmptyStoreRespectsSingleFileOption(t *testing.T) {
	g, err := New(nil, config.Options{EmitSingleFile: false, Namespace: "windows.win32"}, HostContext{})
	require.NoError(t, err)
	assert.Empty(t, g.Files())

	g2, err := New(nil, config.Options{EmitSingleFile: true, Namespace: "windows.win32"}, HostContext{})
	require.NoError(t, err)
	files := g2.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "windows.win32.go", files[0].Path)
}

func TestKindForTypeKind(t *testing.T) {
	cases := []struct {
		in   metadata.TypeKind
		want accumulate.EntityKind
	}{
		{metadata.KindEnum, accumulate.KindEnum},
		{metadata.KindDelegate, accumulate.KindDelegate},
		{metadata.KindInterface, accumulate.KindInterface},
		{metadata.KindHandleTypedef, accumulate.KindHandle},
		{metadata.KindStruct, accumulate.KindStruct},
		{metadata.KindUnion, accumulate.KindStruct},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, kindForTypeKind(c.in))
	}
}

func TestKindName(t *testing.T) {
	cases := []struct {
		in   accumulate.EntityKind
		want string
	}{
		{accumulate.KindMethod, "method"},
		{accumulate.KindStruct, "struct"},
		{accumulate.KindUnion, "union"},
		{accumulate.KindEnum, "enum"},
		{accumulate.KindInterface, "interface"},
		{accumulate.KindDelegate, "delegate"},
		{accumulate.KindConstant, "constant"},
		{accumulate.KindHandle, "handle"},
		{accumulate.EntityKind(99), "unknown"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, kindName(c.in))
	}
}

func TestCheckCtxRespectsCancellation(t *testing.T) {
	assert.NoError(t, checkCtx(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, checkCtx(ctx), context.Canceled)
}
