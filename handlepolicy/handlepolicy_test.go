package handlepolicy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/win32gen/win32gen/metadata"
)

func namedReturn(hint string) metadata.MethodDef {
	return metadata.MethodDef{
		Return: metadata.Param{Type: metadata.TypeRef{Kind: metadata.RefNamed}},
		ReturnTypeNameHint: hint,
	}
}

func TestClassifyReleaseVoid(t *testing.T) {
	m := metadata.MethodDef{Return: metadata.Param{Type: metadata.TypeRef{Kind: metadata.RefPrimitive, Primitive: metadata.PrimVoid}}}
	assert.Equal(t, ReturnVoid, classifyRelease(m))
}

func TestClassifyReleaseNonNamed(t *testing.T) {
	m := metadata.MethodDef{Return: metadata.Param{Type: metadata.TypeRef{Kind: metadata.RefPrimitive, Primitive: metadata.PrimI32}}}
	assert.Equal(t, ReturnOther, classifyRelease(m))
}

func TestClassifyReleaseByName(t *testing.T) {
	cases := []struct {
		hint string
		want ReleaseClassification
	}{
		{"BOOL", ReturnBOOL},
		{"LSTATUS", ReturnLSTATUS},
		{"NTSTATUS", ReturnNTSTATUS},
		{"HRESULT", ReturnHRESULT},
		{"DWORD", ReturnOther},
		{"", ReturnOther},
	}
	for _, c := range cases {
		t.Run(c.hint, func(t *testing.T) {
			assert.Equal(t, c.want, classifyRelease(namedReturn(c.hint)))
		})
	}
}

func TestSafeHandleTypeNameUnresolvedEntity(t *testing.T) {
	p := New(nil)
	_, ok := p.SafeHandleTypeName(metadata.Entity{})
	assert.False(t, ok)
}
