package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/win32gen/win32gen/metadata"
)

func TestIsBoolParamPrimitive(t *testing.T) {
	c := &Context{}
	assert.True(t, isBoolParam(c, metadata.TypeRef{Kind: metadata.RefPrimitive, Primitive: metadata.PrimBool}))
	assert.False(t, isBoolParam(c, metadata.TypeRef{Kind: metadata.RefPrimitive, Primitive: metadata.PrimU32}))
}

func TestIsBoolParamNonNamedNonPrimitiveIsFalse(t *testing.T) {
	c := &Context{}
	assert.False(t, isBoolParam(c, metadata.TypeRef{Kind: metadata.RefPointer}))
}
