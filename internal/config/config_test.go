package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDefaults(t *testing.T) {
	o, err := Normalize(Options{})
	require.NoError(t, err)
	assert.Equal(t, "PInvoke", o.ClassName)
	assert.Equal(t, "windows.win32", o.Namespace)
	assert.False(t, o.EmitSingleFile)
}

func TestNormalizePreservesExplicitValues(t *testing.T) {
	o, err := Normalize(Options{ClassName: "Apis", Namespace: "my.ns", EmitSingleFile: true})
	require.NoError(t, err)
	assert.Equal(t, "Apis", o.ClassName)
	assert.Equal(t, "my.ns", o.Namespace)
	assert.True(t, o.EmitSingleFile)
}

func TestNormalizeRejectsInvalidClassName(t *testing.T) {
	cases := []string{"1Apis", "Api-s", "Api.s", "Api s"}
	for _, cn := range cases {
		t.Run(cn, func(t *testing.T) {
			_, err := Normalize(Options{ClassName: cn})
			assert.Error(t, err)
		})
	}
}

func TestNormalizeAcceptsUnderscoreAndDigitsAfterFirst(t *testing.T) {
	o, err := Normalize(Options{ClassName: "_Api1"})
	require.NoError(t, err)
	assert.Equal(t, "_Api1", o.ClassName)
}
