package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionJSONShape(t *testing.T) {
	sess := Session{
		Namespace: "Windows.Win32",
		ClassName: "PInvoke",
		Units: []Unit{
			{Name: "HWND", Kind: "handle", Path: "hwnd.go"},
			{Name: "CreateWindowExW", Kind: "method", Path: "methods_user32.go", DependsOn: []string{"HWND"}},
		},
	}
	b, err := json.Marshal(sess)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "Windows.Win32", decoded["namespace"])
	assert.Equal(t, "PInvoke", decoded["class_name"])

	units, ok := decoded["units"].([]any)
	require.True(t, ok)
	require.Len(t, units, 2)

	first := units[0].(map[string]any)
	assert.Equal(t, "HWND", first["name"])
	// No dependencies: the omitempty tag drops the key entirely.
	_, hasDeps := first["depends_on"]
	assert.False(t, hasDeps)

	second := units[1].(map[string]any)
	deps, ok := second["depends_on"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"HWND"}, deps)
}
