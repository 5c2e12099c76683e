package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/win32gen/win32gen/metadata"
)

func TestSanitizeFieldNameEscapesReservedWords(t *testing.T) {
	assert.Equal(t, "type_", sanitizeFieldName("type"))
	assert.Equal(t, "Value", sanitizeFieldName("value"))
}

func TestMaxFieldOffsetSizeDefaultsWhenNoOffsets(t *testing.T) {
	td := metadata.TypeDef{Fields: []metadata.FieldDef{{Name: "A"}, {Name: "B"}}}
	assert.Equal(t, 16, maxFieldOffsetSize(td))
}

func TestMaxFieldOffsetSizeUsesLargestOffset(t *testing.T) {
	td := metadata.TypeDef{Fields: []metadata.FieldDef{
		{Name: "A", HasOffset: true, Offset: 0},
		{Name: "B", HasOffset: true, Offset: 4},
		{Name: "C", HasOffset: true, Offset: 12},
	}}
	assert.Equal(t, 20, maxFieldOffsetSize(td))
}

func TestGoTypeSize(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"uint8", 1, true},
		{"int32", 4, true},
		{"uint64", 8, true},
		{"*HWND", 8, true},
		{"[4]uint8", 4, true},
		{"[2]*HWND", 16, true},
		{"RECT", 0, false},
	}
	for _, c := range cases {
		got, ok := goTypeSize(c.in)
		assert.Equal(t, c.ok, ok, c.in)
		if c.ok {
			assert.Equal(t, c.want, got, c.in)
		}
	}
}

func TestPadExplicitLayoutInsertsGapForSkippedOffset(t *testing.T) {
	fields := []structFieldData{
		{Name: "A", GoType: "uint8"},
		{Name: "B", GoType: "uint32"},
	}
	defs := []metadata.FieldDef{
		{Name: "A", HasOffset: true, Offset: 0},
		{Name: "B", HasOffset: true, Offset: 4},
	}
	out := padExplicitLayout(fields, defs)
	if assert.Len(t, out, 3) {
		assert.Equal(t, "A", out[0].Name)
		assert.Equal(t, "Pad0_", out[1].Name)
		assert.Equal(t, "[3]byte", out[1].GoType)
		assert.Equal(t, "B", out[2].Name)
	}
}

func TestPadExplicitLayoutNoGapWhenContiguous(t *testing.T) {
	fields := []structFieldData{
		{Name: "A", GoType: "uint32"},
		{Name: "B", GoType: "uint32"},
	}
	defs := []metadata.FieldDef{
		{Name: "A", HasOffset: true, Offset: 0},
		{Name: "B", HasOffset: true, Offset: 4},
	}
	out := padExplicitLayout(fields, defs)
	assert.Len(t, out, 2)
}
