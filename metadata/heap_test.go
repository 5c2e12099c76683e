package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCompressedUint(t *testing.T) {
	cases := []struct {
		name     string
		in       []byte
		want     uint32
		consumed int
	}{
		{"single byte", []byte{0x03}, 3, 1},
		{"single byte max", []byte{0x7F}, 0x7F, 1},
		{"two byte", []byte{0x80, 0x80}, 0x80, 2},
		{"two byte max", []byte{0xBF, 0xFF}, 0x3FFF, 2},
		{"four byte", []byte{0xC0, 0x00, 0x40, 0x00}, 0x4000, 4},
		{"four byte max", []byte{0xDF, 0xFF, 0xFF, 0xFF}, 0x1FFFFFFF, 4},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, consumed, err := decodeCompressedUint(c.in)
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
			assert.Equal(t, c.consumed, consumed)
		})
	}
}

func TestDecodeCompressedUintErrors(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
	}{
		{"empty", nil},
		{"truncated two byte", []byte{0x80}},
		{"truncated four byte", []byte{0xC0, 0x00}},
		{"invalid lead byte", []byte{0xF0}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, _, err := decodeCompressedUint(c.in)
			assert.Error(t, err)
		})
	}
}

func TestHeapString(t *testing.T) {
	h := heap{data: []byte("\x00Foo\x00Bar\x00")}
	s, err := h.String(1)
	require.NoError(t, err)
	assert.Equal(t, "Foo", s)

	s, err = h.String(5)
	require.NoError(t, err)
	assert.Equal(t, "Bar", s)

	_, err = h.String(100)
	assert.Error(t, err)
}

func TestHeapStringNotTerminated(t *testing.T) {
	h := heap{data: []byte("Foo")}
	_, err := h.String(0)
	assert.Error(t, err)
}

func TestHeapBlob(t *testing.T) {
	// one-byte length prefix (3), then 3 payload bytes.
	h := heap{data: []byte{0x03, 0xAA, 0xBB, 0xCC}}
	b, err := h.Blob(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, b)
}

func TestHeapBlobOverrun(t *testing.T) {
	h := heap{data: []byte{0x05, 0xAA}}
	_, err := h.Blob(0)
	assert.Error(t, err)
}

func TestHeapGUID(t *testing.T) {
	data := make([]byte, 32)
	for i := range data[16:] {
		data[16+i] = byte(i + 1)
	}
	h := heap{data: data}

	zero, err := h.GUID(0)
	require.NoError(t, err)
	assert.Equal(t, [16]byte{}, zero)

	g, err := h.GUID(2)
	require.NoError(t, err)
	var want [16]byte
	for i := range want {
		want[i] = byte(i + 1)
	}
	assert.Equal(t, want, g)

	_, err = h.GUID(100)
	assert.Error(t, err)
}

func TestHeapUS(t *testing.T) {
	// "Hi" as UTF-16LE (4 bytes) plus a 1-byte compressed length (5) and
	// trailing terminal marker byte.
	payload := []byte{0x48, 0x00, 0x69, 0x00, 0x01}
	data := append([]byte{0x05}, payload...)
	h := heap{data: data}
	us, err := h.US(0)
	require.NoError(t, err)
	require.Len(t, us, 2)
	assert.Equal(t, uint16('H'), us[0])
	assert.Equal(t, uint16('i'), us[1])
}
