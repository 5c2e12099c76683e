package metadata

import (
	"encoding/binary"
	"fmt"
)

// heap is a read-only view into one of the four ECMA-335 metadata heaps
// (#Strings, #Blob, #GUID, #US), backed directly by the mmap'd file.
type heap struct {
	data []byte
}

func (h heap) String(offset uint32) (string, error) {
	if int(offset) >= len(h.data) {
		return "", fmt.Errorf("string heap offset %d past end (%d bytes)", offset, len(h.data))
	}
	end := offset
	for end < uint32(len(h.data)) && h.data[end] != 0 {
		end++
	}
	if end >= uint32(len(h.data)) {
		return "", fmt.Errorf("string heap entry at %d is not NUL-terminated", offset)
	}
	return string(h.data[offset:end]), nil
}

// Blob decodes one length-prefixed blob entry per ECMA-335 II.24.2.4
// (compressed unsigned integer length prefix).
func (h heap) Blob(offset uint32) ([]byte, error) {
	if int(offset) >= len(h.data) {
		return nil, fmt.Errorf("blob heap offset %d past end (%d bytes)", offset, len(h.data))
	}
	n, consumed, err := decodeCompressedUint(h.data[offset:])
	if err != nil {
		return nil, err
	}
	start := int(offset) + consumed
	end := start + int(n)
	if end > len(h.data) {
		return nil, fmt.Errorf("blob heap entry at %d overruns heap (%d bytes requested, %d available)", offset, n, len(h.data)-start)
	}
	return h.data[start:end], nil
}

// GUID returns the 1-based #GUID heap entry at the given index.
func (h heap) GUID(index uint32) ([16]byte, error) {
	var out [16]byte
	if index == 0 {
		return out, nil
	}
	off := (index - 1) * 16
	if int(off)+16 > len(h.data) {
		return out, fmt.Errorf("guid heap index %d past end", index)
	}
	copy(out[:], h.data[off:off+16])
	return out, nil
}

// US returns the UTF-16 user-string heap entry (minus its trailing
// terminal byte) at the given offset.
func (h heap) US(offset uint32) ([]uint16, error) {
	if int(offset) >= len(h.data) {
		return nil, fmt.Errorf("us heap offset %d past end", offset)
	}
	n, consumed, err := decodeCompressedUint(h.data[offset:])
	if err != nil {
		return nil, err
	}
	start := int(offset) + consumed
	end := start + int(n)
	if end > len(h.data) || n == 0 {
		return nil, nil
	}
	// Last byte is a terminal marker, not part of the UTF-16 payload.
	payload := h.data[start : end-1]
	out := make([]uint16, len(payload)/2)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(payload[i*2:])
	}
	return out, nil
}

// decodeCompressedUint decodes an ECMA-335 II.23.2 compressed unsigned
// integer, returning the value and the number of bytes consumed.
func decodeCompressedUint(b []byte) (uint32, int, error) {
	if len(b) == 0 {
		return 0, 0, fmt.Errorf("compressed uint: empty input")
	}
	first := b[0]
	switch {
	case first&0x80 == 0:
		return uint32(first), 1, nil
	case first&0xC0 == 0x80:
		if len(b) < 2 {
			return 0, 0, fmt.Errorf("compressed uint: truncated 2-byte form")
		}
		return (uint32(first&0x3F) << 8) | uint32(b[1]), 2, nil
	case first&0xE0 == 0xC0:
		if len(b) < 4 {
			return 0, 0, fmt.Errorf("compressed uint: truncated 4-byte form")
		}
		v := (uint32(first&0x1F) << 24) | (uint32(b[1]) << 16) | (uint32(b[2]) << 8) | uint32(b[3])
		return v, 4, nil
	default:
		return 0, 0, fmt.Errorf("compressed uint: invalid lead byte 0x%x", first)
	}
}
