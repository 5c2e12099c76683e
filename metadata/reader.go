package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

var metadataRootSig = []byte{'B', 'S', 'J', 'B'}

// openRoot locates and parses the ECMA-335 metadata root (II.24.2.1) inside
// the mmap'd .winmd file. Win32 metadata files are thin single-module PE
// images; rather than walk the full PE/CLI header chain, the root is found
// by its "BSJB" signature, which is unique within a well-formed metadata
// file and considerably cheaper to implement than a full PE loader for a
// reader whose only job is serving this generator's lookups.
func openRoot(data []byte) (*streams, error) {
	sigAt := bytes.Index(data, metadataRootSig)
	if sigAt < 0 {
		return nil, &MetadataCorruptError{Reason: "no BSJB metadata root signature found"}
	}
	root := data[sigAt:]
	if len(root) < 16 {
		return nil, &MetadataCorruptError{Reason: "metadata root truncated before version length"}
	}
	versionLen := binary.LittleEndian.Uint32(root[12:16])
	headerLen := 16 + int(versionLen)
	if headerLen+4 > len(root) {
		return nil, &MetadataCorruptError{Reason: "metadata root truncated at stream count"}
	}
	numStreams := int(binary.LittleEndian.Uint16(root[headerLen+2:]))
	off := headerLen + 4

	var st streams
	for i := 0; i < numStreams; i++ {
		if off+8 > len(root) {
			return nil, &MetadataCorruptError{Reason: "stream header truncated"}
		}
		streamOffset := binary.LittleEndian.Uint32(root[off:])
		streamSize := binary.LittleEndian.Uint32(root[off+4:])
		off += 8
		nameStart := off
		nameEnd := bytes.IndexByte(root[nameStart:], 0)
		if nameEnd < 0 {
			return nil, &MetadataCorruptError{Reason: "stream name not NUL-terminated"}
		}
		name := string(root[nameStart : nameStart+nameEnd])
		// Stream names are padded to a 4-byte boundary.
		consumed := nameEnd + 1
		consumed = (consumed + 3) &^ 3
		off = nameStart + consumed

		if int(streamOffset)+int(streamSize) > len(root) {
			return nil, &MetadataCorruptError{Reason: fmt.Sprintf("stream %q out of bounds", name)}
		}
		body := root[streamOffset : streamOffset+streamSize]
		switch name {
		case "#~", "#-":
			ts, err := parseTableStream(body)
			if err != nil {
				return nil, err
			}
			st.tables = ts
		case "#Strings":
			st.strings = heap{body}
		case "#Blob":
			st.blob = heap{body}
		case "#GUID":
			st.guid = heap{body}
		case "#US":
			st.us = heap{body}
		}
	}
	if st.tables == nil {
		return nil, &MetadataCorruptError{Reason: "metadata root has no #~/#- table stream"}
	}
	return &st, nil
}

// mappedFile owns the memory-mapped backing store for one Index.
type mappedFile struct {
	f *os.File
	m mmap.MMap
}

func openMapped(path string) (*mappedFile, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return &mappedFile{f: f, m: m}, []byte(m), nil
}

func (mf *mappedFile) Close() error {
	var err error
	if mf.m != nil {
		err = mf.m.Unmap()
	}
	if cerr := mf.f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
