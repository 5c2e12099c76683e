package metadata

import (
	"encoding/binary"
	"fmt"
)

// table identifies one of the 38 possible ECMA-335 II.22 metadata tables by
// its table-stream index. Only the subset Win32 metadata actually
// populates is decoded by this reader.
type table byte

const (
	tblModule        table = 0x00
	tblTypeRef       table = 0x01
	tblTypeDef       table = 0x02
	tblField         table = 0x04
	tblMethodDef     table = 0x06
	tblParam         table = 0x08
	tblInterfaceImpl table = 0x09
	tblMemberRef     table = 0x0A
	tblConstant      table = 0x0B
	tblCustomAttr    table = 0x0C
	tblClassLayout   table = 0x0F
	tblFieldLayout   table = 0x10
	tblModuleRef     table = 0x1A
	tblImplMap       table = 0x1C
	tblNestedClass   table = 0x29
	tblGenericParam  table = 0x2A
	numTables              = 64
)

// codedIndexSpec describes one ECMA-335 II.24.2.6 coded-index encoding:
// the tag-bit width and the ordered list of tables it may reference.
type codedIndexSpec struct {
	tagBits int
	tables  []table // index i is the table for tag value i; -1 (255) means "unused"
}

var (
	codedTypeDefOrRef = codedIndexSpec{2, []table{tblTypeDef, tblTypeRef, 0xFF}}
	codedHasConstant  = codedIndexSpec{2, []table{tblField, tblParam, 0xFF}}
	// HasCustomAttribute, ECMA-335 II.24.2.6, tag width 5.
	codedHasCustomAttr = codedIndexSpec{5, []table{
		tblMethodDef, tblField, tblTypeRef, tblTypeDef, tblParam, tblInterfaceImpl, tblMemberRef, tblModule,
		0xFF, 0xFF, 0xFF, 0xFF, tblModuleRef, 0xFF, 0xFF, 0xFF,
		0xFF, 0xFF, 0xFF, tblGenericParam, 0xFF, 0xFF,
	}}
	// CustomAttributeType, ECMA-335 II.24.2.6, tag width 3.
	codedCustomAttrType = codedIndexSpec{3, []table{0xFF, 0xFF, tblMethodDef, tblMemberRef, 0xFF, 0xFF, 0xFF, 0xFF}}
	// MemberRefParent, ECMA-335 II.24.2.6, tag width 3.
	codedMemberRefParent = codedIndexSpec{3, []table{tblTypeDef, tblTypeRef, tblModuleRef, tblMethodDef, 0xFF}}
	codedMemberForward   = codedIndexSpec{1, []table{tblField, tblMethodDef}}
)

// streams holds parsed byte-range views of the metadata root's streams,
// per ECMA-335 II.24.2.
type streams struct {
	strings heap
	blob    heap
	guid    heap
	us      heap
	tables  *tableStream
}

// tableStream decodes the #~ stream header (row counts, heap-size flags)
// and computes each table's per-row byte width so rows can be located by
// index without a separate pass over the file — the "random access" half
// of the Metadata Index.
type tableStream struct {
	data       []byte
	rowCounts  [numTables]uint32
	rowOffsets [numTables]int // byte offset of row 0 within data
	rowSizes   [numTables]int
	wideString bool
	wideGUID   bool
	wideBlob   bool
}

func parseTableStream(data []byte) (*tableStream, error) {
	if len(data) < 24 {
		return nil, &MetadataCorruptError{Reason: "#~ stream shorter than fixed header"}
	}
	heapSizes := data[6]
	ts := &tableStream{
		data:       data,
		wideString: heapSizes&0x01 != 0,
		wideGUID:   heapSizes&0x02 != 0,
		wideBlob:   heapSizes&0x04 != 0,
	}
	valid := binary.LittleEndian.Uint64(data[8:16])
	off := 24
	for t := 0; t < numTables; t++ {
		if valid&(1<<uint(t)) == 0 {
			continue
		}
		if off+4 > len(data) {
			return nil, &MetadataCorruptError{Reason: fmt.Sprintf("row count for table %#x past end of #~ stream", t)}
		}
		ts.rowCounts[t] = binary.LittleEndian.Uint32(data[off:])
		off += 4
	}
	rowStart := off
	for t := 0; t < numTables; t++ {
		if ts.rowCounts[t] == 0 {
			continue
		}
		size, err := ts.computeRowSize(table(t))
		if err != nil {
			return nil, err
		}
		ts.rowSizes[t] = size
		ts.rowOffsets[t] = rowStart
		rowStart += size * int(ts.rowCounts[t])
		if rowStart > len(data) {
			return nil, &MetadataCorruptError{Reason: fmt.Sprintf("table %#x rows overrun #~ stream", t)}
		}
	}
	return ts, nil
}

func (ts *tableStream) heapIdxSize(wide bool) int {
	if wide {
		return 4
	}
	return 2
}

func (ts *tableStream) tableIdxSize(t table) int {
	if ts.rowCounts[t] > 0xFFFF {
		return 4
	}
	return 2
}

func (ts *tableStream) codedIdxSize(spec codedIndexSpec) int {
	maxRows := uint32(0)
	for _, t := range spec.tables {
		if t == 0xFF {
			continue
		}
		if ts.rowCounts[t] > maxRows {
			maxRows = ts.rowCounts[t]
		}
	}
	if maxRows > (1<<uint(16-spec.tagBits))-1 {
		return 4
	}
	return 2
}

// computeRowSize returns the byte width of one row of table t, given the
// already-known heap-index and table-index widths. Only the tables listed
// below are sized; any other table present in the stream is rejected with
// a MetadataCorruptError.
func (ts *tableStream) computeRowSize(t table) (int, error) {
	str := ts.heapIdxSize(ts.wideString)
	blob := ts.heapIdxSize(ts.wideBlob)
	guid := ts.heapIdxSize(ts.wideGUID)
	switch t {
	case tblModule:
		return 2 + str + guid*3, nil
	case tblTypeRef:
		return ts.codedIdxSize(codedIndexSpec{2, []table{tblModule, tblModuleRef, tblTypeRef, 0xFF}}) + str*2, nil
	case tblTypeDef:
		return 4 + str*2 + ts.codedIdxSize(codedTypeDefOrRef) + ts.tableIdxSize(tblField) + ts.tableIdxSize(tblMethodDef), nil
	case tblField:
		return 2 + str + blob, nil
	case tblMethodDef:
		return 4 + 2 + 2 + str + blob + ts.tableIdxSize(tblParam), nil
	case tblParam:
		return 2 + 2 + str, nil
	case tblInterfaceImpl:
		return ts.tableIdxSize(tblTypeDef) + ts.codedIdxSize(codedTypeDefOrRef), nil
	case tblMemberRef:
		return ts.codedIdxSize(codedMemberRefParent) + str + blob, nil
	case tblConstant:
		return 1 + 1 + ts.codedIdxSize(codedHasConstant) + blob, nil
	case tblCustomAttr:
		return ts.codedIdxSize(codedHasCustomAttr) + ts.codedIdxSize(codedCustomAttrType) + blob, nil
	case tblClassLayout:
		return 2 + 4 + ts.tableIdxSize(tblTypeDef), nil
	case tblFieldLayout:
		return 4 + ts.tableIdxSize(tblField), nil
	case tblModuleRef:
		return str, nil
	case tblImplMap:
		return 2 + ts.codedIdxSize(codedMemberForward) + str + ts.tableIdxSize(tblModuleRef), nil
	case tblNestedClass:
		return ts.tableIdxSize(tblTypeDef) * 2, nil
	case tblGenericParam:
		return 2 + 2 + ts.codedIdxSize(codedTypeDefOrRef) + str, nil
	default:
		return 0, &MetadataCorruptError{Reason: fmt.Sprintf("unsupported table %#x present in metadata", t)}
	}
}

func (ts *tableStream) row(t table, rowIndex1Based uint32) ([]byte, error) {
	if rowIndex1Based == 0 || rowIndex1Based > ts.rowCounts[t] {
		return nil, fmt.Errorf("table %#x row %d out of range (count %d)", t, rowIndex1Based, ts.rowCounts[t])
	}
	size := ts.rowSizes[t]
	start := ts.rowOffsets[t] + int(rowIndex1Based-1)*size
	if start+size > len(ts.data) {
		return nil, &MetadataCorruptError{Reason: fmt.Sprintf("table %#x row %d overruns stream", t, rowIndex1Based)}
	}
	return ts.data[start : start+size], nil
}

func readU16(b []byte, off int) uint16 { return binary.LittleEndian.Uint16(b[off:]) }
func readU32(b []byte, off int) uint32 { return binary.LittleEndian.Uint32(b[off:]) }

func readIdx(b []byte, off, size int) uint32 {
	if size == 2 {
		return uint32(readU16(b, off))
	}
	return readU32(b, off)
}

// decodeCoded splits a coded-index value into its target table and
// 1-based row index.
func decodeCoded(v uint32, spec codedIndexSpec) (table, uint32) {
	tagMask := uint32(1)<<uint(spec.tagBits) - 1
	tag := v & tagMask
	row := v >> uint(spec.tagBits)
	if int(tag) >= len(spec.tables) {
		return 0xFF, 0
	}
	return spec.tables[tag], row
}
