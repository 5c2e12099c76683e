package metadata

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCoded(t *testing.T) {
	// tag 0 -> tblTypeDef, row 5
	v := uint32(5)<<2 | 0
	tbl, row := decodeCoded(v, codedTypeDefOrRef)
	assert.Equal(t, tblTypeDef, tbl)
	assert.Equal(t, uint32(5), row)

	// tag 1 -> tblTypeRef, row 3
	v = uint32(3)<<2 | 1
	tbl, row = decodeCoded(v, codedTypeDefOrRef)
	assert.Equal(t, tblTypeRef, tbl)
	assert.Equal(t, uint32(3), row)

	// tag 2 is the unused sentinel slot for TypeDefOrRef.
	v = uint32(7)<<2 | 2
	tbl, row = decodeCoded(v, codedTypeDefOrRef)
	assert.Equal(t, table(0xFF), tbl)
	assert.Equal(t, uint32(7), row)
}

func TestTableIdxSize(t *testing.T) {
	ts := &tableStream{}
	ts.rowCounts[tblTypeDef] = 10
	assert.Equal(t, 2, ts.tableIdxSize(tblTypeDef))

	ts.rowCounts[tblTypeDef] = 0x10000
	assert.Equal(t, 4, ts.tableIdxSize(tblTypeDef))
}

func TestHeapIdxSize(t *testing.T) {
	ts := &tableStream{}
	assert.Equal(t, 2, ts.heapIdxSize(false))
	assert.Equal(t, 4, ts.heapIdxSize(true))
}

func TestCodedIdxSize(t *testing.T) {
	ts := &tableStream{}
	ts.rowCounts[tblTypeDef] = 100
	ts.rowCounts[tblTypeRef] = 100
	assert.Equal(t, 2, ts.codedIdxSize(codedTypeDefOrRef))

	ts.rowCounts[tblTypeRef] = 0x10000
	assert.Equal(t, 4, ts.codedIdxSize(codedTypeDefOrRef))
}

// buildModuleOnlyStream assembles a minimal #~ stream containing exactly one
// Module table row, narrow heap indexes throughout.
func buildModuleOnlyStream(nameOff uint16) []byte {
	const (
		headerLen = 24
		rowCount  = 4
		moduleRow = 2 + 2 + 2*3 // Generation + Name(str) + Mvid/EncId/EncBaseId(guid) narrow
	)
	data := make([]byte, headerLen+rowCount+moduleRow)
	// data[0:4] reserved, data[4] major, data[5] minor, data[6] heapSizes=0 (narrow).
	data[6] = 0
	data[7] = 1
	valid := uint64(1) << uint(tblModule) // only Module table present
	binary.LittleEndian.PutUint64(data[8:16], valid)
	binary.LittleEndian.PutUint32(data[headerLen:], 1) // 1 row
	rowStart := headerLen + rowCount
	binary.LittleEndian.PutUint16(data[rowStart+2:], nameOff) // Name column
	return data
}

func TestParseTableStream(t *testing.T) {
	data := buildModuleOnlyStream(7)
	ts, err := parseTableStream(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), ts.rowCounts[tblModule])
	assert.False(t, ts.wideString)

	row, err := ts.row(tblModule, 1)
	require.NoError(t, err)
	nameOff := readIdx(row, 2, ts.heapIdxSize(ts.wideString))
	assert.Equal(t, uint32(7), nameOff)
}

func TestParseTableStreamShortHeader(t *testing.T) {
	_, err := parseTableStream(make([]byte, 10))
	assert.Error(t, err)
}

func TestTableStreamRowOutOfRange(t *testing.T) {
	data := buildModuleOnlyStream(0)
	ts, err := parseTableStream(data)
	require.NoError(t, err)
	_, err = ts.row(tblModule, 2)
	assert.Error(t, err)
	_, err = ts.row(tblModule, 0)
	assert.Error(t, err)
}
