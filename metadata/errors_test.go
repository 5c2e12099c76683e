package metadata

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadataCorruptErrorMessage(t *testing.T) {
	e := &MetadataCorruptError{Reason: "bad row count"}
	assert.Equal(t, "metadata: corrupt: bad row count", e.Error())

	wrapped := errors.New("boom")
	e2 := &MetadataCorruptError{Reason: "reading row", Err: wrapped}
	assert.Equal(t, "metadata: corrupt: reading row: boom", e2.Error())
	assert.ErrorIs(t, e2, wrapped)
}
