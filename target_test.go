package relo

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/relo/internal/common"
)

func TestBufAlignment(t *testing.T) {
	b := NewBuf()
	one := byte(1)
	pos := b.Write(unsafe.Pointer(&one), 1, 1)
	assert.Equal(t, Offset(0), pos)

	v := uint64(0xDEADBEEF)
	pos = b.Write(unsafe.Pointer(&v), 8, 8)
	assert.Equal(t, Offset(8), pos, "write must pad up to the element alignment")
	assert.Equal(t, 16, b.Len())
	assert.Equal(t, v, common.Word(b.Bytes(), 8))

	// Padding bytes are zero.
	for _, pb := range b.Bytes()[1:8] {
		assert.Equal(t, byte(0), pb)
	}
}

func TestBufPatch(t *testing.T) {
	b := NewBuf()
	v := uint64(0)
	pos := b.Write(unsafe.Pointer(&v), 8, 8)
	b.PatchUint64(pos, uint64(NullOffset))
	assert.Equal(t, uint64(NullOffset), common.Word(b.Bytes(), uint64(pos)))

	b.PatchByte(pos, 7)
	assert.Equal(t, byte(7), b.Bytes()[pos])
	require.NoError(t, b.Err())
}

func TestBufReset(t *testing.T) {
	b := NewBufSize(128)
	v := uint64(1)
	b.Write(unsafe.Pointer(&v), 8, 8)
	require.Equal(t, 8, b.Len())
	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Bytes())
}
