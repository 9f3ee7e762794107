package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadValueLittleEndian(t *testing.T) {
	src := &ByteSource{Base: 0x1000, Data: []byte{0x78, 0x56, 0x34, 0x12}}
	v, err := ReadValue[uint32](src, 0x1000)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), v)
}

func TestReadValuePastEndOfDataFails(t *testing.T) {
	src := &ByteSource{Base: 0x1000, Data: []byte{0x01, 0x02}}
	_, err := ReadValue[uint32](src, 0x1000)
	assert.ErrorIs(t, err, ErrNotEnoughData)
}

func TestReadValueBeforeBaseFails(t *testing.T) {
	src := &ByteSource{Base: 0x1000, Data: []byte{0, 0, 0, 0}}
	_, err := ReadValue[uint32](src, 0x0FFF)
	assert.ErrorIs(t, err, ErrNotEnoughData)
}

func TestReadArrayDecodesEachElement(t *testing.T) {
	src := &ByteSource{Base: 0, Data: []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}}
	vals, err := ReadArray[uint32](src, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3}, vals)
}

func TestReadArrayPartialStopsAtFirstShortElement(t *testing.T) {
	// Only two full uint32s fit; a third is truncated.
	src := &ByteSource{Base: 0, Data: []byte{1, 0, 0, 0, 2, 0, 0, 0, 0xFF}}
	vals, err := ReadArrayPartial[uint32](src, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2}, vals, "a truncated trailing element must not fail the whole table")
}

func TestReadArrayPartialFailsWhenFirstElementUnreadable(t *testing.T) {
	src := &ByteSource{Base: 0, Data: nil}
	_, err := ReadArrayPartial[uint32](src, 0, 3)
	assert.ErrorIs(t, err, ErrNotEnoughData)
}

func TestReadSparseMarksUnreadableBytes(t *testing.T) {
	src := &ByteSource{Base: 0x1000, Data: []byte{0xAA, 0xBB}}
	buf, ok := ReadSparse(src, 0x1000, 4)
	require.Len(t, buf, 4)
	require.Len(t, ok, 4)
	assert.True(t, ok[0])
	assert.True(t, ok[1])
	assert.False(t, ok[2])
	assert.False(t, ok[3])
	assert.Equal(t, byte(0xAA), buf[0])
	assert.Equal(t, byte(0xBB), buf[1])
}

func TestReadCStringStopsAtNUL(t *testing.T) {
	src := &ByteSource{Base: 0, Data: append([]byte("hello"), 0, 'X', 'X')}
	s, err := ReadCString(src, 0, 8)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
}

func TestReadCStringNoNULWithinMaxFails(t *testing.T) {
	src := &ByteSource{Base: 0, Data: []byte("no-terminator")}
	_, err := ReadCString(src, 0, 4)
	assert.ErrorIs(t, err, ErrNotEnoughData)
}

func TestReadWideStringRoundTrip(t *testing.T) {
	// "Hi" as NUL-terminated UTF-16LE.
	data := []byte{'H', 0, 'i', 0, 0, 0}
	src := &ByteSource{Base: 0, Data: data}
	s, err := ReadWideString(src, 0, len(data))
	require.NoError(t, err)
	assert.Equal(t, "Hi", s)
}
