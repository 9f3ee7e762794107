package disasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNOPs(t *testing.T) {
	// 0x90 is a single-byte NOP, three in a row.
	code := []byte{0x90, 0x90, 0x90}
	insts, err := Decode(code, 0x1000, 3)
	require.NoError(t, err)
	require.Len(t, insts, 3)
	assert.Equal(t, uint64(0x1000), insts[0].IP)
	assert.Equal(t, uint64(0x1001), insts[1].IP)
	assert.Equal(t, uint64(0x1002), insts[2].IP)
}

func TestDecodeStopsAtRequestedCount(t *testing.T) {
	code := []byte{0x90, 0x90, 0x90, 0x90}
	insts, err := Decode(code, 0, 2)
	require.NoError(t, err)
	assert.Len(t, insts, 2)
}

func TestDecodeEmptyInputErrors(t *testing.T) {
	_, err := Decode(nil, 0, 1)
	assert.Error(t, err)
}

func TestInstructionStringPadsHexColumn(t *testing.T) {
	insts, err := Decode([]byte{0x90}, 0x2000, 1)
	require.NoError(t, err)
	require.Len(t, insts, 1)
	s := insts[0].String()
	assert.Contains(t, s, "0000000000002000")
	assert.Contains(t, s, "90")
}
