package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferwall/weevil/memory"
)

func slot(codeOffset, op, opInfo uint8) uint16 {
	return uint16(codeOffset) | uint16(op)<<8 | uint16(opInfo)<<12
}

func TestDecodeOpsPushNonVolatile(t *testing.T) {
	// push rbx at offset 1
	ops, err := DecodeOps([]uint16{slot(1, uwopPushNonvol, uint8(RBX))}, 0, 0)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, OpPushNonVolatile, ops[0].Kind)
	assert.Equal(t, RBX, ops[0].Reg)
}

func TestDecodeOpsAllocLargeScalesBy8(t *testing.T) {
	ops, err := DecodeOps([]uint16{slot(4, uwopAllocLarge, 0), 0x0010}, 0, 0)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, OpAlloc, ops[0].Kind)
	assert.Equal(t, uint32(0x10*8), ops[0].Size, "op_info 0 alloc-large is a single scaled-by-8 slot")
}

func TestDecodeOpsAllocSmallScalesBy8(t *testing.T) {
	ops, err := DecodeOps([]uint16{slot(2, uwopAllocSmall, 3)}, 0, 0)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, uint32(3*8+8), ops[0].Size)
}

func TestDecodeOpsSaveNonVolatileOffsetIsNotScaled(t *testing.T) {
	// This is the behavior fixed against the original Rust source: the
	// SAVE_NONVOL slot value is already a byte offset, unlike ALLOC ops.
	ops, err := DecodeOps([]uint16{slot(6, uwopSaveNonvol, uint8(RSI)), 0x0020}, 0, 0)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, OpSaveNonVolatile, ops[0].Kind)
	assert.Equal(t, RSI, ops[0].Reg)
	assert.Equal(t, uint32(0x0020), ops[0].Offset, "SAVE_NONVOL offset must be used as-is, never multiplied by 8")
}

func TestDecodeOpsSaveNonVolatileFarOffsetIsNotScaled(t *testing.T) {
	ops, err := DecodeOps([]uint16{slot(6, uwopSaveNonvolFar, uint8(RDI)), 0x1234, 0x0001}, 0, 0)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, uint32(0x00011234), ops[0].Offset)
}

func TestDecodeOpsSetFpreg(t *testing.T) {
	ops, err := DecodeOps([]uint16{slot(0, uwopSetFpreg, 0)}, uint8(RBP), 2)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, RBP, ops[0].FrameReg)
	assert.EqualValues(t, 2, ops[0].FrameOff)
}

func TestDecodeOpsIncompleteTrailingSlot(t *testing.T) {
	_, err := DecodeOps([]uint16{slot(4, uwopAllocLarge, 0)}, 0, 0)
	require.Error(t, err)
	var incomplete *IncompleteOpError
	assert.ErrorAs(t, err, &incomplete)
}

func TestDecodeOpsUnknownOpcode(t *testing.T) {
	_, err := DecodeOps([]uint16{slot(0, 0xF, 0)}, 0, 0)
	require.Error(t, err)
	var unknown *UnknownOpError
	assert.ErrorAs(t, err, &unknown)
}

func TestApplyAllSkipsOpsNotYetExecuted(t *testing.T) {
	// funcAddress=0x1000, RIP=0x1002 -> funcOffset=2; an alloc op recorded
	// at code offset 4 (later in the prologue) must not yet apply.
	ops := []Op{
		{CodeOffset: 1, Kind: OpAlloc, Size: 0x20},
		{CodeOffset: 4, Kind: OpAlloc, Size: 0x40},
	}
	frame := &Frame{RIP: 0x1002, RSP: 0x7000}
	src := &memory.ByteSource{Base: 0, Data: nil}
	require.NoError(t, ApplyAll(ops, frame, 0x1000, src))
	assert.Equal(t, uint64(0x7000+0x20), frame.RSP, "only the op at offset <= funcOffset applies")
}

func TestApplyAllPushNonVolatileReadsAndAdvancesRSP(t *testing.T) {
	data := make([]byte, 64)
	// little-endian uint64 at offset 0
	for i, b := range []byte{0xEF, 0xBE, 0xAD, 0xDE, 0, 0, 0, 0} {
		data[i] = b
	}
	src := &memory.ByteSource{Base: 0x7000, Data: data}
	frame := &Frame{RIP: 0x1001, RSP: 0x7000}
	ops := []Op{{CodeOffset: 0, Kind: OpPushNonVolatile, Reg: RBX}}

	require.NoError(t, ApplyAll(ops, frame, 0x1000, src))
	assert.Equal(t, uint64(0xDEADBEEF), frame.Get(RBX))
	assert.Equal(t, uint64(0x7008), frame.RSP)
}

func TestApplyAllSetFpregRebasesRSPFromFrameRegister(t *testing.T) {
	frame := &Frame{RIP: 0x1001, RSP: 0}
	frame.Set(RBP, 0x8000)
	ops := []Op{{CodeOffset: 0, Kind: OpSetFpreg, FrameReg: RBP, FrameOff: 0x10}}

	src := &memory.ByteSource{}
	require.NoError(t, ApplyAll(ops, frame, 0x1000, src))
	assert.Equal(t, uint64(0x8000-0x10), frame.RSP)
}
