package stack

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferwall/weevil/memory"
	"github.com/saferwall/weevil/pe"
)

// noModules never finds a module, forcing every frame through the
// leaf-function fallback ([RSP] is the return address).
type noModules struct{}

func (noModules) ModuleContaining(addr uint64) (*pe.Image, bool) { return nil, false }

func TestWalkLeafFallbackChainsUntilSentinelRIP(t *testing.T) {
	// A stack where each frame's [RSP] holds the next return address,
	// terminating at a zero return address (top of stack).
	data := make([]byte, 64)
	binary.LittleEndian.PutUint64(data[0:], 0x2000) // at RSP=0x1000
	binary.LittleEndian.PutUint64(data[8:], 0x3000) // at RSP=0x1008
	binary.LittleEndian.PutUint64(data[16:], 0)      // at RSP=0x1010: top of stack
	src := &memory.ByteSource{Base: 0x1000, Data: data}

	start := Frame{RIP: 0x1111, RSP: 0x1000}
	frames, err := Walk(start, noModules{}, src, 16)
	require.NoError(t, err)

	require.Len(t, frames, 3)
	assert.Equal(t, uint64(0x1111), frames[0].RIP)
	assert.Equal(t, uint64(0x2000), frames[1].RIP)
	assert.Equal(t, uint64(0x3000), frames[2].RIP)
}

func TestWalkStopsAtMaxFramesOnUnterminatedChain(t *testing.T) {
	// Every [RSP] slot points at RSP+8, an infinite chain that never hits
	// a zero RIP; Walk must still terminate, bounded by maxFrames.
	data := make([]byte, 256)
	for i := 0; i+8 <= len(data); i += 8 {
		binary.LittleEndian.PutUint64(data[i:], 0xAAAA)
	}
	src := &memory.ByteSource{Base: 0x1000, Data: data}

	start := Frame{RIP: 0x1111, RSP: 0x1000}
	frames, err := Walk(start, noModules{}, src, 5)
	require.NoError(t, err)
	assert.Len(t, frames, 5, "Walk must stop at maxFrames even with no terminating zero RIP")
}

func TestWalkReturnsPartialFramesOnReadError(t *testing.T) {
	// RSP points just past the end of the fake source's backing data, so
	// popReturnAddress fails immediately on the second frame.
	src := &memory.ByteSource{Base: 0x1000, Data: make([]byte, 4)}

	start := Frame{RIP: 0x1111, RSP: 0x1000}
	frames, err := Walk(start, noModules{}, src, 16)
	require.Error(t, err)
	require.Len(t, frames, 1, "the starting frame is still returned alongside the error")
	assert.Equal(t, uint64(0x1111), frames[0].RIP)
}
