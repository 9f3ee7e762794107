package breakpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerAddRespectsSlotCapacity(t *testing.T) {
	m := New()
	for i := 0; i < MaxBreakpoints; i++ {
		id, err := m.Add(uint64(0x1000 + i))
		require.NoError(t, err)
		assert.Equal(t, i, id)
	}

	_, err := m.Add(0x2000)
	assert.ErrorIs(t, err, ErrNoFreeSlot)
	assert.Equal(t, MaxBreakpoints, m.Count())
}

func TestManagerClearFreesSlotForReuse(t *testing.T) {
	m := New()
	for i := 0; i < MaxBreakpoints; i++ {
		_, err := m.Add(uint64(0x1000 + i))
		require.NoError(t, err)
	}

	require.NoError(t, m.Clear(1))
	assert.Equal(t, MaxBreakpoints-1, m.Count())

	id, err := m.Add(0x9999)
	require.NoError(t, err)
	assert.Equal(t, 1, id, "a freed slot's index is reused as the next id, per spec: slot-id = array index")
}

func TestManagerClearUnknownID(t *testing.T) {
	m := New()
	assert.ErrorIs(t, m.Clear(42), ErrUnknownID)
}

func TestManagerApplyProgramsDR7(t *testing.T) {
	m := New()
	id0, err := m.Add(0xDEADBEEF)
	require.NoError(t, err)
	_, err = m.Add(0xCAFEBABE)
	require.NoError(t, err)

	var dr DebugRegisters
	m.Apply(&dr)

	assert.Equal(t, uint64(0xDEADBEEF), dr.DR0)
	assert.Equal(t, uint64(0xCAFEBABE), dr.DR1)
	assert.NotZero(t, dr.DR7&(1<<0), "slot 0 local-enable bit must be set")
	assert.NotZero(t, dr.DR7&(1<<2), "slot 1 local-enable bit must be set")
	assert.Zero(t, dr.DR7&(1<<4), "slot 2 is unoccupied, its enable bit stays clear")
	assert.Zero(t, dr.DR7&(0xF<<16), "slot 0 RW/LEN field is execute/1-byte (all zero)")

	require.NoError(t, m.Clear(id0))
	m.Apply(&dr)
	assert.Zero(t, dr.DR7&(1<<0), "clearing a slot must clear its local-enable bit")
}

func TestWasHitCanonicalDecode(t *testing.T) {
	tests := []struct {
		name string
		dr6  uint64
		idx  int
		want bool
	}{
		{"slot 0 hit", 0b0001, 0, true},
		{"slot 0 not hit", 0b0010, 0, false},
		{"slot 1 hit", 0b0010, 1, true},
		{"slot 2 hit", 0b0100, 2, true},
		{"slot 3 hit", 0b1000, 3, true},
		{"slot 3 not hit when only slot 0 set", 0b0001, 3, false},
		{"multiple slots hit simultaneously, slot 1 queried", 0b1011, 1, true},
		{"multiple slots hit simultaneously, slot 2 queried", 0b1011, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WasHit(tt.dr6, tt.idx))
		})
	}
}

func TestSetResumeFlagSetsBit16Only(t *testing.T) {
	got := SetResumeFlag(0)
	assert.Equal(t, uint32(1<<16), got)

	// Setting it again on an already-set value must be idempotent.
	assert.Equal(t, got, SetResumeFlag(got))
}
