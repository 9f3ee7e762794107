// Package breakpoint implements the hardware breakpoint manager: up to
// four simultaneous DR0-DR3 execution breakpoints per debuggee, grounded
// on the original's src/breakpoints.rs.
package breakpoint

import "fmt"

// MaxBreakpoints is the number of hardware debug-address registers
// (DR0-DR3) available on x86-64.
const MaxBreakpoints = 4

// ErrNoFreeSlot is returned by Add when all four DR slots are occupied.
var ErrNoFreeSlot = fmt.Errorf("weevil/breakpoint: no free debug register slot")

// ErrUnknownID is returned by Clear for an id not currently set.
var ErrUnknownID = fmt.Errorf("weevil/breakpoint: unknown breakpoint id")

// breakpoint is one occupied slot.
type breakpoint struct {
	addr uint64
}

// Manager tracks which of the four hardware breakpoint slots are
// occupied and by which address, mirroring the original's
// BreakpointManager{breakpoints: [Option<Breakpoint>; 4]}. A slot's id
// is its array index: that index is the stable external identifier
// (Clear takes it, List reports it, and it is what DR6 bit i and
// Exception{breakpoint=Some(i)} agree on), exactly as the original's
// clear_breakpoint(id){ breakpoints[id] = None } assumes.
type Manager struct {
	slots [MaxBreakpoints]*breakpoint
}

// New returns an empty breakpoint manager.
func New() *Manager { return &Manager{} }

// Add reserves the first free slot for addr and returns its index, the
// id Clear and WasHit take.
func (m *Manager) Add(addr uint64) (int, error) {
	for i := range m.slots {
		if m.slots[i] == nil {
			m.slots[i] = &breakpoint{addr: addr}
			return i, nil
		}
	}
	return 0, ErrNoFreeSlot
}

// Clear releases slot id, freeing it for reuse.
func (m *Manager) Clear(id int) error {
	if id < 0 || id >= MaxBreakpoints || m.slots[id] == nil {
		return ErrUnknownID
	}
	m.slots[id] = nil
	return nil
}

// Breakpoint is a read-only view of one set breakpoint, for listing. ID
// is the slot's array index.
type Breakpoint struct {
	ID   int
	Addr uint64
}

// List returns every currently set breakpoint, ID carrying its slot
// index so callers can test DR6 bit ID directly against it.
func (m *Manager) List() []Breakpoint {
	var out []Breakpoint
	for i, b := range m.slots {
		if b != nil {
			out = append(out, Breakpoint{ID: i, Addr: b.addr})
		}
	}
	return out
}

// Count returns how many of the four slots are occupied.
func (m *Manager) Count() int {
	n := 0
	for _, b := range m.slots {
		if b != nil {
			n++
		}
	}
	return n
}
