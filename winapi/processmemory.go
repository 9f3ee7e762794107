package winapi

import (
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/saferwall/weevil/memory"
)

// ProcessMemoryReader is a memory.Source backed by ReadProcessMemory
// against a live debuggee.
type ProcessMemoryReader struct {
	Process windows.Handle
}

// ReadMemory implements memory.Source. A failed or short read returns
// memory.ErrNotEnoughData wrapped together with the PlatformCallError.
func (r *ProcessMemoryReader) ReadMemory(addr uint64, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	if err := ReadProcessMemory(r.Process, addr, buf); err != nil {
		return fmt.Errorf("%w: %w", memory.ErrNotEnoughData, err)
	}
	return nil
}
