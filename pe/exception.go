package pe

import (
	"sort"

	"github.com/saferwall/weevil/memory"
)

// RuntimeFunction is IMAGE_RUNTIME_FUNCTION_ENTRY (x64), one entry of
// the .pdata directory, named as saferwall/pe's exception.go names it.
type RuntimeFunction struct {
	BeginAddress    uint32
	EndAddress      uint32
	UnwindInfoAddress uint32
}

// RuntimeFunctions reads the full x64 exception directory (.pdata): a
// sorted-by-BeginAddress array of RUNTIME_FUNCTION entries.
func (img *Image) RuntimeFunctions() ([]RuntimeFunction, error) {
	dir := img.DataDirectory(ImageDirectoryEntryException)
	if dir.VirtualAddress == 0 || dir.Size == 0 {
		return nil, nil
	}
	count := int(dir.Size) / 12 // sizeof(RUNTIME_FUNCTION)
	// Best-effort: a truncated .pdata directory still yields every
	// RUNTIME_FUNCTION entry preceding the truncation.
	return memory.ReadArrayPartial[RuntimeFunction](img.src, img.rvaToAddr(dir.VirtualAddress), count)
}

// FindRuntimeFunction binary-searches fns (assumed sorted by
// BeginAddress, as the linker emits .pdata) for the entry covering rva,
// mirroring the original's find_runtime_function: an exact hit returns
// that entry; otherwise the search lands on the first entry whose
// BeginAddress is greater than rva and falls back one position, since
// the target function's epilogue-relative RVA can land strictly inside
// the function's range without matching BeginAddress exactly.
func FindRuntimeFunction(fns []RuntimeFunction, rva uint32) (RuntimeFunction, bool) {
	if len(fns) == 0 {
		return RuntimeFunction{}, false
	}
	i := sort.Search(len(fns), func(i int) bool { return fns[i].BeginAddress > rva })
	if i > 0 {
		i--
	}
	fn := fns[i]
	if rva >= fn.BeginAddress && rva < fn.EndAddress {
		return fn, true
	}
	return RuntimeFunction{}, false
}
