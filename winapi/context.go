package winapi

import "unsafe"

// Context mirrors the x86-64 Win32 CONTEXT structure (winnt.h). The real
// structure must be 16-byte aligned; NewAlignedContext hands out a
// 16-byte-aligned Context carved from an over-allocated block, the way
// the original program's AlignedContext newtype does with
// repr(align(16)).
type Context struct {
	P1Home uint64
	P2Home uint64
	P3Home uint64
	P4Home uint64
	P5Home uint64
	P6Home uint64

	ContextFlags uint32
	MxCsr        uint32

	SegCs uint16
	SegDs uint16
	SegEs uint16
	SegFs uint16
	SegGs uint16
	SegSs uint16
	EFlags uint32

	Dr0 uint64
	Dr1 uint64
	Dr2 uint64
	Dr3 uint64
	Dr6 uint64
	Dr7 uint64

	Rax uint64
	Rcx uint64
	Rdx uint64
	Rbx uint64
	Rsp uint64
	Rbp uint64
	Rsi uint64
	Rdi uint64
	R8  uint64
	R9  uint64
	R10 uint64
	R11 uint64
	R12 uint64
	R13 uint64
	R14 uint64
	R15 uint64

	Rip uint64

	FltSave [512]byte // XSAVE legacy area, opaque to this debugger

	VectorRegister [26][16]byte
	VectorControl  uint64

	DebugControl         uint64
	LastBranchToRip      uint64
	LastBranchFromRip    uint64
	LastExceptionToRip   uint64
	LastExceptionFromRip uint64
}

// ContextAllX86 requests the full general-purpose, control, segment, and
// debug register sets — the flag combination the original always passes
// to Get/SetThreadContext.
const ContextAllX86 = 0x00100000 | 0x1 | 0x2 | 0x4 | 0x8 | 0x10

// alignedContextBlock over-allocates so an aligned Context can be carved
// out of it, mirroring the original's hand-rolled 16-byte alignment.
type alignedContextBlock struct {
	_   [16]byte
	ctx Context
}

// NewAlignedContext returns a zeroed Context guaranteed to sit at a
// 16-byte-aligned address, as GetThreadContext/SetThreadContext require
// on x86-64.
func NewAlignedContext() *Context {
	block := &alignedContextBlock{}
	// The block is 16 bytes larger than a Context, so the first 16-byte
	// boundary at or after its start still leaves room for a whole one.
	off := (16 - uintptr(unsafe.Pointer(block))%16) % 16
	ctx := (*Context)(unsafe.Add(unsafe.Pointer(block), off))
	ctx.ContextFlags = ContextAllX86
	return ctx
}
