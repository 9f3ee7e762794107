package debugger

import (
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/saferwall/weevil/registers"
	"github.com/saferwall/weevil/stack"
	"github.com/saferwall/weevil/winapi"
)

// trapFlagBit is EFLAGS bit 8 (TF), which single-steps the next
// instruction when set.
const trapFlagBit = 1 << 8

// DebugEvent is the scoped token representing one pulled debug event. It
// mutably borrows the Debugger and owns a thread-context snapshot plus a
// thread handle for its lifetime; Release must be called exactly once,
// in place of the original's Drop impl (Go has no destructors), to write
// the context back, re-apply breakpoints, and continue the thread. A
// DebugEvent must never be kept across the next PullEvent call.
type DebugEvent struct {
	dbg       *Debugger
	raw       *winapi.DebugEvent
	kind      Kind
	threadID  uint32
	processID uint32

	threadHandle windows.Handle
	ctx          *winapi.Context

	continueStatus uint32

	exceptionKind    ExceptionKind
	exceptionCode    ExceptionCode
	exceptionAddress uint64
	breakpointID     int

	released bool
}

// Kind reports which debug event this is.
func (e *DebugEvent) Kind() Kind { return e.kind }

// ThreadID is the thread that reported this event.
func (e *DebugEvent) ThreadID() uint32 { return e.threadID }

// ProcessID is the process that reported this event.
func (e *DebugEvent) ProcessID() uint32 { return e.processID }

// InstructionPointer is the reporting thread's current RIP.
func (e *DebugEvent) InstructionPointer() uint64 { return e.ctx.Rip }

// ExceptionInfo returns the decoded exception classification; only
// meaningful when Kind() == KindException.
func (e *DebugEvent) ExceptionInfo() (ExceptionKind, ExceptionCode, uint64, int) {
	return e.exceptionKind, e.exceptionCode, e.exceptionAddress, e.breakpointID
}

// Registers returns a flat view of the reporting thread's register file.
func (e *DebugEvent) Registers() registers.View {
	return registers.FromContext(e.ctx)
}

// StepInto sets the trap flag so the debuggee single-steps its next
// instruction before the next debug event, the original's step_into.
func (e *DebugEvent) StepInto() {
	e.ctx.EFlags |= trapFlagBit
}

// ReadMemory reads len(buf) bytes from the debuggee at addr.
func (e *DebugEvent) ReadMemory(addr uint64, buf []byte) error {
	return e.dbg.ReadMemory(addr, buf)
}

// LookUpSymbol resolves addr to its closest preceding "module!symbol"
// name, the original's look_up_symbol.
func (e *DebugEvent) LookUpSymbol(addr uint64) (string, error) {
	return e.dbg.LookUpSymbol(addr)
}

// ResolveSymbol resolves a "module!symbol" query to an address, the
// original's resolve_symbol.
func (e *DebugEvent) ResolveSymbol(query string) (uint64, error) {
	return e.dbg.ResolveSymbol(query)
}

// AddBreakpoint reserves a hardware breakpoint slot; it takes effect
// once this event (or a later one) is released.
func (e *DebugEvent) AddBreakpoint(addr uint64) (int, error) {
	return e.dbg.AddBreakpoint(addr)
}

// ClearBreakpoint releases the slot holding id.
func (e *DebugEvent) ClearBreakpoint(id int) error {
	return e.dbg.ClearBreakpoint(id)
}

// BreakpointView is a read-only view of one set breakpoint.
type BreakpointView struct {
	ID   int
	Addr uint64
}

// Breakpoints lists every currently set breakpoint.
func (e *DebugEvent) Breakpoints() []BreakpointView {
	var out []BreakpointView
	for _, b := range e.dbg.breakpoints.List() {
		out = append(out, BreakpointView{ID: b.ID, Addr: b.Addr})
	}
	return out
}

// StackFrames walks the call stack starting at the reporting thread's
// current RIP/RSP/RBP, the original's stack_frames.
func (e *DebugEvent) StackFrames() ([]stack.Frame, error) {
	start := stack.Frame{RIP: e.ctx.Rip, RSP: e.ctx.Rsp}
	start.Set(stack.RBP, e.ctx.Rbp)
	start.Set(stack.RBX, e.ctx.Rbx)
	start.Set(stack.RSI, e.ctx.Rsi)
	start.Set(stack.RDI, e.ctx.Rdi)
	start.Set(stack.R12, e.ctx.R12)
	start.Set(stack.R13, e.ctx.R13)
	start.Set(stack.R14, e.ctx.R14)
	start.Set(stack.R15, e.ctx.R15)

	const maxFrames = 256
	frames, err := stack.Walk(start, e.dbg.process, e.dbg.MemoryReader(), maxFrames)
	if err != nil {
		return frames, fmt.Errorf("weevil/debugger: partial stack unwind: %w", err)
	}
	return frames, nil
}

// Release writes the (possibly modified, e.g. by StepInto) thread
// context back, re-applies the current breakpoint set (including any
// added or cleared through this event)
// to every live thread, and resumes the thread that reported this event
// with the appropriate continue status. This replaces the original's
// Drop impl for DebugEvent: Go has no destructors, so the event loop
// driver must call Release exactly once per pulled event.
//
// Unless the event is ExitProcess: the debuggee is gone, there is no
// thread context to write back and no debug loop to resume, so Release
// skips SetThreadContext/ApplyBreakpoints/ContinueDebugEvent entirely
// and only closes the thread handle.
func (e *DebugEvent) Release() error {
	if e.released {
		return fmt.Errorf("weevil/debugger: event already released")
	}
	e.released = true

	if e.kind == KindExitProcess {
		return winapi.CloseHandle(e.threadHandle)
	}

	if err := winapi.SetThreadContext(e.threadHandle, e.ctx); err != nil {
		winapi.CloseHandle(e.threadHandle)
		return err
	}

	e.dbg.ApplyBreakpoints()

	if err := winapi.ContinueDebugEvent(e.processID, e.threadID, e.continueStatus); err != nil {
		winapi.CloseHandle(e.threadHandle)
		return err
	}

	return winapi.CloseHandle(e.threadHandle)
}
