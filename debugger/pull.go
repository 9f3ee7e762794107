package debugger

import (
	"golang.org/x/sys/windows"

	"github.com/saferwall/weevil/process"
	"github.com/saferwall/weevil/winapi"
)

// PullEvent blocks (WaitForDebugEventEx, no timeout) until the next
// debug event arrives, opens the reporting thread's context, dispatches
// the event kind, and returns a DebugEvent scoped token the caller must
// Release exactly once before the next PullEvent call — see the
// ownership summary: "never store a DebugEvent across pull_event calls."
func (d *Debugger) PullEvent() (*DebugEvent, error) {
	raw, err := winapi.WaitForDebugEventEx()
	if err != nil {
		return nil, err
	}

	handle, err := winapi.OpenThread(raw.ThreadID)
	if err != nil {
		return nil, err
	}
	ctx := winapi.NewAlignedContext()
	if err := winapi.GetThreadContext(handle, ctx); err != nil {
		winapi.CloseHandle(handle)
		return nil, err
	}

	ev := &DebugEvent{
		dbg:            d,
		raw:            raw,
		threadID:       raw.ThreadID,
		processID:      raw.ProcessID,
		threadHandle:   handle,
		ctx:            ctx,
		continueStatus: winapi.DBGContinue,
	}

	switch raw.Code {
	case winapi.CreateProcessDebugEvent:
		ev.kind = KindCreateProcess
		info := raw.CreateProcess()
		d.process.AddThread(raw.ThreadID)
		d.loadModule(info.File, info.BaseOfImage)

	case winapi.CreateThreadDebugEvent:
		ev.kind = KindCreateThread
		d.process.AddThread(raw.ThreadID)

	case winapi.ExitThreadDebugEvent:
		ev.kind = KindExitThread
		// Fixed thread-lifecycle bug: remove the thread now, not only
		// at process exit, so ApplyBreakpoints never touches it again.
		d.process.RemoveThread(raw.ThreadID)

	case winapi.ExitProcessDebugEvent:
		ev.kind = KindExitProcess

	case winapi.LoadDllDebugEvent:
		ev.kind = KindLoadDll
		info := raw.LoadDll()
		d.loadModule(info.File, info.BaseOfDll)

	case winapi.UnloadDllDebugEvent:
		ev.kind = KindUnloadDll
		info := raw.UnloadDll()
		d.process.RemoveModule(info.BaseOfDll)

	case winapi.ExceptionDebugEvent:
		ev.kind = KindException
		info := raw.Exception()
		ev.exceptionCode = ExceptionCodeFromNTSTATUS(info.ExceptionCode)
		ev.exceptionAddress = info.ExceptionAddress
		if bp, id, hit := d.hitBreakpoint(ctx.Dr6); hit {
			ev.exceptionKind = ExceptionBreakpointHit
			ev.breakpointID = id
			_ = bp
			ctx.EFlags = setResumeFlag(ctx.EFlags)
			ev.continueStatus = winapi.DBGContinue
		} else if ev.exceptionCode == ExceptionSingleStepCode {
			ev.exceptionKind = ExceptionSingleStep
			ev.continueStatus = winapi.DBGContinue
		} else {
			ev.exceptionKind = ExceptionGeneric
			ev.continueStatus = winapi.DBGExceptionNotHandled
		}

	case winapi.OutputDebugStringEvent:
		ev.kind = KindOutputDebugString

	case winapi.RipEvent:
		ev.kind = KindRip
	}

	return ev, nil
}

// loadModule resolves a module's on-disk path (best-effort) and builds
// its Module record from the debuggee's own memory.
func (d *Debugger) loadModule(file windows.Handle, base uint64) {
	name := ""
	if file != 0 && file != windows.InvalidHandle {
		if p, err := winapi.GetFinalPathNameByHandle(file); err == nil {
			name = p
		}
		winapi.CloseHandle(file)
	}
	m, err := process.BuildModule(d.reader, base, name, d.log)
	if err != nil {
		d.logf("module at 0x%x failed to parse: %v", base, err)
		return
	}
	d.process.AddModule(m)
}

// hitBreakpoint reports whether dr6 indicates one of our own hardware
// breakpoints fired, using the fixed canonical DR6 decode. DR6 status
// bits are indexed by hardware slot (DR0-DR3), which Manager.Apply
// programs by each breakpoint's own slot index — not by position in the
// (possibly sparse) List() result — so this tests WasHit(dr6, b.ID) for
// each entry's own slot id, never a loop counter.
func (d *Debugger) hitBreakpoint(dr6 uint64) (addr uint64, id int, ok bool) {
	for _, b := range d.breakpoints.List() {
		if breakpointWasHit(dr6, b.ID) {
			return b.Addr, b.ID, true
		}
	}
	return 0, 0, false
}
