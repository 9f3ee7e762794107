package debugger

import (
	"errors"
	"strings"

	"golang.org/x/sys/windows"

	"github.com/saferwall/weevil/breakpoint"
	"github.com/saferwall/weevil/internal/xlog"
	"github.com/saferwall/weevil/memory"
	"github.com/saferwall/weevil/process"
	"github.com/saferwall/weevil/winapi"
)

// isSpuriousLaunchError reports whether err is a transient CreateProcess
// failure worth retrying, currently only ERROR_SHARING_VIOLATION (the
// target image's file is still locked by another process, e.g. an
// antivirus scan that hasn't released it yet).
func isSpuriousLaunchError(err error) bool {
	return errors.Is(err, windows.ERROR_SHARING_VIOLATION)
}

// Debugger owns the debuggee's process handle, its module/thread
// registry, and its breakpoint manager, exactly the ownership summary
// in the original's Debugger struct.
type Debugger struct {
	processHandle windows.Handle
	processID     uint32
	commandLine   string

	process     *process.Process
	breakpoints *breakpoint.Manager
	log         *xlog.Helper

	reader *winapi.ProcessMemoryReader
}

// Launch starts program with args under the debug API
// (DEBUG_ONLY_THIS_PROCESS | CREATE_NEW_CONSOLE), retrying the
// CreateProcess call indefinitely while it keeps failing spuriously
// (ERROR_SHARING_VIOLATION: another process, often an antivirus
// scanner, still holds the image file), matching the original's run()
// retry loop. Any other failure is hard and returned immediately. The
// initial thread handle is closed immediately after launch; only the
// process handle is retained, per the ownership summary.
func Launch(program string, args []string, log *xlog.Helper) (*Debugger, error) {
	commandLine := strings.Join(append([]string{program}, args...), " ")

	var proc, thread windows.Handle
	var pid, tid uint32
	var err error
	for {
		proc, thread, pid, tid, err = winapi.CreateProcessSuspendedDebug(commandLine)
		if err == nil || !isSpuriousLaunchError(err) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	_ = tid
	_ = winapi.CloseHandle(thread)

	d := &Debugger{
		processHandle: proc,
		processID:     pid,
		commandLine:   commandLine,
		process:       process.New(),
		breakpoints:   breakpoint.New(),
		log:           log,
		reader:        &winapi.ProcessMemoryReader{Process: proc},
	}
	return d, nil
}

// Close releases the debuggee's process handle. Call this once the
// debuggee has exited.
func (d *Debugger) Close() error {
	return winapi.CloseHandle(d.processHandle)
}

// MemoryReader returns the memory.Source reading this debuggee's address
// space.
func (d *Debugger) MemoryReader() memory.Source { return d.reader }

// Process exposes the module/thread registry for read-only queries
// (listmodules, symbol lookups outside an in-flight event).
func (d *Debugger) Process() *process.Process { return d.process }

// Breakpoints exposes the breakpoint manager for read-only queries.
func (d *Debugger) Breakpoints() *breakpoint.Manager { return d.breakpoints }

// AddBreakpoint reserves a hardware breakpoint slot for addr. The new
// breakpoint only takes effect on live threads once ApplyBreakpoints (or
// a DebugEvent's Release) runs.
func (d *Debugger) AddBreakpoint(addr uint64) (int, error) {
	return d.breakpoints.Add(addr)
}

// ClearBreakpoint releases the slot holding id.
func (d *Debugger) ClearBreakpoint(id int) error {
	return d.breakpoints.Clear(id)
}

// ModuleNames lists every currently loaded module's display name.
func (d *Debugger) ModuleNames() []string { return d.process.ModuleNames() }

// ApplyBreakpoints programs the current breakpoint set onto every live
// thread. Per the fixed thread-lifecycle design note, a thread whose
// OpenThread/GetThreadContext/SetThreadContext call fails (because it
// has already exited) is skipped rather than aborting the whole
// operation — the original instead let such a failure propagate and
// stop applying breakpoints to every other thread.
func (d *Debugger) ApplyBreakpoints() {
	for _, tid := range d.process.Threads() {
		handle, err := winapi.OpenThread(tid)
		if err != nil {
			continue
		}
		ctx := winapi.NewAlignedContext()
		if err := winapi.GetThreadContext(handle, ctx); err != nil {
			winapi.CloseHandle(handle)
			continue
		}
		dr := breakpoint.DebugRegisters{DR0: ctx.Dr0, DR1: ctx.Dr1, DR2: ctx.Dr2, DR3: ctx.Dr3, DR6: ctx.Dr6, DR7: ctx.Dr7}
		d.breakpoints.Apply(&dr)
		ctx.Dr0, ctx.Dr1, ctx.Dr2, ctx.Dr3, ctx.Dr6, ctx.Dr7 = dr.DR0, dr.DR1, dr.DR2, dr.DR3, dr.DR6, dr.DR7

		if err := winapi.SetThreadContext(handle, ctx); err != nil {
			winapi.CloseHandle(handle)
			continue
		}
		winapi.CloseHandle(handle)
	}
}

// ReadMemory reads len(buf) bytes from the debuggee at addr.
func (d *Debugger) ReadMemory(addr uint64, buf []byte) error {
	return d.reader.ReadMemory(addr, buf)
}

// ResolveSymbol resolves a "module!symbol" query against the module
// registry. Valid outside an in-flight DebugEvent; the @register address
// syntax needs an event's thread context and is handled by the CLI
// layer, not here.
func (d *Debugger) ResolveSymbol(query string) (uint64, error) {
	return d.process.NameToAddress(query)
}

// LookUpSymbol resolves an address to its closest preceding
// "module!symbol[+0xN]" name.
func (d *Debugger) LookUpSymbol(addr uint64) (string, error) {
	return d.process.AddressToName(addr)
}

func (d *Debugger) logf(format string, args ...interface{}) {
	if d.log != nil {
		d.log.Debugf(format, args...)
	}
}
