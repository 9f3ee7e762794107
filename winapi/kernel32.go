// Package winapi is the platform debug port: typed wrappers over the
// Win32 debugging API. golang.org/x/sys/windows supplies handle types,
// constants, and CreateProcess/OpenThread/CloseHandle; the debug-event
// primitives that package does not wrap (WaitForDebugEventEx,
// ContinueDebugEvent, Get/SetThreadContext) are bound here directly
// against kernel32.dll, the way golang.org/x/sys/windows itself binds
// its own procedures.
package winapi

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procWaitForDebugEventEx  = modkernel32.NewProc("WaitForDebugEventEx")
	procContinueDebugEvent   = modkernel32.NewProc("ContinueDebugEvent")
	procGetThreadContext     = modkernel32.NewProc("GetThreadContext")
	procSetThreadContext     = modkernel32.NewProc("SetThreadContext")
	procGetFinalPathNameByHandleW = modkernel32.NewProc("GetFinalPathNameByHandleW")
)

// Function names this package's callers mention in PlatformCallError,
// mirroring the original's WindowsFunction enum.
type Function string

const (
	FuncCreateProcessW        Function = "CreateProcessW"
	FuncCloseHandle           Function = "CloseHandle"
	FuncWaitForDebugEventEx   Function = "WaitForDebugEventEx"
	FuncContinueDebugEvent    Function = "ContinueDebugEvent"
	FuncOpenThread            Function = "OpenThread"
	FuncGetThreadContext      Function = "GetThreadContext"
	FuncSetThreadContext      Function = "SetThreadContext"
	FuncReadProcessMemory     Function = "ReadProcessMemory"
	FuncGetFinalPathNameByHandle Function = "GetFinalPathNameByHandle"
)

// PlatformCallError reports a failed Win32 API call, carrying both the
// function name and the raw error code so callers can branch on it.
type PlatformCallError struct {
	Func Function
	Err  error
}

func (e *PlatformCallError) Error() string {
	return fmt.Sprintf("weevil: %s failed: %v", e.Func, e.Err)
}

func (e *PlatformCallError) Unwrap() error { return e.Err }

func platformErr(fn Function, err error) error {
	if err == nil || err == windows.ERROR_SUCCESS {
		return nil
	}
	return &PlatformCallError{Func: fn, Err: err}
}

// Debug event codes (dwDebugEventCode).
const (
	ExceptionDebugEvent     = 1
	CreateThreadDebugEvent  = 2
	CreateProcessDebugEvent = 3
	ExitThreadDebugEvent    = 4
	ExitProcessDebugEvent   = 5
	LoadDllDebugEvent       = 6
	UnloadDllDebugEvent     = 7
	OutputDebugStringEvent  = 8
	RipEvent                = 9
)

// Continue-status values passed to ContinueDebugEvent.
const (
	DBGContinue             = 0x00010002
	DBGExceptionNotHandled  = 0x80010001
)

// CreateProcess debug flags.
const (
	DebugOnlyThisProcess = 0x00000002
	CreateNewConsole     = 0x00000010
)

// Thread access rights needed for context manipulation.
const (
	ThreadGetContext = 0x0008
	ThreadSetContext = 0x0010
)

// ExceptionDebugInfo mirrors the EXCEPTION_DEBUG_INFO member of
// DEBUG_EVENT's union: an EXCEPTION_RECORD plus the first-chance flag.
type ExceptionDebugInfo struct {
	ExceptionCode        uint32
	ExceptionFlags        uint32
	ExceptionRecord       uint64 // pointer to nested EXCEPTION_RECORD, rarely chased
	ExceptionAddress      uint64
	NumberParameters       uint32
	_                      uint32 // padding to align ExceptionInformation on x64
	ExceptionInformation  [15]uint64
	FirstChance           uint32
	_                      uint32
}

// CreateThreadDebugInfo mirrors CREATE_THREAD_DEBUG_INFO.
type CreateThreadDebugInfo struct {
	Thread           windows.Handle
	ThreadLocalBase  uint64
	StartAddress     uint64
}

// CreateProcessDebugInfo mirrors CREATE_PROCESS_DEBUG_INFO.
type CreateProcessDebugInfo struct {
	File                windows.Handle
	Process             windows.Handle
	Thread              windows.Handle
	BaseOfImage         uint64
	DebugInfoFileOffset uint32
	DebugInfoSize       uint32
	ThreadLocalBase     uint64
	StartAddress        uint64
	ImageName           uint64
	Unicode             uint16
	_                    uint16
}

// ExitThreadDebugInfo mirrors EXIT_THREAD_DEBUG_INFO.
type ExitThreadDebugInfo struct {
	ExitCode uint32
}

// ExitProcessDebugInfo mirrors EXIT_PROCESS_DEBUG_INFO.
type ExitProcessDebugInfo struct {
	ExitCode uint32
}

// LoadDllDebugInfo mirrors LOAD_DLL_DEBUG_INFO.
type LoadDllDebugInfo struct {
	File                windows.Handle
	BaseOfDll           uint64
	DebugInfoFileOffset uint32
	DebugInfoSize       uint32
	ImageName           uint64
	Unicode             uint16
	_                    uint16
}

// UnloadDllDebugInfo mirrors UNLOAD_DLL_DEBUG_INFO.
type UnloadDllDebugInfo struct {
	BaseOfDll uint64
}

// OutputDebugStringInfo mirrors OUTPUT_DEBUG_STRING_INFO.
type OutputDebugStringInfo struct {
	DebugStringData uint64
	Unicode         uint16
	Length          uint16
}

// RipInfo mirrors RIP_INFO.
type RipInfo struct {
	Error uint32
	Type  uint32
}

// rawDebugEvent is DEBUG_EVENT with its union as raw byte storage; the
// Win32 struct is 4-byte event code + 4-byte process id + 4-byte thread
// id, 4 bytes of padding (the union holds 8-byte fields, so it starts at
// offset 16 on x64), then a union whose largest member
// (EXCEPTION_DEBUG_INFO) is the one this array must accommodate.
type rawDebugEvent struct {
	DebugEventCode uint32
	ProcessID      uint32
	ThreadID       uint32
	_              uint32
	union          [168]byte
}

// DebugEvent is a decoded DEBUG_EVENT.
type DebugEvent struct {
	Code      uint32
	ProcessID uint32
	ThreadID  uint32
	raw       [168]byte
}

// Exception decodes the union as ExceptionDebugInfo.
func (e *DebugEvent) Exception() *ExceptionDebugInfo {
	return (*ExceptionDebugInfo)(unsafe.Pointer(&e.raw[0]))
}

// CreateThread decodes the union as CreateThreadDebugInfo.
func (e *DebugEvent) CreateThread() *CreateThreadDebugInfo {
	return (*CreateThreadDebugInfo)(unsafe.Pointer(&e.raw[0]))
}

// CreateProcess decodes the union as CreateProcessDebugInfo.
func (e *DebugEvent) CreateProcess() *CreateProcessDebugInfo {
	return (*CreateProcessDebugInfo)(unsafe.Pointer(&e.raw[0]))
}

// ExitThread decodes the union as ExitThreadDebugInfo.
func (e *DebugEvent) ExitThread() *ExitThreadDebugInfo {
	return (*ExitThreadDebugInfo)(unsafe.Pointer(&e.raw[0]))
}

// ExitProcess decodes the union as ExitProcessDebugInfo.
func (e *DebugEvent) ExitProcess() *ExitProcessDebugInfo {
	return (*ExitProcessDebugInfo)(unsafe.Pointer(&e.raw[0]))
}

// LoadDll decodes the union as LoadDllDebugInfo.
func (e *DebugEvent) LoadDll() *LoadDllDebugInfo {
	return (*LoadDllDebugInfo)(unsafe.Pointer(&e.raw[0]))
}

// UnloadDll decodes the union as UnloadDllDebugInfo.
func (e *DebugEvent) UnloadDll() *UnloadDllDebugInfo {
	return (*UnloadDllDebugInfo)(unsafe.Pointer(&e.raw[0]))
}

// OutputDebugString decodes the union as OutputDebugStringInfo.
func (e *DebugEvent) OutputDebugString() *OutputDebugStringInfo {
	return (*OutputDebugStringInfo)(unsafe.Pointer(&e.raw[0]))
}

// Rip decodes the union as RipInfo.
func (e *DebugEvent) Rip() *RipInfo {
	return (*RipInfo)(unsafe.Pointer(&e.raw[0]))
}

// WaitForDebugEventEx blocks until the next debug event for any process
// the caller is debugging, with no timeout (INFINITE).
func WaitForDebugEventEx() (*DebugEvent, error) {
	var raw rawDebugEvent
	r1, _, err := procWaitForDebugEventEx.Call(
		uintptr(unsafe.Pointer(&raw)),
		uintptr(0xFFFFFFFF), // INFINITE
	)
	if r1 == 0 {
		return nil, platformErr(FuncWaitForDebugEventEx, err)
	}
	ev := &DebugEvent{Code: raw.DebugEventCode, ProcessID: raw.ProcessID, ThreadID: raw.ThreadID}
	copy(ev.raw[:], raw.union[:])
	return ev, nil
}

// ContinueDebugEvent resumes the thread that raised the given event.
func ContinueDebugEvent(processID, threadID uint32, continueStatus uint32) error {
	r1, _, err := procContinueDebugEvent.Call(
		uintptr(processID),
		uintptr(threadID),
		uintptr(continueStatus),
	)
	if r1 == 0 {
		return platformErr(FuncContinueDebugEvent, err)
	}
	return nil
}

// GetThreadContext reads the full x86-64 register state of a thread. ctx
// must be allocated with 16-byte alignment (see NewAlignedContext).
func GetThreadContext(thread windows.Handle, ctx *Context) error {
	r1, _, err := procGetThreadContext.Call(
		uintptr(thread),
		uintptr(unsafe.Pointer(ctx)),
	)
	if r1 == 0 {
		return platformErr(FuncGetThreadContext, err)
	}
	return nil
}

// SetThreadContext writes back a thread's register state.
func SetThreadContext(thread windows.Handle, ctx *Context) error {
	r1, _, err := procSetThreadContext.Call(
		uintptr(thread),
		uintptr(unsafe.Pointer(ctx)),
	)
	if r1 == 0 {
		return platformErr(FuncSetThreadContext, err)
	}
	return nil
}

// GetFinalPathNameByHandle resolves a file handle back to its path, used
// to recover a module's on-disk path from the HANDLE carried in
// LOAD_DLL_DEBUG_INFO/CREATE_PROCESS_DEBUG_INFO.
func GetFinalPathNameByHandle(file windows.Handle) (string, error) {
	buf := make([]uint16, windows.MAX_PATH)
	r1, _, err := procGetFinalPathNameByHandleW.Call(
		uintptr(file),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(len(buf)),
		0,
	)
	if r1 == 0 {
		return "", platformErr(FuncGetFinalPathNameByHandle, err)
	}
	return windows.UTF16ToString(buf[:r1]), nil
}

// OpenThread opens a handle to threadID with THREAD_GET_CONTEXT |
// THREAD_SET_CONTEXT access.
func OpenThread(threadID uint32) (windows.Handle, error) {
	h, err := windows.OpenThread(ThreadGetContext|ThreadSetContext, false, threadID)
	if err != nil {
		return 0, platformErr(FuncOpenThread, err)
	}
	return h, nil
}

// CloseHandle closes h.
func CloseHandle(h windows.Handle) error {
	if err := windows.CloseHandle(h); err != nil {
		return platformErr(FuncCloseHandle, err)
	}
	return nil
}

// CreateProcessSuspendedDebug launches program with args under
// DEBUG_ONLY_THIS_PROCESS | CREATE_NEW_CONSOLE, returning the resulting
// process/thread handles and IDs. The process is not created suspended:
// CREATE_SUSPENDED is not among the creation flags.
func CreateProcessSuspendedDebug(commandLine string) (windows.Handle, windows.Handle, uint32, uint32, error) {
	cmd, err := windows.UTF16PtrFromString(commandLine)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	var si windows.StartupInfo
	var pi windows.ProcessInformation
	si.Cb = uint32(unsafe.Sizeof(si))

	err = windows.CreateProcess(
		nil, cmd, nil, nil, false,
		DebugOnlyThisProcess|CreateNewConsole,
		nil, nil, &si, &pi,
	)
	if err != nil {
		return 0, 0, 0, 0, platformErr(FuncCreateProcessW, err)
	}
	return pi.Process, pi.Thread, pi.ProcessId, pi.ThreadId, nil
}

// ReadProcessMemory reads len(buf) bytes from process at addr.
func ReadProcessMemory(process windows.Handle, addr uint64, buf []byte) error {
	var n uintptr
	err := windows.ReadProcessMemory(process, uintptr(addr), &buf[0], uintptr(len(buf)), &n)
	if err != nil {
		return platformErr(FuncReadProcessMemory, err)
	}
	if int(n) != len(buf) {
		return platformErr(FuncReadProcessMemory, fmt.Errorf("short read: got %d of %d bytes", n, len(buf)))
	}
	return nil
}
