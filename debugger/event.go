// Package debugger implements the top-level event loop: Debugger
// launches and drives a debuggee, and DebugEvent is the scoped token
// representing one pulled debug event, grounded on the original's
// kafer-core/src/lib.rs and src/events.rs.
package debugger

import "fmt"

// Kind discriminates the dispatched debug event, mirroring the
// original's DebugEventKind enum (minus its borrowed payloads, which
// DebugEvent's accessor methods expose instead).
type Kind int

const (
	KindCreateProcess Kind = iota
	KindCreateThread
	KindException
	KindExitProcess
	KindExitThread
	KindLoadDll
	KindUnloadDll
	KindOutputDebugString
	KindRip
)

func (k Kind) String() string {
	switch k {
	case KindCreateProcess:
		return "CreateProcess"
	case KindCreateThread:
		return "CreateThread"
	case KindException:
		return "Exception"
	case KindExitProcess:
		return "ExitProcess"
	case KindExitThread:
		return "ExitThread"
	case KindLoadDll:
		return "LoadDll"
	case KindUnloadDll:
		return "UnloadDll"
	case KindOutputDebugString:
		return "OutputDebugString"
	case KindRip:
		return "Rip"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ExceptionKind distinguishes the exceptions DebugEvent classifies
// specially from the generic catch-all, mirroring the original's
// ExceptionEventKind.
type ExceptionKind int

const (
	ExceptionGeneric ExceptionKind = iota
	ExceptionBreakpointHit // one of our own hardware breakpoints fired
	ExceptionSingleStep
)

// ExceptionCode is a decoded NTSTATUS exception code, named the way the
// original's ExceptionCode enum names the values it recognizes; an
// unrecognized NTSTATUS decodes as ExceptionUnknown, which does not carry
// the raw value.
type ExceptionCode int

const (
	ExceptionAccessViolation ExceptionCode = iota
	ExceptionArrayBoundsExceeded
	ExceptionBreakpoint
	ExceptionDatatypeMisalignment
	ExceptionFltDenormalOperand
	ExceptionFltDivideByZero
	ExceptionFltInvalidOperation
	ExceptionFltOverflow
	ExceptionFltStackCheck
	ExceptionFltUnderflow
	ExceptionIllegalInstruction
	ExceptionIntDivideByZero
	ExceptionIntOverflow
	ExceptionPrivilegedInstruction
	ExceptionSingleStepCode
	ExceptionStackOverflow
	ExceptionUnknown
)

// ntstatusTable maps the NTSTATUS values Win32 actually raises as
// debug-event exception codes to ExceptionCode, the Go equivalent of the
// original's TryFrom<NTSTATUS> for ExceptionCode.
var ntstatusTable = map[uint32]ExceptionCode{
	0xC0000005: ExceptionAccessViolation,
	0xC0000008: ExceptionIllegalInstruction, // invalid handle, placeholder slot unused by debug events
	0x80000002: ExceptionDatatypeMisalignment,
	0x80000003: ExceptionBreakpoint,
	0x80000004: ExceptionSingleStepCode,
	0xC0000006: ExceptionAccessViolation,
	0xC000008C: ExceptionArrayBoundsExceeded,
	0xC000008D: ExceptionFltDenormalOperand,
	0xC000008E: ExceptionFltDivideByZero,
	0xC0000090: ExceptionFltInvalidOperation,
	0xC0000091: ExceptionFltOverflow,
	0xC0000092: ExceptionFltStackCheck,
	0xC0000093: ExceptionFltUnderflow,
	0xC0000094: ExceptionIntDivideByZero,
	0xC0000095: ExceptionIntOverflow,
	0xC0000096: ExceptionPrivilegedInstruction,
	0xC00000FD: ExceptionStackOverflow,
	0xC000001D: ExceptionIllegalInstruction,
}

// ExceptionCodeFromNTSTATUS decodes a raw NTSTATUS exception code.
func ExceptionCodeFromNTSTATUS(code uint32) ExceptionCode {
	if ec, ok := ntstatusTable[code]; ok {
		return ec
	}
	return ExceptionUnknown
}
