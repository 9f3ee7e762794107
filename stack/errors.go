package stack

import "fmt"

// IncompleteOpError is returned when a decoded UNWIND_CODE op claims more
// slots than remain in the array.
type IncompleteOpError struct {
	Op     uint8
	Needed int
	Have   int
}

func (e *IncompleteOpError) Error() string {
	return fmt.Sprintf("weevil/stack: incomplete unwind op %#x: needs %d more slots, have %d", e.Op, e.Needed, e.Have)
}

// UnknownOpError is returned for an UnwindOp nibble this decoder does
// not recognize.
type UnknownOpError struct {
	Op uint8
}

func (e *UnknownOpError) Error() string {
	return fmt.Sprintf("weevil/stack: unknown unwind op %#x", e.Op)
}

// InvalidRegisterError is returned when an OpInfo nibble doesn't map to
// one of the sixteen GP registers.
type InvalidRegisterError struct {
	OpInfo uint8
}

func (e *InvalidRegisterError) Error() string {
	return fmt.Sprintf("weevil/stack: invalid register op-info %#x", e.OpInfo)
}

// ErrChainedUnwindInfo is returned for UNW_FLAG_CHAININFO unwind info,
// which this unwinder does not follow (matching the original's todo!()
// on chained unwind info).
var ErrChainedUnwindInfo = fmt.Errorf("weevil/stack: chained unwind info not supported")
