package stack

import "github.com/saferwall/weevil/memory"

// UWOP_* raw opcode values, named as the Microsoft x64 exception
// handling documentation and the original's stack_unwind.rs name them.
const (
	uwopPushNonvol    = 0
	uwopAllocLarge    = 1
	uwopAllocSmall    = 2
	uwopSetFpreg      = 3
	uwopSaveNonvol    = 4
	uwopSaveNonvolFar = 5
	uwopSaveXmm128    = 8
	uwopSaveXmm128Far = 9
	uwopPushMachFrame = 10
)

// Op is a decoded, logical unwind operation — large/small allocation
// variants and near/far save variants are merged into one representation
// the way the original's UnwindOp enum merges them.
type Op struct {
	CodeOffset uint8
	Kind       OpKind
	Reg        Register
	Size       uint32 // Alloc
	Offset     uint32 // SaveNonVolatile, SaveXmm128 (never scaled by 8: the raw slot value IS the byte offset)
	FrameReg   Register
	FrameOff   uint16
}

// OpKind discriminates the decoded Op variants.
type OpKind uint8

const (
	OpPushNonVolatile OpKind = iota
	OpAlloc
	OpSetFpreg
	OpSaveNonVolatile
	OpSaveXmm128
	OpPushMachFrame
)

// DecodeOps parses the raw UNWIND_CODE slot array into logical Ops,
// following parse_unwind_ops: SAVE_XMM128/_FAR and PUSH_MACHFRAME are
// decoded (so CountOfCodes slot-consumption stays correct for later
// entries) even though ApplyAll treats them as no-ops for a GP-only
// unwind, matching the original leaving SaveXmm128/PushMachFrame
// unimplemented in UnwindCode::apply.
func DecodeOps(slots []uint16, frameRegister uint8, frameOffset uint16) ([]Op, error) {
	var ops []Op
	i := 0
	for i < len(slots) {
		codeOffset := uint8(slots[i] & 0xFF)
		unwindOp := uint8((slots[i] >> 8) & 0xF)
		opInfo := uint8((slots[i] >> 12) & 0xF)

		switch unwindOp {
		case uwopPushNonvol:
			reg, err := RegisterFromOpInfo(opInfo)
			if err != nil {
				return nil, err
			}
			ops = append(ops, Op{CodeOffset: codeOffset, Kind: OpPushNonVolatile, Reg: reg})

		case uwopAllocLarge:
			if opInfo == 0 {
				if i+1 >= len(slots) {
					return nil, &IncompleteOpError{Op: unwindOp, Needed: 1, Have: len(slots) - i - 1}
				}
				ops = append(ops, Op{CodeOffset: codeOffset, Kind: OpAlloc, Size: uint32(slots[i+1]) * 8})
				i++
			} else if opInfo == 1 {
				if i+2 >= len(slots) {
					return nil, &IncompleteOpError{Op: unwindOp, Needed: 2, Have: len(slots) - i - 1}
				}
				size := uint32(slots[i+1]) + uint32(slots[i+2])<<16
				ops = append(ops, Op{CodeOffset: codeOffset, Kind: OpAlloc, Size: size})
				i += 2
			} else {
				return nil, &UnknownOpError{Op: unwindOp}
			}

		case uwopAllocSmall:
			ops = append(ops, Op{CodeOffset: codeOffset, Kind: OpAlloc, Size: uint32(opInfo)*8 + 8})

		case uwopSetFpreg:
			fr, err := RegisterFromOpInfo(frameRegister)
			if err != nil {
				return nil, err
			}
			ops = append(ops, Op{CodeOffset: codeOffset, Kind: OpSetFpreg, FrameReg: fr, FrameOff: frameOffset})

		case uwopSaveNonvol:
			if i+1 >= len(slots) {
				return nil, &IncompleteOpError{Op: unwindOp, Needed: 1, Have: len(slots) - i - 1}
			}
			reg, err := RegisterFromOpInfo(opInfo)
			if err != nil {
				return nil, err
			}
			ops = append(ops, Op{CodeOffset: codeOffset, Kind: OpSaveNonVolatile, Reg: reg, Offset: uint32(slots[i+1])})
			i++

		case uwopSaveNonvolFar:
			if i+2 >= len(slots) {
				return nil, &IncompleteOpError{Op: unwindOp, Needed: 2, Have: len(slots) - i - 1}
			}
			reg, err := RegisterFromOpInfo(opInfo)
			if err != nil {
				return nil, err
			}
			offset := uint32(slots[i+1]) + uint32(slots[i+2])<<16
			ops = append(ops, Op{CodeOffset: codeOffset, Kind: OpSaveNonVolatile, Reg: reg, Offset: offset})
			i += 2

		case uwopSaveXmm128:
			if i+1 >= len(slots) {
				return nil, &IncompleteOpError{Op: unwindOp, Needed: 1, Have: len(slots) - i - 1}
			}
			reg, err := RegisterFromOpInfo(opInfo)
			if err != nil {
				return nil, err
			}
			ops = append(ops, Op{CodeOffset: codeOffset, Kind: OpSaveXmm128, Reg: reg, Offset: uint32(slots[i+1])})
			i++

		case uwopSaveXmm128Far:
			if i+2 >= len(slots) {
				return nil, &IncompleteOpError{Op: unwindOp, Needed: 2, Have: len(slots) - i - 1}
			}
			reg, err := RegisterFromOpInfo(opInfo)
			if err != nil {
				return nil, err
			}
			offset := uint32(slots[i+1]) + uint32(slots[i+2])<<16
			ops = append(ops, Op{CodeOffset: codeOffset, Kind: OpSaveXmm128, Reg: reg, Offset: offset})
			i += 2

		case uwopPushMachFrame:
			ops = append(ops, Op{CodeOffset: codeOffset, Kind: OpPushMachFrame, Offset: uint32(opInfo)})

		default:
			return nil, &UnknownOpError{Op: unwindOp}
		}
		i++
	}
	return ops, nil
}

// ApplyAll applies ops in order against frame, reading saved register
// values from src. An op whose CodeOffset lies past the current RIP's
// offset into the function is skipped — it hasn't executed yet — exactly
// as UnwindCode::apply's func_offset guard does. SaveXmm128 and
// PushMachFrame are decoded but not applied: this is a GP-only unwinder
// (see Non-goals), matching the original which leaves both todo!() in
// apply.
func ApplyAll(ops []Op, frame *Frame, funcAddress uint64, src memory.Source) error {
	funcOffset := frame.RIP - funcAddress
	for _, op := range ops {
		if uint64(op.CodeOffset) > funcOffset {
			continue
		}
		switch op.Kind {
		case OpAlloc:
			frame.RSP += uint64(op.Size)
		case OpPushNonVolatile:
			val, err := memory.ReadValue[uint64](src, frame.RSP)
			if err != nil {
				return err
			}
			frame.Set(op.Reg, val)
			frame.RSP += 8
		case OpSaveNonVolatile:
			val, err := memory.ReadValue[uint64](src, frame.RSP+uint64(op.Offset))
			if err != nil {
				return err
			}
			frame.Set(op.Reg, val)
		case OpSetFpreg:
			frame.RSP = frame.Get(op.FrameReg) - uint64(op.FrameOff)
		case OpSaveXmm128, OpPushMachFrame:
			// no GP-register effect; see doc comment above.
		}
	}
	return nil
}
