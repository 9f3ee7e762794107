package pe

import "github.com/saferwall/weevil/memory"

// UnwindCode is one raw UNWIND_CODE slot: a code offset plus a 4-bit op
// and 4-bit op-info nibble pair, named as saferwall/pe's exception.go
// names the decoded form, kept here at the raw pre-decode level since
// some ops consume more than one slot.
type UnwindCode struct {
	CodeOffset uint8
	UnwindOp   uint8 // 4 bits
	OpInfo     uint8 // 4 bits
	Slot2      uint16 // the raw second halfword, for ops that need it as data rather than op/info
}

// UnwindInfoHeader is the fixed portion of UNWIND_INFO preceding its
// UNWIND_CODE array.
type UnwindInfoHeader struct {
	VersionFlags  uint8 // version:3, flags:5
	SizeOfProlog  uint8
	CountOfCodes  uint8
	FrameFields   uint8 // frame_register:4, frame_offset:4
}

// Version returns the 3-bit version field.
func (h UnwindInfoHeader) Version() uint8 { return h.VersionFlags & 0x7 }

// Flags returns the 5-bit flags field (UNW_FLAG_*).
func (h UnwindInfoHeader) Flags() uint8 { return h.VersionFlags >> 3 }

// FrameRegister returns the 4-bit frame register field.
func (h UnwindInfoHeader) FrameRegister() uint8 { return h.FrameFields & 0xF }

// FrameOffset returns the 4-bit frame offset field, scaled by 16 as the
// format specifies.
func (h UnwindInfoHeader) FrameOffset() uint32 { return uint32(h.FrameFields>>4) * 16 }

// UNW_FLAG bits.
const (
	UnwFlagChaininfo = 0x4
)

// ReadUnwindInfo reads the UNWIND_INFO header and its raw UNWIND_CODE
// array at addr (the RUNTIME_FUNCTION's UnwindInfoAddress translated to
// an absolute address by the caller).
func ReadUnwindInfo(src memory.Source, addr uint64) (UnwindInfoHeader, []uint16, error) {
	hdr, err := memory.ReadValue[UnwindInfoHeader](src, addr)
	if err != nil {
		return hdr, nil, err
	}
	codes, err := memory.ReadArray[uint16](src, addr+4, int(hdr.CountOfCodes))
	if err != nil {
		return hdr, nil, err
	}
	return hdr, codes, nil
}
