// Package disasm is a thin wrapper over golang.org/x/arch/x86/x86asm,
// producing the line format the original's disassembler.rs produces
// (instruction pointer, raw bytes column, Intel-syntax mnemonic) without
// hand-writing a decoder.
package disasm

import (
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

// hexColumnWidth is the minimum width, in hex-byte pairs, the raw-bytes
// column is padded to, matching the original's hexbytes_column_byte_length.
const hexColumnWidth = 10

// Instruction is one decoded instruction ready for display.
type Instruction struct {
	IP    uint64
	Bytes []byte
	Inst  x86asm.Inst
}

// String renders ip, the raw bytes (padded to hexColumnWidth), and the
// Intel-syntax mnemonic, mirroring the original Instruction's Display
// impl (which used iced_x86's NasmFormatter — closest Go analogue is
// x86asm.IntelSyntax).
func (i Instruction) String() string {
	var hex strings.Builder
	for _, b := range i.Bytes {
		fmt.Fprintf(&hex, "%02x", b)
	}
	for hex.Len() < hexColumnWidth*2 {
		hex.WriteByte(' ')
	}
	return fmt.Sprintf("%016x %s %s", i.IP, hex.String(), x86asm.IntelSyntax(i.Inst, i.IP, nil))
}

// Decode decodes up to count instructions from code, which must start at
// the byte corresponding to address ip. It returns as many instructions
// as it could decode before running out of bytes or hitting a decode
// error, mirroring the original's disassemble(): MemorySourceNotEnoughData
// when code is empty, otherwise best-effort decoding of what's available.
func Decode(code []byte, ip uint64, count int) ([]Instruction, error) {
	if len(code) == 0 {
		return nil, fmt.Errorf("weevil/disasm: no bytes to decode")
	}
	var out []Instruction
	off := 0
	for i := 0; i < count && off < len(code); i++ {
		inst, err := x86asm.Decode(code[off:], 64)
		if err != nil {
			break
		}
		out = append(out, Instruction{
			IP:    ip + uint64(off),
			Bytes: append([]byte(nil), code[off:off+inst.Len]...),
			Inst:  inst,
		})
		off += inst.Len
	}
	return out, nil
}
