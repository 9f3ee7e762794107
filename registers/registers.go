// Package registers provides a flat, named view over a thread's CONTEXT,
// grounded on the original's src/events/registers.rs.
package registers

import (
	"fmt"
	"strings"

	"github.com/saferwall/weevil/winapi"
)

// Register is one named register value.
type Register struct {
	Name  string
	Value uint64
}

// View is the flat list of general-purpose and control registers
// surfaced by the "reg" REPL command, in the same order as the
// original's Registers::from_context.
type View struct {
	regs []Register
}

// FromContext builds a View from a thread's CONTEXT.
func FromContext(ctx *winapi.Context) View {
	return View{regs: []Register{
		{"rax", ctx.Rax}, {"rbx", ctx.Rbx}, {"rcx", ctx.Rcx}, {"rdx", ctx.Rdx},
		{"rsi", ctx.Rsi}, {"rdi", ctx.Rdi}, {"rip", ctx.Rip}, {"rsp", ctx.Rsp},
		{"rbp", ctx.Rbp},
		{"r8", ctx.R8}, {"r9", ctx.R9}, {"r10", ctx.R10}, {"r11", ctx.R11},
		{"r12", ctx.R12}, {"r13", ctx.R13}, {"r14", ctx.R14}, {"r15", ctx.R15},
		{"eflags", uint64(ctx.EFlags)},
	}}
}

// Get returns the value of the named register (case-insensitive).
func (v View) Get(name string) (uint64, bool) {
	for _, r := range v.regs {
		if strings.EqualFold(r.Name, name) {
			return r.Value, true
		}
	}
	return 0, false
}

// All returns every register in display order.
func (v View) All() []Register { return v.regs }

// Print renders the register set three per row, "name=0x...18x" each,
// matching the original's Registers::print layout.
func (v View) Print() string {
	var b strings.Builder
	for i, r := range v.regs {
		fmt.Fprintf(&b, "%-6s=0x%018x  ", r.Name, r.Value)
		if (i+1)%3 == 0 {
			b.WriteByte('\n')
		}
	}
	if len(v.regs)%3 != 0 {
		b.WriteByte('\n')
	}
	return b.String()
}
