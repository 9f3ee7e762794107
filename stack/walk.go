package stack

import (
	"github.com/saferwall/weevil/memory"
	"github.com/saferwall/weevil/pe"
)

// ModuleLookup resolves the module mapping a given absolute address, the
// way the original's find_parent looks up Process::get_module_by_address
// before consulting .pdata. The returned *pe.Image is already associated
// with a memory.Source for this module's live pages.
type ModuleLookup interface {
	ModuleContaining(addr uint64) (*pe.Image, bool)
}

// Next computes the caller's frame given the callee's frame, following
// the original's find_parent: look up the module owning RIP, binary-
// search its .pdata for the covering RUNTIME_FUNCTION, decode and apply
// its UNWIND_INFO, then pop the return address off the adjusted stack.
// When RIP falls in no known module's .pdata (leaf function with no
// unwind info, or an address outside any mapped module), Next falls
// back to treating [RSP] as the return address, the same leaf-frame
// fallback the original applies when find_runtime_function finds
// nothing.
func Next(frame Frame, modules ModuleLookup, src memory.Source) (Frame, error) {
	next := frame

	img, ok := modules.ModuleContaining(frame.RIP)
	if !ok {
		return popReturnAddress(next, src)
	}

	rva := uint32(frame.RIP - img.Base)
	fns, err := img.RuntimeFunctions()
	if err != nil {
		return Frame{}, err
	}
	fn, ok := pe.FindRuntimeFunction(fns, rva)
	if !ok {
		return popReturnAddress(next, src)
	}

	hdr, codes, err := pe.ReadUnwindInfo(img.Source(), img.Base+uint64(fn.UnwindInfoAddress))
	if err != nil {
		return Frame{}, err
	}
	if hdr.Flags()&pe.UnwFlagChaininfo != 0 {
		return Frame{}, ErrChainedUnwindInfo
	}

	ops, err := DecodeOps(codes, hdr.FrameRegister(), uint16(hdr.FrameOffset()))
	if err != nil {
		return Frame{}, err
	}
	funcAddress := img.Base + uint64(fn.BeginAddress)
	if err := ApplyAll(ops, &next, funcAddress, src); err != nil {
		return Frame{}, err
	}

	return popReturnAddress(next, src)
}

func popReturnAddress(frame Frame, src memory.Source) (Frame, error) {
	ret, err := memory.ReadValue[uint64](src, frame.RSP)
	if err != nil {
		return Frame{}, err
	}
	frame.RIP = ret
	frame.RSP += 8
	return frame, nil
}

// Walk repeatedly calls Next starting from start until RIP reaches zero
// (the conventional top-of-stack sentinel) or an error occurs, returning
// every frame visited including start; the zero-RIP frame itself is not
// returned. A partial result — the frames
// collected before the error — is returned alongside the error so a
// caller can still show what was recovered, per spec: "the stack unwind
// returns partial results."
func Walk(start Frame, modules ModuleLookup, src memory.Source, maxFrames int) ([]Frame, error) {
	frames := []Frame{start}
	cur := start
	for len(frames) < maxFrames {
		if cur.RIP == 0 {
			break
		}
		next, err := Next(cur, modules, src)
		if err != nil {
			return frames, err
		}
		if next.RIP == 0 {
			break
		}
		frames = append(frames, next)
		cur = next
	}
	return frames, nil
}
