package debugger

import "github.com/saferwall/weevil/breakpoint"

func breakpointWasHit(dr6 uint64, i int) bool {
	return breakpoint.WasHit(dr6, i)
}

func setResumeFlag(eflags uint32) uint32 {
	return breakpoint.SetResumeFlag(eflags)
}
