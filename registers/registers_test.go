package registers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saferwall/weevil/winapi"
)

func TestFromContextGetIsCaseInsensitive(t *testing.T) {
	ctx := &winapi.Context{Rax: 0xDEADBEEF, Rip: 0x1000}
	v := FromContext(ctx)

	got, ok := v.Get("RAX")
	assert.True(t, ok)
	assert.Equal(t, uint64(0xDEADBEEF), got)

	got, ok = v.Get("rip")
	assert.True(t, ok)
	assert.Equal(t, uint64(0x1000), got)
}

func TestFromContextGetUnknownRegister(t *testing.T) {
	v := FromContext(&winapi.Context{})
	_, ok := v.Get("notareg")
	assert.False(t, ok)
}

func TestPrintWrapsEveryThreeRegisters(t *testing.T) {
	v := FromContext(&winapi.Context{})
	out := v.Print()
	lines := 0
	for _, c := range out {
		if c == '\n' {
			lines++
		}
	}
	assert.Equal(t, 6, lines, "18 registers at three per row make six lines")
}
