package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferwall/weevil/pe"
)

func TestAddressToNameSkipsForwarderExports(t *testing.T) {
	p := New()
	m := &Module{Base: 0x400000, Size: 0x1000}
	m.SetName("sample.dll")
	m.Exports = []pe.Export{
		{Name: "RealFunc", RVA: 0x100},
		// A forwarder export whose raw RVA happens to fall numerically
		// between RealFunc and the query address: without the fix this
		// would win the closest-preceding search and report the wrong
		// name (and a forwarder's RVA is meaningless as code anyway).
		{Name: "ForwardedFunc", Forwarder: "OTHER.dll.OtherFunc", RVA: 0x180},
	}
	p.AddModule(m)

	name, err := p.AddressToName(0x400000 + 0x190)
	require.NoError(t, err)
	assert.Equal(t, "sample.dll!RealFunc+0x90", name)
}

func TestAddressToNameExactMatchHasNoOffsetSuffix(t *testing.T) {
	p := New()
	m := &Module{Base: 0x10000, Size: 0x1000}
	m.SetName("a.dll")
	m.Exports = []pe.Export{{Name: "Entry", RVA: 0x10}}
	p.AddModule(m)

	name, err := p.AddressToName(0x10000 + 0x10)
	require.NoError(t, err)
	assert.Equal(t, "a.dll!Entry", name)
}

func TestAddressToNameNoPrecedingSymbol(t *testing.T) {
	p := New()
	m := &Module{Base: 0x10000, Size: 0x1000}
	m.Exports = []pe.Export{{Name: "Entry", RVA: 0x100}}
	p.AddModule(m)

	_, err := p.AddressToName(0x10000 + 0x10)
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestResolveFunctionSkipsForwarderByName(t *testing.T) {
	m := &Module{Base: 0x10000}
	m.Exports = []pe.Export{
		{Name: "Fwd", Forwarder: "OTHER.dll.Fwd"},
	}
	_, ok := m.ResolveFunction("Fwd")
	assert.False(t, ok, "a forwarder export must never resolve to its own (meaningless) RVA")
}

func TestNameToAddressUnknownModule(t *testing.T) {
	p := New()
	_, err := p.NameToAddress("missing.dll!Func")
	assert.ErrorIs(t, err, ErrUnknownModuleName)
}

func TestModuleNameFallsBackToBaseAddress(t *testing.T) {
	m := &Module{Base: 0xDEAD0000}
	assert.Equal(t, "module_DEAD0000", m.Name())
}

func TestThreadLifecycleRemovalOnExitThread(t *testing.T) {
	p := New()
	p.AddThread(11)
	p.AddThread(22)
	require.Equal(t, []uint32{11, 22}, p.Threads())

	p.RemoveThread(11)
	assert.Equal(t, []uint32{22}, p.Threads(), "ExitThread must drop the thread immediately, not just at process exit")
}
