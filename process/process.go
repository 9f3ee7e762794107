package process

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/saferwall/weevil/pe"
)

// ErrUnknownModuleName is returned when a module!symbol query names a
// module not currently loaded.
var ErrUnknownModuleName = errors.New("weevil/process: unknown module")

// ErrUnknownSymbol is returned when a module!symbol query names a symbol
// absent from both the module's exports and its PDB.
var ErrUnknownSymbol = errors.New("weevil/process: unknown symbol")

// Process is the live registry of a debuggee's loaded modules and
// threads, mirroring the original's Process struct.
type Process struct {
	modules []*Module // order of load, matching the original's Vec<Module>
	threads []uint32
}

// New returns an empty Process registry.
func New() *Process { return &Process{} }

// AddModule records a newly loaded module.
func (p *Process) AddModule(m *Module) { p.modules = append(p.modules, m) }

// RemoveModule drops the module based at base, e.g. on UNLOAD_DLL.
func (p *Process) RemoveModule(base uint64) {
	for i, m := range p.modules {
		if m.Base == base {
			p.modules = append(p.modules[:i], p.modules[i+1:]...)
			return
		}
	}
}

// AddThread records a newly created thread.
func (p *Process) AddThread(tid uint32) { p.threads = append(p.threads, tid) }

// RemoveThread drops tid from the live set. Per the fixed thread
// lifecycle (see design notes), this must be called on ExitThread, not
// only at process exit — otherwise ApplyBreakpoints would keep trying to
// touch a thread handle that no longer exists.
func (p *Process) RemoveThread(tid uint32) {
	for i, t := range p.threads {
		if t == tid {
			p.threads = append(p.threads[:i], p.threads[i+1:]...)
			return
		}
	}
}

// Threads returns the current live thread ID set.
func (p *Process) Threads() []uint32 { return p.threads }

// Modules returns every currently loaded module.
func (p *Process) Modules() []*Module { return p.modules }

// ModuleNames returns the display name of every loaded module.
func (p *Process) ModuleNames() []string {
	names := make([]string, len(p.modules))
	for i, m := range p.modules {
		names[i] = m.Name()
	}
	return names
}

// ModuleByName finds the loaded module whose name matches (case-
// insensitive, last-path-component fallback).
func (p *Process) ModuleByName(name string) (*Module, bool) {
	for _, m := range p.modules {
		if nameEquals(m.Name(), name) {
			return m, true
		}
	}
	return nil, false
}

// ModuleByAddress finds the loaded module containing addr.
func (p *Process) ModuleByAddress(addr uint64) (*Module, bool) {
	for _, m := range p.modules {
		if m.ContainsAddress(addr) {
			return m, true
		}
	}
	return nil, false
}

// ModuleContaining implements stack.ModuleLookup: it resolves addr to
// the pe.Image of its containing module, so the unwinder can read that
// module's .pdata directly.
func (p *Process) ModuleContaining(addr uint64) (*pe.Image, bool) {
	m, ok := p.ModuleByAddress(addr)
	if !ok {
		return nil, false
	}
	return m.Image, true
}

// NameToAddress resolves a "module!symbol" query to an absolute address,
// as the original's name_to_address does.
func (p *Process) NameToAddress(query string) (uint64, error) {
	parts := strings.SplitN(query, "!", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("weevil/process: expected module!symbol, got %q", query)
	}
	mod, ok := p.ModuleByName(parts[0])
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownModuleName, parts[0])
	}
	addr, ok := mod.ResolveFunction(parts[1])
	if !ok {
		return 0, fmt.Errorf("%w: %s!%s", ErrUnknownSymbol, parts[0], parts[1])
	}
	return addr, nil
}

// candidate is one symbol location considered by AddressToName's
// closest-preceding-symbol search.
type candidate struct {
	addr       uint64
	moduleBase uint64
	module     *Module
	name       string
}

// AddressToName finds the symbol whose address is the closest one not
// exceeding addr, searching every loaded module's non-forwarder exports
// and PDB public-function symbols, the way the original's
// address_to_name does — except forwarder exports are skipped here
// (the original's bug: it has no usable RVA to compare, and must not win
// the closest-preceding search). Ties are broken by the highest module
// base address, matching the original.
func (p *Process) AddressToName(addr uint64) (string, error) {
	var best *candidate

	consider := func(c candidate) {
		if c.addr > addr {
			return
		}
		if best == nil || c.addr > best.addr || (c.addr == best.addr && c.moduleBase > best.moduleBase) {
			cc := c
			best = &cc
		}
	}

	for _, m := range p.modules {
		for _, e := range m.Exports {
			if e.IsForwarder() {
				continue // fixed: forwarders carry no usable RVA
			}
			consider(candidate{addr: m.Base + uint64(e.RVA), moduleBase: m.Base, module: m, name: e.Name})
		}
		if m.Symbols != nil {
			for _, sym := range m.Symbols.PublicFunctions() {
				consider(candidate{addr: m.Base + uint64(sym.RVA), moduleBase: m.Base, module: m, name: sym.Name})
			}
		}
	}

	if best == nil {
		return "", fmt.Errorf("%w: no symbol precedes 0x%x", ErrUnknownSymbol, addr)
	}
	offset := addr - best.addr
	if offset == 0 {
		return fmt.Sprintf("%s!%s", best.module.Name(), best.name), nil
	}
	return fmt.Sprintf("%s!%s+0x%s", best.module.Name(), best.name, strconv.FormatUint(offset, 16)), nil
}
