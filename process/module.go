// Package process maintains the debuggee's module and thread registry
// and resolves symbols against it, grounded on the original's
// kafer-core/src/processes.rs.
package process

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/saferwall/weevil/pdbfile"
	"github.com/saferwall/weevil/pe"
)

// AddressSource distinguishes where a resolved symbol address came
// from, mirroring the original's AddressMatch enum.
type AddressSource int

const (
	AddressNone AddressSource = iota
	AddressExport
	AddressPublic
)

// Module is one loaded PE image plus everything resolved about it: its
// exports and, when present, its PDB symbol source.
type Module struct {
	name  string
	Base  uint64
	Size  uint32
	Image *pe.Image

	Exports []pe.Export
	PDBPath string
	Symbols *pdbfile.SymbolSource // nil when no PDB was found or it failed to parse
}

// Name returns the module's display name, falling back to
// "module_<HEXBASE>" when no name was recorded — the same fallback the
// original's Module::name uses for modules whose path couldn't be
// resolved.
func (m *Module) Name() string {
	if m.name != "" {
		return m.name
	}
	return fmt.Sprintf("module_%X", m.Base)
}

// SetName records the module's resolved path/name.
func (m *Module) SetName(name string) { m.name = name }

// ContainsAddress reports whether addr falls inside this module's
// mapped image.
func (m *Module) ContainsAddress(addr uint64) bool {
	return addr >= m.Base && addr < m.Base+uint64(m.Size)
}

// nameEquals compares two module names the way the original's
// name_equals does: case-insensitive, and falling back to comparing
// only the last path component so "C:\\Windows\\System32\\ntdll.dll"
// matches a bare "ntdll.dll" query.
func nameEquals(a, b string) bool {
	if strings.EqualFold(a, b) {
		return true
	}
	return strings.EqualFold(filepath.Base(a), filepath.Base(b))
}

// ResolveFunction looks up name among this module's exports first, then
// falls back to its PDB's procedure symbols — the original's
// Module::resolve_function order.
func (m *Module) ResolveFunction(name string) (uint64, bool) {
	for _, e := range m.Exports {
		if e.Name == name && !e.IsForwarder() {
			return m.Base + uint64(e.RVA), true
		}
	}
	if m.Symbols != nil {
		if rva, ok := m.Symbols.ResolveProcedure(name); ok {
			return m.Base + uint64(rva), true
		}
	}
	return 0, false
}
