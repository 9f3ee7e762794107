package pdbfile

// SymbolSource is the resolved view of a PDB's symbols a Module keeps
// around for address_to_name/name_to_address queries, analogous to the
// original's ModuleInfo collection plus AddressMap.
type SymbolSource struct {
	procedures []Procedure
	publics    []PublicFunction
}

// Load opens the PDB at path and extracts procedure and public-function
// symbols from every module's symbol stream. Per spec, failures here are
// meant to be treated as non-fatal by the caller (process.BuildModule):
// a module simply keeps Symbols == nil.
func Load(path string) (*SymbolSource, error) {
	pf, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer pf.Close()

	dbi, err := readDBI(pf)
	if err != nil {
		return nil, err
	}

	src := &SymbolSource{}
	for _, mod := range dbi.modules {
		if mod.SymStreamIndex < 0 {
			continue
		}
		raw, err := pf.ReadStream(mod.SymStreamIndex)
		if err != nil {
			continue
		}
		procs, pubs := parseModuleSymbols(raw, dbi)
		src.procedures = append(src.procedures, procs...)
		src.publics = append(src.publics, pubs...)
	}
	return src, nil
}

// ResolveProcedure looks up a named procedure symbol (S_GPROC32/S_LPROC32).
func (s *SymbolSource) ResolveProcedure(name string) (uint32, bool) {
	for _, p := range s.procedures {
		if p.Name == name {
			return p.RVA, true
		}
	}
	return 0, false
}

// PublicFunctions returns every public (S_PUB32, function-flagged)
// symbol, for AddressToName's closest-preceding-symbol search.
func (s *SymbolSource) PublicFunctions() []PublicFunction {
	return s.publics
}
