package process

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/xyproto/env/v2"

	"github.com/saferwall/weevil/internal/xlog"
	"github.com/saferwall/weevil/memory"
	"github.com/saferwall/weevil/pdbfile"
	"github.com/saferwall/weevil/pe"
)

// pdbSearchPathVar names the environment variable carrying extra
// directories to search for a PDB when the embedded CodeView path is
// stale, supplementing spec.md's ambient configuration surface.
const pdbSearchPathVar = "WEEVIL_PDB_SEARCH_PATH"

// BuildModule reads and classifies the PE image mapped at base in src,
// following the original's ModuleBuilder::build: parse headers, read
// exports, read the debug directory, and attempt (non-fatally) to load
// the referenced PDB. name is the module's resolved path if known (from
// LOAD_DLL_DEBUG_INFO/CREATE_PROCESS_DEBUG_INFO), or "" to fall back to
// the module_<HEX> naming.
func BuildModule(src memory.Source, base uint64, name string, log *xlog.Helper) (*Module, error) {
	img, err := pe.Parse(src, base)
	if err != nil {
		return nil, err
	}

	m := &Module{Base: base, Size: img.SizeOfImage(), Image: img}
	m.SetName(name)

	exports, err := img.Exports()
	if err != nil {
		if log != nil {
			log.Debugf("module %s: export directory parse failed: %v", m.Name(), err)
		}
	} else {
		m.Exports = exports
	}

	pdbInfo, err := img.DebugDirectoryPDB()
	if err != nil || pdbInfo == nil {
		return m, nil
	}
	m.PDBPath = pdbInfo.Path

	path := resolvePDBPath(pdbInfo.Path)
	if path == "" {
		if log != nil {
			log.Warnf("module %s: PDB %s not found", m.Name(), pdbInfo.Path)
		}
		return m, nil
	}

	syms, err := pdbfile.Load(path)
	if err != nil {
		if log != nil {
			log.Warnf("module %s: PDB load failed: %v", m.Name(), err)
		}
		return m, nil
	}
	m.Symbols = syms
	return m, nil
}

// resolvePDBPath returns embeddedPath if it exists, otherwise searches
// WEEVIL_PDB_SEARCH_PATH (a PATH-style list) for a file with the same
// base name. Returns "" if nothing is found.
func resolvePDBPath(embeddedPath string) string {
	if embeddedPath == "" {
		return ""
	}
	if _, err := os.Stat(embeddedPath); err == nil {
		return embeddedPath
	}
	base := filepath.Base(embeddedPath)
	searchPath := env.Str(pdbSearchPathVar)
	for _, dir := range strings.Split(searchPath, string(os.PathListSeparator)) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, base)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
