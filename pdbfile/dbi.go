package pdbfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const dbiStreamIndex = 3

// dbiHeader is the fixed portion of the DBI stream.
type dbiHeader struct {
	VersionSignature        int32
	VersionHeader           uint32
	Age                     uint32
	GlobalStreamIndex       uint16
	BuildNumber             uint16
	PublicStreamIndex       uint16
	PdbDllVersion           uint16
	SymRecordStream         uint16
	PdbDllRbld              uint16
	ModInfoSize             int32
	SectionContributionSize int32
	SectionMapSize          int32
	SourceInfoSize          int32
	TypeServerMapSize       int32
	MFCTypeServerIndex      uint32
	OptionalDbgHeaderSize   int32
	ECSubstreamSize         int32
	Flags                   uint16
	Machine                 uint16
	Padding                 uint32
}

// moduleInfoFixed is the fixed-size prefix of a DBI ModInfo record; the
// module name and object file name follow as NUL-terminated strings.
type moduleInfoFixed struct {
	Unused1           uint32
	SCSection         int16
	SCPadding1        int16
	SCOffset          int32
	SCSize            int32
	SCCharacteristics uint32
	SCModuleIndex     int16
	SCPadding2        int16
	SCDataCrc         uint32
	SCRelocCrc        uint32
	Flags             uint16
	ModuleSymStream   uint16
	SymByteSize       uint32
	C11ByteSize       uint32
	C13ByteSize       uint32
	SourceFileCount   uint16
	Padding           uint16
	Unused2           uint32
	SourceFileNameIdx uint32
	PdbFilePathNameIdx uint32
}

// ModuleInfo is one DBI module entry: enough to locate its symbol stream.
type ModuleInfo struct {
	Name            string
	ObjFile         string
	SymStreamIndex  int // -1 when the module carries no symbols
	SymByteSize     uint32
}

// dbiInfo holds the parsed pieces of the DBI stream this package needs.
type dbiInfo struct {
	modules   []ModuleInfo
	sectionVA []uint32
}

func readDBI(pf *File) (*dbiInfo, error) {
	raw, err := pf.ReadStream(dbiStreamIndex)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(raw)
	var hdr dbiHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}
	if hdr.VersionSignature != -1 {
		return nil, fmt.Errorf("weevil/pdbfile: unexpected DBI version signature %d", hdr.VersionSignature)
	}

	modBytes := make([]byte, hdr.ModInfoSize)
	if _, err := r.Read(modBytes); err != nil {
		return nil, err
	}

	modules, err := parseModuleInfos(modBytes)
	if err != nil {
		return nil, err
	}

	skip := int64(hdr.SectionContributionSize) + int64(hdr.SectionMapSize) +
		int64(hdr.SourceInfoSize) + int64(hdr.TypeServerMapSize)
	if hdr.ECSubstreamSize > 0 {
		skip += int64(hdr.ECSubstreamSize)
	}
	if _, err := r.Seek(skip, 1); err != nil {
		return nil, err
	}

	var sectionHeaderStream int = -1
	if hdr.OptionalDbgHeaderSize > 0 {
		n := int(hdr.OptionalDbgHeaderSize) / 2
		indices := make([]uint16, n)
		if err := binary.Read(r, binary.LittleEndian, &indices); err == nil {
			const sectionHdrSlot = 5
			if len(indices) > sectionHdrSlot && indices[sectionHdrSlot] != 0xFFFF {
				sectionHeaderStream = int(indices[sectionHdrSlot])
			}
		}
	}

	var sectionVA []uint32
	if sectionHeaderStream >= 0 {
		raw, err := pf.ReadStream(sectionHeaderStream)
		if err == nil {
			sectionVA = parseSectionHeaders(raw)
		}
	}

	return &dbiInfo{modules: modules, sectionVA: sectionVA}, nil
}

// parseSectionHeaders reads 40-byte IMAGE_SECTION_HEADER records; only
// VirtualAddress is needed to translate a CodeView section:offset pair
// into an RVA.
func parseSectionHeaders(raw []byte) []uint32 {
	const recSize = 40
	n := len(raw) / recSize
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		rec := raw[i*recSize : (i+1)*recSize]
		out[i] = binary.LittleEndian.Uint32(rec[12:16]) // VirtualAddress field offset
	}
	return out
}

// rva translates a 1-based CodeView section index and in-section offset
// into an RVA, the "address map" spec.md refers to.
func (d *dbiInfo) rva(section uint16, offset uint32) (uint32, bool) {
	if section == 0 || int(section) > len(d.sectionVA) {
		return 0, false
	}
	return d.sectionVA[section-1] + offset, true
}

func parseModuleInfos(buf []byte) ([]ModuleInfo, error) {
	var mods []ModuleInfo
	for len(buf) > 0 {
		if len(buf) < 64 {
			break
		}
		var fixed moduleInfoFixed
		r := bytes.NewReader(buf)
		if err := binary.Read(r, binary.LittleEndian, &fixed); err != nil {
			return nil, err
		}
		off := 64 // sizeof(moduleInfoFixed)

		name, n := readCString(buf[off:])
		off += n
		objFile, n := readCString(buf[off:])
		off += n

		off = align4(off)

		symStream := -1
		if fixed.ModuleSymStream != 0xFFFF {
			symStream = int(fixed.ModuleSymStream)
		}
		mods = append(mods, ModuleInfo{
			Name:           name,
			ObjFile:        objFile,
			SymStreamIndex: symStream,
			SymByteSize:    fixed.SymByteSize,
		})

		if off > len(buf) {
			break
		}
		buf = buf[off:]
	}
	return mods, nil
}

func readCString(buf []byte) (string, int) {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), i + 1
		}
	}
	return string(buf), len(buf)
}

func align4(n int) int {
	return (n + 3) &^ 3
}
