package pe

import (
	"unsafe"

	"github.com/saferwall/weevil/memory"
)

// ImageDebugDirectory is IMAGE_DEBUG_DIRECTORY, named as saferwall/pe's
// debug.go names it.
type ImageDebugDirectory struct {
	Characteristics  uint32
	TimeDateStamp    uint32
	MajorVersion     uint16
	MinorVersion     uint16
	Type             uint32
	SizeOfData       uint32
	AddressOfRawData uint32
	PointerToRawData uint32
}

// maxDebugDirectoryEntries bounds how many IMAGE_DEBUG_DIRECTORY entries
// this parser will walk, matching the original's read_debug_info cap.
const maxDebugDirectoryEntries = 20

// cvInfoPDB70Header is the fixed portion of a CV_INFO_PDB70 record; the
// NUL-terminated PDB path follows immediately after in memory.
type cvInfoPDB70Header struct {
	CVSignature uint32
	Signature   [16]byte // GUID
	Age         uint32
}

// PDBInfo is the resolved CodeView PDB70 record: the {signature, guid,
// age} triple used to validate a PDB file against its image, plus the
// embedded path the linker recorded.
type PDBInfo struct {
	GUID [16]byte
	Age  uint32
	Path string
}

// DebugDirectoryPDB walks the debug directory looking for a CodeView
// entry and returns its decoded PDB70 record, or (nil, nil) if the image
// carries no CodeView debug directory. Per spec, any failure while
// reading an individual entry is skipped rather than fatal — PDB loading
// is never required for a module to be usable.
func (img *Image) DebugDirectoryPDB() (*PDBInfo, error) {
	dir := img.DataDirectory(ImageDirectoryEntryDebug)
	if dir.VirtualAddress == 0 || dir.Size == 0 {
		return nil, nil
	}
	count := int(dir.Size) / 28 // sizeof(IMAGE_DEBUG_DIRECTORY)
	if count > maxDebugDirectoryEntries {
		count = maxDebugDirectoryEntries
	}

	entries, err := memory.ReadArray[ImageDebugDirectory](img.src, img.rvaToAddr(dir.VirtualAddress), count)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if e.Type != ImageDebugTypeCodeView {
			continue
		}
		addr := img.rvaToAddr(e.AddressOfRawData)
		hdr, err := memory.ReadValue[cvInfoPDB70Header](img.src, addr)
		if err != nil || hdr.CVSignature != CVSignatureRSDS {
			continue
		}
		path, err := memory.ReadCString(img.src, addr+uint64(unsafe.Sizeof(hdr)), 260)
		if err != nil {
			continue
		}
		return &PDBInfo{GUID: hdr.Signature, Age: hdr.Age, Path: path}, nil
	}
	return nil, nil
}
