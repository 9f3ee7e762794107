package pe

import "github.com/saferwall/weevil/memory"

// ImageExportDirectory is IMAGE_EXPORT_DIRECTORY, named as
// saferwall/pe's (unretrieved) exports.go names it.
type ImageExportDirectory struct {
	Characteristics       uint32
	TimeDateStamp         uint32
	MajorVersion          uint16
	MinorVersion          uint16
	Name                  uint32
	Base                  uint32
	NumberOfFunctions     uint32
	NumberOfNames         uint32
	AddressOfFunctions    uint32
	AddressOfNames        uint32
	AddressOfNameOrdinals uint32
}

// Export is one resolved export entry. Forwarder is non-empty when the
// export redirects to another module ("OtherDll.OtherFunc") instead of
// naming code in this image, mirroring the original's ExportTarget enum.
type Export struct {
	Name      string
	Ordinal   uint32
	RVA       uint32 // meaningless when Forwarder != ""
	Forwarder string
}

// IsForwarder reports whether this export redirects elsewhere.
func (e Export) IsForwarder() bool { return e.Forwarder != "" }

// Exports walks the export directory following the exact algorithm in
// the original's processes.rs read_exports: read the directory header,
// the three parallel RVA arrays (functions by ordinal, names, name→
// ordinal mapping), and classify each function RVA as a forwarder when
// it falls inside the export directory's own [VirtualAddress,
// VirtualAddress+Size) range — the documented test for "this function
// pointer is actually a forwarder string."
func (img *Image) Exports() ([]Export, error) {
	dir := img.DataDirectory(ImageDirectoryEntryExport)
	if dir.VirtualAddress == 0 || dir.Size == 0 {
		return nil, nil
	}

	expDir, err := memory.ReadValue[ImageExportDirectory](img.src, img.rvaToAddr(dir.VirtualAddress))
	if err != nil {
		return nil, err
	}

	// Best-effort: a corrupted or truncated export/function table should
	// still yield whatever entries precede the truncation, rather than
	// failing the whole directory.
	functions, err := memory.ReadArrayPartial[uint32](img.src, img.rvaToAddr(expDir.AddressOfFunctions), int(expDir.NumberOfFunctions))
	if err != nil {
		return nil, err
	}

	names := make([]uint32, 0)
	nameOrdinals := make([]uint16, 0)
	if expDir.NumberOfNames > 0 {
		names, err = memory.ReadArrayPartial[uint32](img.src, img.rvaToAddr(expDir.AddressOfNames), int(expDir.NumberOfNames))
		if err != nil {
			return nil, err
		}
		nameOrdinals, err = memory.ReadArrayPartial[uint16](img.src, img.rvaToAddr(expDir.AddressOfNameOrdinals), int(expDir.NumberOfNames))
		if err != nil {
			return nil, err
		}
	}

	ordinalToName := make(map[uint16]string, len(names))
	for i, nameRVA := range names {
		name, err := memory.ReadCString(img.src, img.rvaToAddr(nameRVA), 512)
		if err != nil {
			continue
		}
		if i < len(nameOrdinals) {
			ordinalToName[nameOrdinals[i]] = name
		}
	}

	rangeStart, rangeEnd := dir.VirtualAddress, dir.VirtualAddress+dir.Size

	exports := make([]Export, 0, len(functions))
	for i, fnRVA := range functions {
		if fnRVA == 0 {
			continue
		}
		e := Export{
			Ordinal: expDir.Base + uint32(i),
			Name:    ordinalToName[uint16(i)],
		}
		if fnRVA >= rangeStart && fnRVA < rangeEnd {
			fwd, err := memory.ReadCString(img.src, img.rvaToAddr(fnRVA), 512)
			if err != nil {
				continue
			}
			e.Forwarder = fwd
		} else {
			e.RVA = fnRVA
		}
		exports = append(exports, e)
	}
	return exports, nil
}
