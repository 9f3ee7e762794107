package pe

// ImageDOSHeader is the MS-DOS stub header preceding every PE image,
// named and laid out as saferwall/pe's dosheader.go defines it.
type ImageDOSHeader struct {
	EMagic    uint16
	ECblp     uint16
	ECp       uint16
	ECrlc     uint16
	ECparhdr  uint16
	EMinalloc uint16
	EMaxalloc uint16
	ESS       uint16
	ESP       uint16
	ECsum     uint16
	EIP       uint16
	ECS       uint16
	ELfarlc   uint16
	EOvno     uint16
	ERes      [4]uint16
	EOemid    uint16
	EOeminfo  uint16
	ERes2     [10]uint16
	ELfanew   uint32
}

// ImageFileHeader is IMAGE_FILE_HEADER.
type ImageFileHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

// ImageDataDirectory is IMAGE_DATA_DIRECTORY.
type ImageDataDirectory struct {
	VirtualAddress uint32
	Size           uint32
}

// ImageOptionalHeader64 is the PE32+ IMAGE_OPTIONAL_HEADER64 with every
// field declared, so offsets line up for anyone cross-checking against
// winnt.h; weevil reads Magic, SizeOfImage and the data directory array.
type ImageOptionalHeader64 struct {
	Magic                       uint16
	MajorLinkerVersion          uint8
	MinorLinkerVersion          uint8
	SizeOfCode                  uint32
	SizeOfInitializedData       uint32
	SizeOfUninitializedData     uint32
	AddressOfEntryPoint         uint32
	BaseOfCode                  uint32
	ImageBase                   uint64
	SectionAlignment            uint32
	FileAlignment               uint32
	MajorOperatingSystemVersion uint16
	MinorOperatingSystemVersion uint16
	MajorImageVersion           uint16
	MinorImageVersion           uint16
	MajorSubsystemVersion       uint16
	MinorSubsystemVersion       uint16
	Win32VersionValue           uint32
	SizeOfImage                 uint32
	SizeOfHeaders                uint32
	CheckSum                     uint32
	Subsystem                    uint16
	DllCharacteristics           uint16
	SizeOfStackReserve           uint64
	SizeOfStackCommit            uint64
	SizeOfHeapReserve            uint64
	SizeOfHeapCommit             uint64
	LoaderFlags                  uint32
	NumberOfRvaAndSizes          uint32
	DataDirectory                [ImageNumberOfDirectoryEntries]ImageDataDirectory
}

// ImageNtHeaders64 is IMAGE_NT_HEADERS64.
type ImageNtHeaders64 struct {
	Signature      uint32
	FileHeader     ImageFileHeader
	OptionalHeader ImageOptionalHeader64
}
