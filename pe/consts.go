// Package pe parses the subset of the PE/PE+ format weevil's module
// introspection pipeline needs — DOS header, NT headers, export
// directory (with forwarders), CodeView debug directory, and the x64
// exception (.pdata) directory — reading through a memory.Source instead
// of a file's mmap'd bytes, the way saferwall/pe reads from a byte slice.
package pe

// DOS/NT signatures, named as saferwall/pe names them.
const (
	ImageDOSSignature = 0x5A4D // MZ
	ImageNTSignature   = 0x00004550
)

// ImageNtOptionalHeader64Magic identifies a PE32+ optional header; this
// module only supports 64-bit images (see Non-goals).
const ImageNtOptionalHeader64Magic = 0x20b

// ImageFileMachineAMD64 is the only FileHeader.Machine value this
// debugger accepts.
const ImageFileMachineAMD64 = 0x8664

// Data directory indices, named as saferwall/pe's ImageDirectoryEntry
// enum names them.
const (
	ImageDirectoryEntryExport    = 0
	ImageDirectoryEntryDebug     = 6
	ImageDirectoryEntryException = 3
	ImageNumberOfDirectoryEntries = 16
)

// Debug directory types.
const (
	ImageDebugTypeCodeView = 2
)

// CVSignatureRSDS identifies a PDB 7.0 ("RSDS") CodeView record, the
// only PDB age/GUID format modern toolchains emit.
const CVSignatureRSDS = 0x53445352
