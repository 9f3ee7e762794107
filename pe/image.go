package pe

import (
	"github.com/saferwall/weevil/memory"
)

// Image is a parsed view of a PE image mapped at Base in some
// memory.Source, generalizing saferwall/pe's file.File to a live or
// file-backed address space rather than an mmap'd byte slice.
type Image struct {
	Base       uint64
	src        memory.Source
	DOSHeader  ImageDOSHeader
	NtHeaders  ImageNtHeaders64
}

// Parse reads and validates the DOS header and NT headers of the image
// mapped at base in src, following saferwall/pe's ParseDOSHeader and the
// start of ParseNTHeader: MZ signature, PE signature at e_lfanew, PE32+
// magic, and machine type. e_lfanew itself is not range-checked; an
// unreadable NT header fails the read instead.
func Parse(src memory.Source, base uint64) (*Image, error) {
	img := &Image{Base: base, src: src}

	dos, err := memory.ReadValue[ImageDOSHeader](src, base)
	if err != nil {
		return nil, err
	}
	if dos.EMagic != ImageDOSSignature {
		return nil, ErrDOSMagicNotFound
	}
	img.DOSHeader = dos

	nt, err := memory.ReadValue[ImageNtHeaders64](src, base+uint64(dos.ELfanew))
	if err != nil {
		return nil, err
	}
	if nt.Signature != ImageNTSignature {
		return nil, ErrNTSignatureNotFound
	}
	if nt.OptionalHeader.Magic != ImageNtOptionalHeader64Magic {
		return nil, ErrOptionalHeaderMagic
	}
	if nt.FileHeader.Machine != ImageFileMachineAMD64 {
		return nil, ErrUnsupportedMachine
	}
	img.NtHeaders = nt

	return img, nil
}

// SizeOfImage is the module's mapped size, used by Process to bound
// address-in-module tests.
func (img *Image) SizeOfImage() uint32 {
	return img.NtHeaders.OptionalHeader.SizeOfImage
}

// DataDirectory returns entry i of the optional header's data directory.
func (img *Image) DataDirectory(i int) ImageDataDirectory {
	return img.NtHeaders.OptionalHeader.DataDirectory[i]
}

// rvaToAddr translates an RVA to an absolute address in this image's
// source, the live-process analogue of saferwall/pe's getOffsetFromRva.
func (img *Image) rvaToAddr(rva uint32) uint64 {
	return img.Base + uint64(rva)
}

// Source exposes the underlying memory.Source for callers (e.g. the
// PDB loader resolving symbols within this module) that must read
// outside the header structures this package models directly.
func (img *Image) Source() memory.Source { return img.src }
