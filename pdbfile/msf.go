// Package pdbfile is a minimal reader for the Microsoft Program Database
// (PDB) format: just enough of the MSF container and DBI stream to
// recover procedure and public-function symbols for address resolution.
// No third-party Go library for this format exists in the ecosystem (see
// DESIGN.md); this is grounded on the original's use of the Rust `pdb2`
// crate's semantics (kafer-core/src/processes.rs) and its own
// exploratory hand-rolled reader (query-pdb/src/{lib,parser,code_view}.rs).
package pdbfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// ErrBadSignature is returned when a file doesn't start with the MSF
// magic.
var ErrBadSignature = errors.New("weevil/pdbfile: not an MSF/PDB file")

const msfMagic = "Microsoft C/C++ MSF 7.00\r\n\x1aDS\x00\x00\x00"

// superblock is the MSF file header.
type superblock struct {
	BlockSize          uint32
	FreeBlockMapBlock  uint32
	NumBlocks          uint32
	NumDirectoryBytes  uint32
	Unknown            uint32
	BlockMapAddr       uint32
}

// File is an opened PDB/MSF container with its stream directory resolved.
type File struct {
	f          *os.File
	blockSize  uint32
	streams    [][]uint32 // per-stream list of block indices
	streamSize []uint32   // per-stream byte size
}

// Open reads path's MSF superblock and stream directory.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	pf, err := openFile(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return pf, nil
}

func openFile(f *os.File) (*File, error) {
	magic := make([]byte, len(msfMagic))
	if _, err := f.ReadAt(magic, 0); err != nil {
		return nil, err
	}
	if string(magic) != msfMagic {
		return nil, ErrBadSignature
	}

	var sb superblock
	sbBuf := make([]byte, 24)
	if _, err := f.ReadAt(sbBuf, int64(len(msfMagic))); err != nil {
		return nil, err
	}
	if err := binary.Read(bytes.NewReader(sbBuf), binary.LittleEndian, &sb); err != nil {
		return nil, err
	}

	pf := &File{f: f, blockSize: sb.BlockSize}

	numDirBlocks := ceilDiv(sb.NumDirectoryBytes, sb.BlockSize)
	dirBlockMapBuf := make([]byte, numDirBlocks*4)
	if _, err := f.ReadAt(dirBlockMapBuf, int64(sb.BlockMapAddr)*int64(sb.BlockSize)); err != nil {
		return nil, err
	}
	dirBlocks := make([]uint32, numDirBlocks)
	if err := binary.Read(bytes.NewReader(dirBlockMapBuf), binary.LittleEndian, &dirBlocks); err != nil {
		return nil, err
	}

	dirBytes := make([]byte, 0, sb.NumDirectoryBytes)
	for _, b := range dirBlocks {
		chunk := make([]byte, sb.BlockSize)
		if _, err := f.ReadAt(chunk, int64(b)*int64(sb.BlockSize)); err != nil {
			return nil, err
		}
		dirBytes = append(dirBytes, chunk...)
	}
	dirBytes = dirBytes[:sb.NumDirectoryBytes]

	r := bytes.NewReader(dirBytes)
	var numStreams uint32
	if err := binary.Read(r, binary.LittleEndian, &numStreams); err != nil {
		return nil, err
	}
	streamSizes := make([]uint32, numStreams)
	if err := binary.Read(r, binary.LittleEndian, &streamSizes); err != nil {
		return nil, err
	}
	pf.streamSize = streamSizes
	pf.streams = make([][]uint32, numStreams)
	for i, size := range streamSizes {
		if size == 0xFFFFFFFF {
			pf.streams[i] = nil
			continue
		}
		n := ceilDiv(size, sb.BlockSize)
		blocks := make([]uint32, n)
		if err := binary.Read(r, binary.LittleEndian, &blocks); err != nil {
			return nil, err
		}
		pf.streams[i] = blocks
	}

	return pf, nil
}

func ceilDiv(a, b uint32) uint32 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// Close closes the underlying file.
func (f *File) Close() error { return f.f.Close() }

// NumStreams returns the number of entries in the stream directory.
func (f *File) NumStreams() int { return len(f.streams) }

// ReadStream reads the full contents of stream i.
func (f *File) ReadStream(i int) ([]byte, error) {
	if i < 0 || i >= len(f.streams) {
		return nil, fmt.Errorf("weevil/pdbfile: stream index %d out of range", i)
	}
	blocks := f.streams[i]
	size := f.streamSize[i]
	if size == 0xFFFFFFFF {
		return nil, fmt.Errorf("weevil/pdbfile: stream %d is absent", i)
	}
	out := make([]byte, 0, size)
	for _, b := range blocks {
		chunk := make([]byte, f.blockSize)
		if _, err := f.f.ReadAt(chunk, int64(b)*int64(f.blockSize)); err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	if uint32(len(out)) > size {
		out = out[:size]
	}
	return out, nil
}
