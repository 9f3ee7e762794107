// Package memory defines the abstract byte-addressable source that every
// higher-level weevil component reads through, and the generic helpers
// derived from it: fixed-size reads, arrays, NUL-terminated strings.
package memory

import (
	"bytes"
	"encoding/binary"
	"errors"
	"unsafe"

	"golang.org/x/text/encoding/unicode"
)

// ErrNotEnoughData is returned when a read runs past what the source can
// supply, e.g. an export table pointing outside its module's mapped size.
var ErrNotEnoughData = errors.New("weevil: not enough data at address")

// Source is anything that can read raw bytes from a process's address
// space (or a stand-in for one, such as an in-memory image of a PE file
// read from disk for tests). Addresses are absolute (not RVAs).
type Source interface {
	// ReadMemory reads len(buf) bytes starting at addr into buf. It
	// returns ErrNotEnoughData (wrapped) if fewer bytes are available.
	ReadMemory(addr uint64, buf []byte) error
}

// ReadRaw reads exactly n bytes at addr.
func ReadRaw(s Source, addr uint64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := s.ReadMemory(addr, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadValue decodes a fixed-size little-endian value of type T at addr.
func ReadValue[T any](s Source, addr uint64) (T, error) {
	var v T
	buf := make([]byte, unsafe.Sizeof(v))
	if err := s.ReadMemory(addr, buf); err != nil {
		return v, err
	}
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &v); err != nil {
		return v, err
	}
	return v, nil
}

// ReadArray decodes count little-endian values of type T starting at
// addr, exactly: any element short of the full count fails the whole
// call. Use ReadArrayPartial where a truncated table should still
// parse as far as it can.
func ReadArray[T any](s Source, addr uint64, count int) ([]T, error) {
	out := make([]T, count)
	var zero T
	stride := uint64(unsafe.Sizeof(zero))
	buf, err := ReadRaw(s, addr, int(stride)*count)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(buf)
	for i := 0; i < count; i++ {
		if err := binary.Read(r, binary.LittleEndian, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ReadArrayPartial decodes up to count little-endian values of type T
// starting at addr, stopping at the first element it cannot read in
// full rather than failing the whole call — the best-effort counterpart
// to ReadArray's all-or-nothing semantics, for tables (an export
// directory's RVA arrays, a .pdata RUNTIME_FUNCTION table) that a
// corrupted or truncated image may only partly back. Returns an error
// only when not even the first element could be read.
func ReadArrayPartial[T any](s Source, addr uint64, count int) ([]T, error) {
	var zero T
	stride := uint64(unsafe.Sizeof(zero))
	out := make([]T, 0, count)
	for i := 0; i < count; i++ {
		v, err := ReadValue[T](s, addr+uint64(i)*stride)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			break
		}
		out = append(out, v)
	}
	return out, nil
}

// ReadSparse reads up to n bytes at addr on a best-effort, per-byte
// basis: ok[i] reports whether buf[i] was actually backed by readable
// memory, mirroring the original's read_sparse returning Option<u8> per
// byte instead of failing the whole read. Most callers want ReadRaw's
// all-or-nothing semantics; ReadSparse exists for callers (disassembly
// around a possibly-unmapped page boundary) that must show whatever is
// actually there.
func ReadSparse(s Source, addr uint64, n int) (buf []byte, ok []bool) {
	buf = make([]byte, n)
	ok = make([]bool, n)
	if err := s.ReadMemory(addr, buf); err == nil {
		for i := range ok {
			ok[i] = true
		}
		return buf, ok
	}
	for i := 0; i < n; i++ {
		var b [1]byte
		if err := s.ReadMemory(addr+uint64(i), b[:]); err == nil {
			buf[i] = b[0]
			ok[i] = true
		}
	}
	return buf, ok
}

// ReadCString reads up to max bytes at addr and returns the string up to
// the first NUL, or an error if no NUL is found within max bytes. When
// fewer than max bytes are readable it reads byte by byte, stopping at the
// NUL or at the first unreadable byte.
func ReadCString(s Source, addr uint64, max int) (string, error) {
	buf := make([]byte, max)
	if err := s.ReadMemory(addr, buf); err != nil {
		buf = buf[:0]
		for i := 0; i < max; i++ {
			var b [1]byte
			if err := s.ReadMemory(addr+uint64(i), b[:]); err != nil {
				break
			}
			buf = append(buf, b[0])
			if b[0] == 0 {
				break
			}
		}
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return string(buf[:i]), nil
	}
	return "", ErrNotEnoughData
}

// ReadWideString reads a NUL-terminated UTF-16LE string at addr, scanning
// in codeUnitChunks of 2 bytes at a time up to max bytes.
func ReadWideString(s Source, addr uint64, max int) (string, error) {
	raw := make([]byte, 0, 64)
	for off := 0; off < max; off += 2 {
		var unit [2]byte
		if err := s.ReadMemory(addr+uint64(off), unit[:]); err != nil {
			return "", err
		}
		if unit[0] == 0 && unit[1] == 0 {
			dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
			out, err := dec.Bytes(raw)
			if err != nil {
				return "", err
			}
			return string(out), nil
		}
		raw = append(raw, unit[0], unit[1])
	}
	return "", ErrNotEnoughData
}
