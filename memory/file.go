package memory

import (
	"os"

	"github.com/edsrzf/mmap-go"
)

// FileSource is a Source backed by an mmap'd file, addressed by file
// offset rather than a live process's virtual address. It exists for
// tooling and tests that inspect a PE image on disk instead of a running
// process, mirroring how saferwall/pe's File type mmaps its target.
type FileSource struct {
	f    *os.File
	data mmap.MMap
}

// OpenFile mmaps path read-only and returns a Source over its bytes.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FileSource{f: f, data: data}, nil
}

// Close unmaps the file and releases its handle.
func (s *FileSource) Close() error {
	if s.data != nil {
		_ = s.data.Unmap()
	}
	return s.f.Close()
}

func (s *FileSource) ReadMemory(addr uint64, buf []byte) error {
	if addr+uint64(len(buf)) > uint64(len(s.data)) {
		return ErrNotEnoughData
	}
	copy(buf, s.data[addr:addr+uint64(len(buf))])
	return nil
}
