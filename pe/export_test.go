package pe

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferwall/weevil/memory"
)

// buildExportImage lays out a minimal export directory plus its three
// parallel RVA arrays and backing strings, the way a real PE export
// section would, so Exports() can be exercised without a real binary.
func buildExportImage() *memory.ByteSource {
	const (
		dirRVA   = 0x200
		dirSize  = 0x100 // forwarder range is [0x200, 0x300)
		funcsRVA = 0x300
		namesRVA = 0x320
		ordsRVA  = 0x340
		realName = 0x360
		fwdName  = 0x280 // inside the directory's own range, past its 40-byte header: a forwarder string
	)

	var b bytes.Buffer
	hdr := ImageExportDirectory{
		NumberOfFunctions:     2,
		NumberOfNames:         1,
		AddressOfFunctions:    funcsRVA,
		AddressOfNames:        namesRVA,
		AddressOfNameOrdinals: ordsRVA,
	}
	binary.Write(&b, binary.LittleEndian, &hdr)
	dirBytes := b.Bytes()

	data := make([]byte, 0x400)
	copy(data[dirRVA:], dirBytes)

	binary.LittleEndian.PutUint32(data[funcsRVA:], 0x500)    // ordinal 0: real function at RVA 0x500
	binary.LittleEndian.PutUint32(data[funcsRVA+4:], fwdName) // ordinal 1: forwarder, RVA falls inside dir range

	binary.LittleEndian.PutUint32(data[namesRVA:], realName)
	binary.LittleEndian.PutUint16(data[ordsRVA:], 0) // "RealFunc" names ordinal index 0

	copy(data[realName:], "RealFunc\x00")
	copy(data[fwdName:], "OTHER.dll.TheirFunc\x00")

	return &memory.ByteSource{Base: 0x10000, Data: data}
}

func TestExportsClassifiesForwarderByRVARange(t *testing.T) {
	src := buildExportImage()
	img := &Image{Base: 0x10000, src: src}
	img.NtHeaders.OptionalHeader.DataDirectory[ImageDirectoryEntryExport] = ImageDataDirectory{
		VirtualAddress: 0x200, Size: 0x100,
	}

	exports, err := img.Exports()
	require.NoError(t, err)
	require.Len(t, exports, 2)

	var real, fwd *Export
	for i := range exports {
		if exports[i].IsForwarder() {
			fwd = &exports[i]
		} else {
			real = &exports[i]
		}
	}

	require.NotNil(t, real)
	assert.Equal(t, "RealFunc", real.Name)
	assert.Equal(t, uint32(0x500), real.RVA)

	require.NotNil(t, fwd)
	assert.Equal(t, "OTHER.dll.TheirFunc", fwd.Forwarder)
	assert.True(t, fwd.IsForwarder())
}

func TestExportsEmptyDirectoryReturnsNil(t *testing.T) {
	img := &Image{Base: 0x10000, src: &memory.ByteSource{Base: 0x10000, Data: make([]byte, 16)}}
	exports, err := img.Exports()
	require.NoError(t, err)
	assert.Nil(t, exports)
}
