package pdbfile

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBIInfoRVATranslatesSectionOffset(t *testing.T) {
	d := &dbiInfo{sectionVA: []uint32{0x1000, 0x2000}}

	rva, ok := d.rva(1, 0x40)
	require.True(t, ok)
	assert.Equal(t, uint32(0x1040), rva)

	rva, ok = d.rva(2, 0x10)
	require.True(t, ok)
	assert.Equal(t, uint32(0x2010), rva)
}

func TestDBIInfoRVARejectsOutOfRangeSection(t *testing.T) {
	d := &dbiInfo{sectionVA: []uint32{0x1000}}
	_, ok := d.rva(0, 0)
	assert.False(t, ok)
	_, ok = d.rva(5, 0)
	assert.False(t, ok)
}

// record builds a length-prefixed CodeView record: uint16 length (covers
// everything after the length field), uint16 kind, then payload.
func record(kind uint16, payload []byte) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, uint16(len(payload)+2))
	binary.Write(&b, binary.LittleEndian, kind)
	b.Write(payload)
	return b.Bytes()
}

func gprocPayload(name string, offset uint32, section uint16) []byte {
	var b bytes.Buffer
	fixed := procSymFixed{Offset: offset, Section: section}
	binary.Write(&b, binary.LittleEndian, &fixed)
	b.WriteString(name)
	b.WriteByte(0)
	return b.Bytes()
}

func pubPayload(name string, offset uint32, section uint16, flags uint32) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, flags)
	binary.Write(&b, binary.LittleEndian, offset)
	binary.Write(&b, binary.LittleEndian, section)
	b.WriteString(name)
	b.WriteByte(0)
	return b.Bytes()
}

func TestParseModuleSymbolsProcAndPublic(t *testing.T) {
	d := &dbiInfo{sectionVA: []uint32{0x1000}} // section 1 -> VA 0x1000

	var stream bytes.Buffer
	binary.Write(&stream, binary.LittleEndian, uint32(4)) // CV signature, skipped
	stream.Write(record(symGProc32, gprocPayload("DoWork", 0x20, 1)))
	stream.Write(record(symPub32, pubPayload("?ExportedThing@@YAXXZ", 0x30, 1, pubFlagFunction)))
	stream.Write(record(symPub32, pubPayload("NotAFunction", 0x40, 1, 0)))

	procs, pubs := parseModuleSymbols(stream.Bytes(), d)

	require.Len(t, procs, 1)
	assert.Equal(t, "DoWork", procs[0].Name)
	assert.Equal(t, uint32(0x1020), procs[0].RVA)

	require.Len(t, pubs, 1, "the non-function PUBSYM32 must be filtered out")
	assert.Equal(t, "?ExportedThing@@YAXXZ", pubs[0].Name)
	assert.Equal(t, uint32(0x1030), pubs[0].RVA)
}

func TestSymbolSourceResolveProcedure(t *testing.T) {
	s := &SymbolSource{procedures: []Procedure{{Name: "Foo", RVA: 0x10}}}
	rva, ok := s.ResolveProcedure("Foo")
	assert.True(t, ok)
	assert.Equal(t, uint32(0x10), rva)

	_, ok = s.ResolveProcedure("Bar")
	assert.False(t, ok)
}
