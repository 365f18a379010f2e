package elf

import (
	"bytes"
	goelf "debug/elf"
	"encoding/binary"

	"github.com/M3str3/HexSpell/go/field"
)

const (
	shdr32Size = 40
	shdr64Size = 64
)

type SectionHeader struct {
	// Name is resolved from the section name string table.
	Name string

	NameIndex field.Field[uint32]
	Type      field.Field[uint32]
	Flags     field.Field[uint64]
	Addr      field.Field[uint64]
	Offset    field.Field[uint64]
	Size      field.Field[uint64]
	Link      field.Field[uint32]
	Info      field.Field[uint32]
	Addralign field.Field[uint64]
	Entsize   field.Field[uint64]
}

func parseSectionHeaders(buf []byte, h *Header, order binary.ByteOrder) ([]*SectionHeader, error) {
	var sections []*SectionHeader
	minSize := shdr32Size
	if h.Is64() {
		minSize = shdr64Size
	}
	err := walk(buf, h.Shoff.Value, h.Shnum.Value, h.Shentsize.Value, minSize, func(base int) error {
		r := field.NewReader(buf, order)
		s := &SectionHeader{
			NameIndex: r.U32(base),
			Type:      r.U32(base + 4),
		}
		if h.Is64() {
			s.Flags = r.Addr(base+8, 8)
			s.Addr = r.Addr(base+16, 8)
			s.Offset = r.Addr(base+24, 8)
			s.Size = r.Addr(base+32, 8)
			s.Link = r.U32(base + 40)
			s.Info = r.U32(base + 44)
			s.Addralign = r.Addr(base+48, 8)
			s.Entsize = r.Addr(base+56, 8)
		} else {
			s.Flags = r.Addr(base+8, 4)
			s.Addr = r.Addr(base+12, 4)
			s.Offset = r.Addr(base+16, 4)
			s.Size = r.Addr(base+20, 4)
			s.Link = r.U32(base + 24)
			s.Info = r.U32(base + 28)
			s.Addralign = r.Addr(base+32, 4)
			s.Entsize = r.Addr(base+36, 4)
		}
		if r.Err != nil {
			return r.Err
		}
		sections = append(sections, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if int(h.Shstrndx.Value) < len(sections) {
		strtab := sections[h.Shstrndx.Value]
		for _, s := range sections {
			s.Name = cstring(buf, strtab.Offset.Value, strtab.Size.Value, uint64(s.NameIndex.Value))
		}
	}
	return sections, nil
}

// cstring reads a NUL terminated string at idx inside the table at
// [off, off+size). Out of range lookups return "".
func cstring(buf []byte, off, size, idx uint64) string {
	if !field.Fits(buf, off, size) || idx >= size {
		return ""
	}
	tab := buf[off+idx : off+size]
	if i := bytes.IndexByte(tab, 0); i >= 0 {
		tab = tab[:i]
	}
	return string(tab)
}

// Data returns the section contents, or nil for NOBITS and out of range sections.
func (s *SectionHeader) Data(buf []byte) []byte {
	if s.Type.Value == uint32(goelf.SHT_NOBITS) {
		return nil
	}
	p, err := field.Slice(buf, s.Offset.Value, s.Size.Value)
	if err != nil {
		return nil
	}
	return p
}

func (s *SectionHeader) Fields() []field.Named {
	return []field.Named{
		{Name: "name", Field: &s.NameIndex},
		{Name: "type", Field: &s.Type},
		{Name: "flags", Field: &s.Flags},
		{Name: "addr", Field: &s.Addr},
		{Name: "offset", Field: &s.Offset},
		{Name: "size", Field: &s.Size},
		{Name: "link", Field: &s.Link},
		{Name: "info", Field: &s.Info},
		{Name: "addralign", Field: &s.Addralign},
		{Name: "entsize", Field: &s.Entsize},
	}
}
