package elf

import (
	"bytes"
	"encoding/binary"

	"github.com/M3str3/HexSpell/go/field"
	"github.com/M3str3/HexSpell/go/models"
)

const (
	ELFCLASS32 = 1
	ELFCLASS64 = 2

	ELFDATA2LSB = 1
	ELFDATA2MSB = 2

	header32Size = 52
	header64Size = 64
)

var Magic = []byte{0x7f, 'E', 'L', 'F'}

type Header struct {
	Class     field.Field[uint8]
	Data      field.Field[uint8]
	IdentVer  field.Field[uint8]
	OSABI     field.Field[uint8]
	Type      field.Field[uint16]
	Machine   field.Field[uint16]
	Version   field.Field[uint32]
	Entry     field.Field[uint64]
	Phoff     field.Field[uint64]
	Shoff     field.Field[uint64]
	Flags     field.Field[uint32]
	Ehsize    field.Field[uint16]
	Phentsize field.Field[uint16]
	Phnum     field.Field[uint16]
	Shentsize field.Field[uint16]
	Shnum     field.Field[uint16]
	Shstrndx  field.Field[uint16]
}

// identify checks the identification bytes and returns the class and byte
// order they declare.
func identify(buf []byte) (int, binary.ByteOrder, error) {
	if len(buf) < header32Size {
		return 0, nil, models.Overflowf("elf header needs %d bytes, have %d", header32Size, len(buf))
	}
	if !bytes.Equal(buf[:4], Magic) {
		return 0, nil, models.Invalidf("bad elf magic % x", buf[:4])
	}
	class := int(buf[4])
	if class != ELFCLASS32 && class != ELFCLASS64 {
		return 0, nil, models.Invalidf("unknown elf class %d", class)
	}
	var order binary.ByteOrder
	switch buf[5] {
	case ELFDATA2LSB:
		order = binary.LittleEndian
	case ELFDATA2MSB:
		order = binary.BigEndian
	default:
		return 0, nil, models.Invalidf("unknown elf data encoding %d", buf[5])
	}
	if class == ELFCLASS64 && len(buf) < header64Size {
		return 0, nil, models.Overflowf("elf64 header needs %d bytes, have %d", header64Size, len(buf))
	}
	return class, order, nil
}

func ParseHeader(buf []byte) (*Header, binary.ByteOrder, error) {
	class, order, err := identify(buf)
	if err != nil {
		return nil, nil, err
	}
	r := field.NewReader(buf, order)
	h := &Header{
		Class:    r.U8(4),
		Data:     r.U8(5),
		IdentVer: r.U8(6),
		OSABI:    r.U8(7),
		Type:     r.U16(16),
		Machine:  r.U16(18),
		Version:  r.U32(20),
	}
	if class == ELFCLASS64 {
		h.Entry = r.Addr(24, 8)
		h.Phoff = r.Addr(32, 8)
		h.Shoff = r.Addr(40, 8)
		h.Flags = r.U32(48)
		h.Ehsize = r.U16(52)
		h.Phentsize = r.U16(54)
		h.Phnum = r.U16(56)
		h.Shentsize = r.U16(58)
		h.Shnum = r.U16(60)
		h.Shstrndx = r.U16(62)
	} else {
		h.Entry = r.Addr(24, 4)
		h.Phoff = r.Addr(28, 4)
		h.Shoff = r.Addr(32, 4)
		h.Flags = r.U32(36)
		h.Ehsize = r.U16(40)
		h.Phentsize = r.U16(42)
		h.Phnum = r.U16(44)
		h.Shentsize = r.U16(46)
		h.Shnum = r.U16(48)
		h.Shstrndx = r.U16(50)
	}
	if r.Err != nil {
		return nil, nil, r.Err
	}
	return h, order, nil
}

func (h *Header) Is64() bool {
	return h.Class.Value == ELFCLASS64
}

func (h *Header) Fields() []field.Named {
	return []field.Named{
		{Name: "class", Field: &h.Class},
		{Name: "data", Field: &h.Data},
		{Name: "ident_version", Field: &h.IdentVer},
		{Name: "osabi", Field: &h.OSABI},
		{Name: "type", Field: &h.Type},
		{Name: "machine", Field: &h.Machine},
		{Name: "version", Field: &h.Version},
		{Name: "entry", Field: &h.Entry},
		{Name: "phoff", Field: &h.Phoff},
		{Name: "shoff", Field: &h.Shoff},
		{Name: "flags", Field: &h.Flags},
		{Name: "ehsize", Field: &h.Ehsize},
		{Name: "phentsize", Field: &h.Phentsize},
		{Name: "phnum", Field: &h.Phnum},
		{Name: "shentsize", Field: &h.Shentsize},
		{Name: "shnum", Field: &h.Shnum},
		{Name: "shstrndx", Field: &h.Shstrndx},
	}
}
