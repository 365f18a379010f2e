package pe

import (
	"encoding/binary"

	"github.com/M3str3/HexSpell/go/field"
	"github.com/M3str3/HexSpell/go/models"
)

type PEType uint16

const (
	PE32     PEType = 0x10b
	PE32Plus PEType = 0x20b
)

func (t PEType) String() string {
	switch t {
	case PE32:
		return "PE32"
	case PE32Plus:
		return "PE32+"
	}
	return "unknown"
}

const (
	dosHeaderSize = 64
	lfanewOffset  = 0x3c
	coffSize      = 24
)

var order = binary.LittleEndian

type Header struct {
	Type PEType

	Lfanew               field.Field[uint32]
	Machine              field.Field[uint16]
	NumberOfSections     field.Field[uint16]
	TimeDateStamp        field.Field[uint32]
	SizeOfOptionalHeader field.Field[uint16]
	Characteristics      field.Field[uint16]

	Magic               field.Field[uint16]
	SizeOfCode          field.Field[uint32]
	AddressOfEntryPoint field.Field[uint32]
	BaseOfCode          field.Field[uint32]

	// BaseOfData is only present in PE32 images.
	BaseOfData         field.Field[uint32]
	ImageBase          field.Field[uint64]
	SectionAlignment   field.Field[uint32]
	FileAlignment      field.Field[uint32]
	SizeOfImage        field.Field[uint32]
	SizeOfHeaders      field.Field[uint32]
	CheckSum           field.Field[uint32]
	Subsystem          field.Field[uint16]
	DllCharacteristics field.Field[uint16]
}

func ParseHeader(buf []byte) (*Header, error) {
	if len(buf) < dosHeaderSize {
		return nil, models.Overflowf("dos header needs %d bytes, have %d", dosHeaderSize, len(buf))
	}
	if buf[0] != 'M' || buf[1] != 'Z' {
		return nil, models.Invalidf("bad dos magic % x", buf[:2])
	}
	r := field.NewReader(buf, order)
	h := &Header{Lfanew: r.U32(lfanewOffset)}
	pe := int(h.Lfanew.Value)
	sig, err := field.Slice(buf, pe, 4)
	if err != nil {
		return nil, err
	}
	if string(sig) != "PE\x00\x00" {
		return nil, models.Invalidf("bad pe signature % x", sig)
	}
	h.Machine = r.U16(pe + 4)
	h.NumberOfSections = r.U16(pe + 6)
	h.TimeDateStamp = r.U32(pe + 8)
	h.SizeOfOptionalHeader = r.U16(pe + 20)
	h.Characteristics = r.U16(pe + 22)

	opt := pe + coffSize
	h.Magic = r.U16(opt)
	if r.Err != nil {
		return nil, r.Err
	}
	h.Type = PEType(h.Magic.Value)
	switch h.Type {
	case PE32:
		h.BaseOfData = r.U32(opt + 24)
		h.ImageBase = r.Addr(opt+28, 4)
	case PE32Plus:
		h.ImageBase = r.Addr(opt+24, 8)
	default:
		return nil, models.Invalidf("unknown optional header magic %#x", h.Magic.Value)
	}
	h.SizeOfCode = r.U32(opt + 4)
	h.AddressOfEntryPoint = r.U32(opt + 16)
	h.BaseOfCode = r.U32(opt + 20)
	h.SectionAlignment = r.U32(opt + 32)
	h.FileAlignment = r.U32(opt + 36)
	h.SizeOfImage = r.U32(opt + 56)
	h.SizeOfHeaders = r.U32(opt + 60)
	h.CheckSum = r.U32(opt + 64)
	h.Subsystem = r.U16(opt + 68)
	h.DllCharacteristics = r.U16(opt + 70)
	if r.Err != nil {
		return nil, r.Err
	}
	return h, nil
}

// SectionTableOffset is where the first section header starts.
func (h *Header) SectionTableOffset() int {
	return int(h.Lfanew.Value) + coffSize + int(h.SizeOfOptionalHeader.Value)
}

func (h *Header) Fields() []field.Named {
	fields := []field.Named{
		{Name: "e_lfanew", Field: &h.Lfanew},
		{Name: "machine", Field: &h.Machine},
		{Name: "number_of_sections", Field: &h.NumberOfSections},
		{Name: "time_date_stamp", Field: &h.TimeDateStamp},
		{Name: "size_of_optional_header", Field: &h.SizeOfOptionalHeader},
		{Name: "characteristics", Field: &h.Characteristics},
		{Name: "magic", Field: &h.Magic},
		{Name: "size_of_code", Field: &h.SizeOfCode},
		{Name: "entry_point", Field: &h.AddressOfEntryPoint},
		{Name: "base_of_code", Field: &h.BaseOfCode},
	}
	if h.BaseOfData.Valid() {
		fields = append(fields, field.Named{Name: "base_of_data", Field: &h.BaseOfData})
	}
	return append(fields, []field.Named{
		{Name: "image_base", Field: &h.ImageBase},
		{Name: "section_alignment", Field: &h.SectionAlignment},
		{Name: "file_alignment", Field: &h.FileAlignment},
		{Name: "size_of_image", Field: &h.SizeOfImage},
		{Name: "size_of_headers", Field: &h.SizeOfHeaders},
		{Name: "checksum", Field: &h.CheckSum},
		{Name: "subsystem", Field: &h.Subsystem},
		{Name: "dll_characteristics", Field: &h.DllCharacteristics},
	}...)
}
