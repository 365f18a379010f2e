package macho

import (
	"encoding/binary"

	"github.com/M3str3/HexSpell/go/field"
	"github.com/M3str3/HexSpell/go/models"
)

const (
	MH_MAGIC    = 0xfeedface
	MH_MAGIC_64 = 0xfeedfacf
	MH_CIGAM    = 0xcefaedfe
	MH_CIGAM_64 = 0xcffaedfe

	header32Size = 28
	header64Size = 32
)

type Header struct {
	Magic      field.Field[uint32]
	CPUType    field.Field[uint32]
	CPUSubtype field.Field[uint32]
	FileType   field.Field[uint32]
	Ncmds      field.Field[uint32]
	Sizeofcmds field.Field[uint32]
	Flags      field.Field[uint32]

	// Reserved is only present in 64-bit headers.
	Reserved field.Field[uint32]
}

// identify reads the magic at base as little-endian and returns the
// file's byte order and header size.
func identify(buf []byte, base int) (binary.ByteOrder, bool, error) {
	magic, err := field.Extract32(buf, base, binary.LittleEndian)
	if err != nil {
		return nil, false, err
	}
	switch magic {
	case MH_MAGIC:
		return binary.LittleEndian, false, nil
	case MH_MAGIC_64:
		return binary.LittleEndian, true, nil
	case MH_CIGAM:
		return binary.BigEndian, false, nil
	case MH_CIGAM_64:
		return binary.BigEndian, true, nil
	}
	return nil, false, models.Invalidf("bad mach-o magic %#x", magic)
}

// parseHeader decodes the header at base. buf ends where the image ends.
func parseHeader(buf []byte, base int) (*Header, binary.ByteOrder, error) {
	if len(buf)-base < header32Size {
		return nil, nil, models.Overflowf("mach-o header needs %d bytes, have %d", header32Size, len(buf)-base)
	}
	order, is64, err := identify(buf, base)
	if err != nil {
		return nil, nil, err
	}
	size := header32Size
	if is64 {
		size = header64Size
	}
	if len(buf)-base < size {
		return nil, nil, models.Overflowf("mach-o header needs %d bytes, have %d", size, len(buf)-base)
	}
	r := field.NewReader(buf, order)
	h := &Header{
		Magic:      r.U32(base),
		CPUType:    r.U32(base + 4),
		CPUSubtype: r.U32(base + 8),
		FileType:   r.U32(base + 12),
		Ncmds:      r.U32(base + 16),
		Sizeofcmds: r.U32(base + 20),
		Flags:      r.U32(base + 24),
	}
	if is64 {
		h.Reserved = r.U32(base + 28)
	}
	if r.Err != nil {
		return nil, nil, r.Err
	}
	if !field.Fits(buf, uint64(base+size), uint64(h.Sizeofcmds.Value)) {
		return nil, nil, models.Overflowf("load commands (%d bytes) run past the image", h.Sizeofcmds.Value)
	}
	return h, order, nil
}

func (h *Header) Is64() bool {
	return h.Reserved.Valid()
}

// Size is the length of the fixed header.
func (h *Header) Size() int {
	if h.Is64() {
		return header64Size
	}
	return header32Size
}

func (h *Header) Fields() []field.Named {
	fields := []field.Named{
		{Name: "magic", Field: &h.Magic},
		{Name: "cputype", Field: &h.CPUType},
		{Name: "cpusubtype", Field: &h.CPUSubtype},
		{Name: "filetype", Field: &h.FileType},
		{Name: "ncmds", Field: &h.Ncmds},
		{Name: "sizeofcmds", Field: &h.Sizeofcmds},
		{Name: "flags", Field: &h.Flags},
	}
	if h.Is64() {
		fields = append(fields, field.Named{Name: "reserved", Field: &h.Reserved})
	}
	return fields
}
