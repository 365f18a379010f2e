package elf

import (
	goelf "debug/elf"
	"encoding/binary"
	"strings"

	"github.com/M3str3/HexSpell/go/field"
)

const (
	phdr32Size = 32
	phdr64Size = 56
)

type ProgramHeader struct {
	Type   field.Field[uint32]
	Flags  field.Field[uint32]
	Offset field.Field[uint64]
	Vaddr  field.Field[uint64]
	Paddr  field.Field[uint64]
	Filesz field.Field[uint64]
	Memsz  field.Field[uint64]
	Align  field.Field[uint64]
}

func parseProgramHeaders(buf []byte, h *Header, order binary.ByteOrder) ([]*ProgramHeader, error) {
	var progs []*ProgramHeader
	minSize := phdr32Size
	if h.Is64() {
		minSize = phdr64Size
	}
	err := walk(buf, h.Phoff.Value, h.Phnum.Value, h.Phentsize.Value, minSize, func(base int) error {
		r := field.NewReader(buf, order)
		p := &ProgramHeader{Type: r.U32(base)}
		if h.Is64() {
			p.Flags = r.U32(base + 4)
			p.Offset = r.Addr(base+8, 8)
			p.Vaddr = r.Addr(base+16, 8)
			p.Paddr = r.Addr(base+24, 8)
			p.Filesz = r.Addr(base+32, 8)
			p.Memsz = r.Addr(base+40, 8)
			p.Align = r.Addr(base+48, 8)
		} else {
			p.Offset = r.Addr(base+4, 4)
			p.Vaddr = r.Addr(base+8, 4)
			p.Paddr = r.Addr(base+12, 4)
			p.Filesz = r.Addr(base+16, 4)
			p.Memsz = r.Addr(base+20, 4)
			p.Flags = r.U32(base + 24)
			p.Align = r.Addr(base+28, 4)
		}
		if r.Err != nil {
			return r.Err
		}
		progs = append(progs, p)
		return nil
	})
	return progs, err
}

func (p *ProgramHeader) Fields() []field.Named {
	return []field.Named{
		{Name: "type", Field: &p.Type},
		{Name: "flags", Field: &p.Flags},
		{Name: "offset", Field: &p.Offset},
		{Name: "vaddr", Field: &p.Vaddr},
		{Name: "paddr", Field: &p.Paddr},
		{Name: "filesz", Field: &p.Filesz},
		{Name: "memsz", Field: &p.Memsz},
		{Name: "align", Field: &p.Align},
	}
}

// TypeName is the segment type without its PT_ prefix, e.g. "LOAD".
func (p *ProgramHeader) TypeName() string {
	return strings.TrimPrefix(goelf.ProgType(p.Type.Value).String(), "PT_")
}
