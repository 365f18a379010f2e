// Package elf parses ELF32 and ELF64 images into editable fields over the
// original file bytes.
package elf

import (
	"bytes"
	goelf "debug/elf"
	"encoding/binary"

	"github.com/M3str3/HexSpell/go/field"
	"github.com/M3str3/HexSpell/go/models"
)

var machineMap = map[uint16]string{
	3:   "x86",
	8:   "mips",
	20:  "ppc",
	21:  "ppc64",
	40:  "arm",
	62:  "x86_64",
	183: "arm64",
	243: "riscv",
}

type File struct {
	Buffer         []byte
	Header         *Header
	ProgramHeaders []*ProgramHeader
	SectionHeaders []*SectionHeader
	ByteOrder      binary.ByteOrder
}

// Parse decodes buf. The returned File aliases buf; field updates write
// straight into it.
func Parse(buf []byte) (*File, error) {
	h, order, err := ParseHeader(buf)
	if err != nil {
		return nil, err
	}
	progs, err := parseProgramHeaders(buf, h, order)
	if err != nil {
		return nil, err
	}
	sections, err := parseSectionHeaders(buf, h, order)
	if err != nil {
		return nil, err
	}
	return &File{
		Buffer:         buf,
		Header:         h,
		ProgramHeaders: progs,
		SectionHeaders: sections,
		ByteOrder:      order,
	}, nil
}

func Open(path string) (*File, error) {
	buf, err := models.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(buf)
}

func (f *File) WriteFile(path string) error {
	return models.WriteFile(path, f.Buffer)
}

func (f *File) Bits() int {
	if f.Header.Is64() {
		return 64
	}
	return 32
}

func (f *File) Arch() string {
	if name, ok := machineMap[f.Header.Machine.Value]; ok {
		return name
	}
	return "unknown"
}

func (f *File) TypeName() string {
	switch f.Header.Type.Value {
	case 1:
		return "REL"
	case 2:
		return "EXEC"
	case 3:
		return "DYN"
	case 4:
		return "CORE"
	}
	return "NONE"
}

func (f *File) Section(name string) *SectionHeader {
	for _, s := range f.SectionHeaders {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Interp returns the requested program interpreter, if any.
func (f *File) Interp() string {
	for _, p := range f.ProgramHeaders {
		if p.Type.Value != uint32(goelf.PT_INTERP) {
			continue
		}
		data, err := field.Slice(f.Buffer, p.Offset.Value, p.Filesz.Value)
		if err != nil {
			return ""
		}
		return string(bytes.TrimRight(data, "\x00"))
	}
	return ""
}

func (f *File) Fields() []field.Named {
	fields := field.Prefix("header", f.Header.Fields())
	progs := make([][]field.Named, len(f.ProgramHeaders))
	for i, p := range f.ProgramHeaders {
		progs[i] = p.Fields()
	}
	sections := make([][]field.Named, len(f.SectionHeaders))
	for i, s := range f.SectionHeaders {
		sections[i] = s.Fields()
	}
	fields = append(fields, field.Indexed("programs", progs...)...)
	return append(fields, field.Indexed("sections", sections...)...)
}
