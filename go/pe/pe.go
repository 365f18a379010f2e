// Package pe parses PE32 and PE32+ images and can append sections to them.
package pe

import (
	"github.com/M3str3/HexSpell/go/field"
	"github.com/M3str3/HexSpell/go/models"
)

var machineMap = map[uint16]string{
	0x14c:  "x86",
	0x8664: "x86_64",
	0x1c0:  "arm",
	0x1c4:  "arm",
	0xaa64: "arm64",
}

type File struct {
	Buffer   []byte
	Header   *Header
	Sections []*Section
}

// Parse decodes buf. The returned File aliases buf until AddSection grows it.
func Parse(buf []byte) (*File, error) {
	h, err := ParseHeader(buf)
	if err != nil {
		return nil, err
	}
	sections, err := parseSections(buf, h)
	if err != nil {
		return nil, err
	}
	return &File{Buffer: buf, Header: h, Sections: sections}, nil
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

func (f *File) Arch() string {
	if name, ok := machineMap[f.Header.Machine.Value]; ok {
		return name
	}
	return "unknown"
}

func (f *File) Bits() int {
	if f.Header.Type == PE32Plus {
		return 64
	}
	return 32
}

// Entry returns the virtual address of the entry point.
func (f *File) Entry() uint64 {
	return f.Header.ImageBase.Value + uint64(f.Header.AddressOfEntryPoint.Value)
}

func (f *File) Section(name string) *Section {
	for _, s := range f.Sections {
		if s.Name.Value == name {
			return s
		}
	}
	return nil
}

// RVAToOffset maps a relative virtual address to a file offset.
func (f *File) RVAToOffset(rva uint32) (uint32, error) {
	for _, s := range f.Sections {
		if s.ContainsRVA(rva) {
			delta := rva - s.VirtualAddress.Value
			if delta >= s.SizeOfRawData.Value {
				return 0, models.Overflowf("rva %#x is past the raw data of %s", rva, s.Name.Value)
			}
			return s.PointerToRawData.Value + delta, nil
		}
	}
	if rva < f.Header.SizeOfHeaders.Value {
		return rva, nil
	}
	return 0, models.Invalidf("rva %#x is not inside any section", rva)
}

func (f *File) Fields() []field.Named {
	tables := make([][]field.Named, len(f.Sections))
	for i, s := range f.Sections {
		tables[i] = s.Fields()
	}
	fields := field.Prefix("header", f.Header.Fields())
	return append(fields, field.Indexed("sections", tables...)...)
}
