package pe

import (
	"github.com/M3str3/HexSpell/go/field"
)

const SectionHeaderSize = 40

// Section characteristic flags.
const (
	IMAGE_SCN_CNT_CODE               = 0x00000020
	IMAGE_SCN_CNT_INITIALIZED_DATA   = 0x00000040
	IMAGE_SCN_CNT_UNINITIALIZED_DATA = 0x00000080
	IMAGE_SCN_LNK_INFO               = 0x00000200
	IMAGE_SCN_GPREL                  = 0x00008000
	IMAGE_SCN_MEM_DISCARDABLE        = 0x02000000
	IMAGE_SCN_MEM_EXECUTE            = 0x20000000
	IMAGE_SCN_MEM_READ               = 0x40000000
	IMAGE_SCN_MEM_WRITE              = 0x80000000
	IMAGE_SCN_TLS                    = 0x00000400
)

type Section struct {
	Name                 field.Field[string]
	VirtualSize          field.Field[uint32]
	VirtualAddress       field.Field[uint32]
	SizeOfRawData        field.Field[uint32]
	PointerToRawData     field.Field[uint32]
	PointerToRelocations field.Field[uint32]
	PointerToLinenumbers field.Field[uint32]
	NumberOfRelocations  field.Field[uint16]
	NumberOfLinenumbers  field.Field[uint16]
	Characteristics      field.Field[uint32]
}

func parseSection(buf []byte, off int) (*Section, error) {
	if _, err := field.Slice(buf, off, SectionHeaderSize); err != nil {
		return nil, err
	}
	r := field.NewReader(buf, order)
	s := &Section{
		Name:                 r.String(off, 8),
		VirtualSize:          r.U32(off + 8),
		VirtualAddress:       r.U32(off + 12),
		SizeOfRawData:        r.U32(off + 16),
		PointerToRawData:     r.U32(off + 20),
		PointerToRelocations: r.U32(off + 24),
		PointerToLinenumbers: r.U32(off + 28),
		NumberOfRelocations:  r.U16(off + 32),
		NumberOfLinenumbers:  r.U16(off + 34),
		Characteristics:      r.U32(off + 36),
	}
	return s, r.Err
}

func parseSections(buf []byte, h *Header) ([]*Section, error) {
	base := h.SectionTableOffset()
	sections := make([]*Section, 0, h.NumberOfSections.Value)
	for i := 0; i < int(h.NumberOfSections.Value); i++ {
		s, err := parseSection(buf, base+i*SectionHeaderSize)
		if err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, nil
}

// Offset is where this section header starts in the file.
func (s *Section) Offset() int {
	return s.Name.Offset
}

func (s *Section) has(flag uint32) bool {
	return s.Characteristics.Value&flag != 0
}

func (s *Section) IsExecutable() bool {
	return s.has(IMAGE_SCN_MEM_EXECUTE)
}

func (s *Section) IsWritable() bool {
	return s.has(IMAGE_SCN_MEM_WRITE)
}

func (s *Section) IsReadable() bool {
	return s.has(IMAGE_SCN_MEM_READ)
}

func (s *Section) ContainsCode() bool {
	return s.has(IMAGE_SCN_CNT_CODE)
}

func (s *Section) ContainsInitializedData() bool {
	return s.has(IMAGE_SCN_CNT_INITIALIZED_DATA)
}

func (s *Section) ContainsUninitializedData() bool {
	return s.has(IMAGE_SCN_CNT_UNINITIALIZED_DATA)
}

func (s *Section) IsDiscardable() bool {
	return s.has(IMAGE_SCN_MEM_DISCARDABLE)
}

func (s *Section) IsTLS() bool {
	return s.has(IMAGE_SCN_TLS)
}

// Flags renders the memory permissions as "rwx".
func (s *Section) Flags() string {
	out := []byte("---")
	if s.IsReadable() {
		out[0] = 'r'
	}
	if s.IsWritable() {
		out[1] = 'w'
	}
	if s.IsExecutable() {
		out[2] = 'x'
	}
	return string(out)
}

// ContainsRVA reports whether rva falls inside the section's virtual range.
func (s *Section) ContainsRVA(rva uint32) bool {
	size := s.VirtualSize.Value
	if size == 0 {
		size = s.SizeOfRawData.Value
	}
	start := uint64(s.VirtualAddress.Value)
	return uint64(rva) >= start && uint64(rva) < start+uint64(size)
}

func (s *Section) Data(buf []byte) ([]byte, error) {
	return field.Slice(buf, uint64(s.PointerToRawData.Value), uint64(s.SizeOfRawData.Value))
}

// ExtractStrings returns runs of at least minLen alphanumeric or '_' bytes
// from the section's raw data.
func (s *Section) ExtractStrings(buf []byte, minLen int) ([]string, error) {
	data, err := s.Data(buf)
	if err != nil {
		return nil, err
	}
	var out []string
	start := -1
	flush := func(end int) {
		if start >= 0 && end-start >= minLen {
			out = append(out, string(data[start:end]))
		}
		start = -1
	}
	for i, c := range data {
		word := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
		if word && start < 0 {
			start = i
		} else if !word {
			flush(i)
		}
	}
	flush(len(data))
	return out, nil
}

func (s *Section) Fields() []field.Named {
	return []field.Named{
		{Name: "name", Field: &s.Name},
		{Name: "virtual_size", Field: &s.VirtualSize},
		{Name: "virtual_address", Field: &s.VirtualAddress},
		{Name: "size_of_raw_data", Field: &s.SizeOfRawData},
		{Name: "pointer_to_raw_data", Field: &s.PointerToRawData},
		{Name: "pointer_to_relocations", Field: &s.PointerToRelocations},
		{Name: "pointer_to_linenumbers", Field: &s.PointerToLinenumbers},
		{Name: "number_of_relocations", Field: &s.NumberOfRelocations},
		{Name: "number_of_linenumbers", Field: &s.NumberOfLinenumbers},
		{Name: "characteristics", Field: &s.Characteristics},
	}
}
