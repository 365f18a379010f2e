package pe

import (
	"bytes"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"github.com/M3str3/HexSpell/go/field"
	"github.com/M3str3/HexSpell/go/models"
)

// sectionRecord is the on-disk layout of a section header.
type sectionRecord struct {
	Name                 string `struc:"[8]byte"`
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLinenumbers uint32
	NumberOfRelocations  uint16
	NumberOfLinenumbers  uint16
	Characteristics      uint32
}

func alignUp[T constraints.Unsigned](x, a T) T {
	return (x + a - 1) &^ (a - 1)
}

func checkAlign(name string, a uint32) error {
	if a == 0 || a&(a-1) != 0 {
		return models.Invalidf("%s %#x is not a power of two", name, a)
	}
	return nil
}

// GenerateSectionHeader lays out a new section after the last one. The
// result is not written until AddSection.
func (f *File) GenerateSectionHeader(name string, size, characteristics uint32) (*Section, error) {
	if len(name) > 8 {
		return nil, errors.Wrapf(models.ErrBufferOverflow, "section name %q is longer than 8 bytes", name)
	}
	fileAlign := f.Header.FileAlignment.Value
	sectAlign := f.Header.SectionAlignment.Value
	if err := checkAlign("file alignment", fileAlign); err != nil {
		return nil, err
	}
	if err := checkAlign("section alignment", sectAlign); err != nil {
		return nil, err
	}
	if len(f.Sections) == 0 {
		return nil, models.Invalidf("image has no sections to follow")
	}
	last := f.Sections[len(f.Sections)-1]
	off := last.Characteristics.Offset + last.Characteristics.Size

	// widened to 64 bits; every result must still fit in 32
	rva := alignUp(uint64(last.VirtualAddress.Value)+uint64(last.VirtualSize.Value), uint64(sectAlign))
	vsize := alignUp(uint64(size), uint64(sectAlign))
	rawSize := alignUp(uint64(size), uint64(fileAlign))
	rawPtr := alignUp(uint64(last.PointerToRawData.Value)+uint64(last.SizeOfRawData.Value), uint64(fileAlign))
	if end := alignUp(uint64(len(f.Buffer)), uint64(fileAlign)); rawPtr > end {
		return nil, models.Invalidf("%s raw data ends at %#x, past the %#x byte file", last.Name.Value, rawPtr, len(f.Buffer))
	}
	for _, v := range []uint64{rva, vsize, rawSize, rawPtr, rva + vsize, rawPtr + rawSize} {
		if v > 0xffffffff {
			return nil, models.Overflowf("new section does not fit a 32-bit image")
		}
	}

	u32 := func(v uint64, at int) field.Field[uint32] {
		return field.NewUint[uint32](uint32(v), off+at, 4, order)
	}
	return &Section{
		Name:                 field.NewString(name, off, 8),
		VirtualSize:          u32(vsize, 8),
		VirtualAddress:       u32(rva, 12),
		SizeOfRawData:        u32(rawSize, 16),
		PointerToRawData:     u32(rawPtr, 20),
		PointerToRelocations: u32(0, 24),
		PointerToLinenumbers: u32(0, 28),
		NumberOfRelocations:  field.NewUint[uint16](0, off+32, 2, order),
		NumberOfLinenumbers:  field.NewUint[uint16](0, off+34, 2, order),
		Characteristics:      u32(uint64(characteristics), 36),
	}, nil
}

func (s *Section) record() *sectionRecord {
	return &sectionRecord{
		Name:                 s.Name.Value,
		VirtualSize:          s.VirtualSize.Value,
		VirtualAddress:       s.VirtualAddress.Value,
		SizeOfRawData:        s.SizeOfRawData.Value,
		PointerToRawData:     s.PointerToRawData.Value,
		PointerToRelocations: s.PointerToRelocations.Value,
		PointerToLinenumbers: s.PointerToLinenumbers.Value,
		NumberOfRelocations:  s.NumberOfRelocations.Value,
		NumberOfLinenumbers:  s.NumberOfLinenumbers.Value,
		Characteristics:      s.Characteristics.Value,
	}
}

// AddSection writes the header for s into the section table, stores payload
// at its raw data pointer and updates the image size, section count and
// checksum. Every check runs before the buffer is touched.
func (f *File) AddSection(s *Section, payload []byte) error {
	off := s.Offset()
	if len(s.Name.Value) > 8 {
		return errors.Wrapf(models.ErrBufferOverflow, "section name %q is longer than 8 bytes", s.Name.Value)
	}
	if off != f.Header.SectionTableOffset()+len(f.Sections)*SectionHeaderSize {
		return models.Invalidf("section header at %#x does not follow the section table", off)
	}
	end := off + SectionHeaderSize
	if end > int(f.Header.SizeOfHeaders.Value) {
		return models.Overflowf("no room for another section header below size_of_headers %#x", f.Header.SizeOfHeaders.Value)
	}
	for _, other := range f.Sections {
		if other.SizeOfRawData.Value != 0 && end > int(other.PointerToRawData.Value) {
			return models.Overflowf("section header would overwrite %s raw data", other.Name.Value)
		}
	}
	// raw data may only extend the file, never leave a gap past its end
	fileAlign := f.Header.FileAlignment.Value
	if err := checkAlign("file alignment", fileAlign); err != nil {
		return err
	}
	if end := alignUp(uint64(len(f.Buffer)), uint64(fileAlign)); uint64(s.PointerToRawData.Value) > end {
		return models.Invalidf("raw data pointer %#x is past the end of the %#x byte file", s.PointerToRawData.Value, len(f.Buffer))
	}
	if uint64(len(payload)) > uint64(s.SizeOfRawData.Value) {
		return models.Overflowf("payload of %d bytes exceeds raw size %#x", len(payload), s.SizeOfRawData.Value)
	}
	if f.Header.NumberOfSections.Value == 0xffff {
		return models.Overflowf("section count is saturated")
	}
	var hdr bytes.Buffer
	if err := struc.PackWithOrder(&hdr, s.record(), order); err != nil {
		return errors.Wrap(err, "struc.Pack() failed")
	}
	if hdr.Len() != SectionHeaderSize {
		return errors.Errorf("packed section header is %d bytes", hdr.Len())
	}

	rawEnd := int(s.PointerToRawData.Value) + int(s.SizeOfRawData.Value)
	if len(f.Buffer) < rawEnd {
		grown := make([]byte, rawEnd)
		copy(grown, f.Buffer)
		f.Buffer = grown
	}
	copy(f.Buffer[off:end], hdr.Bytes())
	copy(f.Buffer[s.PointerToRawData.Value:], payload)

	if err := f.Header.SizeOfImage.Update(f.Buffer, s.VirtualAddress.Value+s.VirtualSize.Value); err != nil {
		return err
	}
	if err := f.Header.NumberOfSections.Update(f.Buffer, f.Header.NumberOfSections.Value+1); err != nil {
		return err
	}
	f.Sections = append(f.Sections, s)
	return f.UpdateChecksum()
}
