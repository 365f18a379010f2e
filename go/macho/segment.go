package macho

import (
	"encoding/binary"

	"github.com/M3str3/HexSpell/go/field"
	"github.com/M3str3/HexSpell/go/models"
)

const (
	segment32Size = 56
	segment64Size = 72
	section32Size = 68
	section64Size = 80
)

type Segment struct {
	Command *LoadCommand

	Name     field.Field[string]
	Vmaddr   field.Field[uint64]
	Vmsize   field.Field[uint64]
	Fileoff  field.Field[uint64]
	Filesize field.Field[uint64]
	Maxprot  field.Field[uint32]
	Initprot field.Field[uint32]
	Nsects   field.Field[uint32]
	Flags    field.Field[uint32]

	Sections []*Section

	// start of the enclosing image, non-zero inside universal files
	base int
}

type Section struct {
	Name    field.Field[string]
	Segname field.Field[string]
	Addr    field.Field[uint64]
	Size    field.Field[uint64]
	Offset  field.Field[uint32]
	Align   field.Field[uint32]
	Reloff  field.Field[uint32]
	Nreloc  field.Field[uint32]
	Flags   field.Field[uint32]
}

// parseSegments reinterprets LC_SEGMENT and LC_SEGMENT_64 commands.
func parseSegments(buf []byte, base int, cmds []*LoadCommand, order binary.ByteOrder) ([]*Segment, error) {
	var segs []*Segment
	for _, lc := range cmds {
		var (
			seg *Segment
			err error
		)
		switch lc.Cmd.Value {
		case LC_SEGMENT:
			seg, err = parseSegment(buf, lc, order, false)
		case LC_SEGMENT_64:
			seg, err = parseSegment(buf, lc, order, true)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		seg.base = base
		segs = append(segs, seg)
	}
	return segs, nil
}

func parseSegment(buf []byte, lc *LoadCommand, order binary.ByteOrder, is64 bool) (*Segment, error) {
	base := lc.Offset()
	cmdsize := int(lc.Cmdsize.Value)
	hdrSize, sectSize, addrSize := segment32Size, section32Size, 4
	if is64 {
		hdrSize, sectSize, addrSize = segment64Size, section64Size, 8
	}
	if cmdsize < hdrSize {
		return nil, models.Invalidf("%s at %#x is only %d bytes", lc.Name(), base, cmdsize)
	}
	r := field.NewReader(buf, order)
	s := &Segment{Command: lc, Name: r.String(base+8, 16)}
	off := base + 24
	s.Vmaddr = r.Addr(off, addrSize)
	s.Vmsize = r.Addr(off+addrSize, addrSize)
	s.Fileoff = r.Addr(off+2*addrSize, addrSize)
	s.Filesize = r.Addr(off+3*addrSize, addrSize)
	off += 4 * addrSize
	s.Maxprot = r.U32(off)
	s.Initprot = r.U32(off + 4)
	s.Nsects = r.U32(off + 8)
	s.Flags = r.U32(off + 12)
	if r.Err != nil {
		return nil, r.Err
	}
	nsects := uint64(s.Nsects.Value)
	if uint64(hdrSize)+nsects*uint64(sectSize) > uint64(cmdsize) {
		return nil, models.Invalidf("segment %s declares %d sections past its command", s.Name.Value, nsects)
	}
	for i := 0; i < int(nsects); i++ {
		sec := parseSection(r, base+hdrSize+i*sectSize, addrSize)
		if r.Err != nil {
			return nil, r.Err
		}
		s.Sections = append(s.Sections, sec)
	}
	return s, nil
}

func parseSection(r *field.Reader, off, addrSize int) *Section {
	s := &Section{
		Name:    r.String(off, 16),
		Segname: r.String(off+16, 16),
		Addr:    r.Addr(off+32, addrSize),
		Size:    r.Addr(off+32+addrSize, addrSize),
	}
	off += 32 + 2*addrSize
	s.Offset = r.U32(off)
	s.Align = r.U32(off + 4)
	s.Reloff = r.U32(off + 8)
	s.Nreloc = r.U32(off + 12)
	s.Flags = r.U32(off + 16)
	return s
}

// Prot converts the initial VM protection to models.PROT_* bits.
func (s *Segment) Prot() int {
	// VM_PROT_READ/WRITE/EXECUTE share the PROT_* values
	return int(s.Initprot.Value) & (models.PROT_READ | models.PROT_WRITE | models.PROT_EXEC)
}

// Data returns the segment's file contents. buf is the whole file.
func (s *Segment) Data(buf []byte) ([]byte, error) {
	if !field.Fits(buf, uint64(s.base), s.Fileoff.Value) {
		return nil, models.Overflowf("segment %s offset %#x is outside the file", s.Name.Value, s.Fileoff.Value)
	}
	return field.Slice(buf, uint64(s.base)+s.Fileoff.Value, s.Filesize.Value)
}

func (s *Segment) Fields() []field.Named {
	fields := []field.Named{
		{Name: "segname", Field: &s.Name},
		{Name: "vmaddr", Field: &s.Vmaddr},
		{Name: "vmsize", Field: &s.Vmsize},
		{Name: "fileoff", Field: &s.Fileoff},
		{Name: "filesize", Field: &s.Filesize},
		{Name: "maxprot", Field: &s.Maxprot},
		{Name: "initprot", Field: &s.Initprot},
		{Name: "nsects", Field: &s.Nsects},
		{Name: "flags", Field: &s.Flags},
	}
	sections := make([][]field.Named, len(s.Sections))
	for i, sec := range s.Sections {
		sections[i] = sec.Fields()
	}
	return append(fields, field.Indexed("sections", sections...)...)
}

func (s *Section) Fields() []field.Named {
	return []field.Named{
		{Name: "sectname", Field: &s.Name},
		{Name: "segname", Field: &s.Segname},
		{Name: "addr", Field: &s.Addr},
		{Name: "size", Field: &s.Size},
		{Name: "offset", Field: &s.Offset},
		{Name: "align", Field: &s.Align},
		{Name: "reloff", Field: &s.Reloff},
		{Name: "nreloc", Field: &s.Nreloc},
		{Name: "flags", Field: &s.Flags},
	}
}
