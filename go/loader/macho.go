package loader

import (
	"encoding/binary"

	"github.com/samber/lo"

	"github.com/M3str3/HexSpell/go/field"
	"github.com/M3str3/HexSpell/go/macho"
	"github.com/M3str3/HexSpell/go/models"
)

var machoMagics = []uint32{
	macho.MH_MAGIC,
	macho.MH_MAGIC_64,
	macho.MH_CIGAM,
	macho.MH_CIGAM_64,
}

type MachOLoader struct {
	LoaderBase
	file *macho.File
}

func MatchMachO(p []byte) bool {
	if macho.IsFat(p) {
		return true
	}
	magic, err := field.Extract32(p, 0, binary.LittleEndian)
	return err == nil && lo.Contains(machoMagics, magic)
}

func NewMachOLoader(p []byte) (Binary, error) {
	file, err := macho.Parse(p)
	if err != nil {
		return nil, err
	}
	return &MachOLoader{
		LoaderBase: LoaderBase{
			format:    "macho",
			byteOrder: file.ByteOrder,
			os:        "darwin",
		},
		file: file,
	}, nil
}

func (m *MachOLoader) File() *macho.File {
	return m.file
}

// Entry is 0 for images without LC_MAIN or LC_UNIXTHREAD, such as dylibs.
func (m *MachOLoader) Entry() uint64 {
	entry, _ := m.file.Entry()
	return entry
}

func (m *MachOLoader) Arch() string {
	return m.file.Arch()
}

func (m *MachOLoader) Bits() int {
	return m.file.Bits()
}

func (m *MachOLoader) Interp() string {
	return m.file.Interp()
}

func (m *MachOLoader) Type() int {
	switch m.file.Header.FileType.Value {
	case 1:
		return REL
	case 2:
		return EXEC
	case 6, 7: // dylib, dylinker
		return DYN
	default:
		return EXEC
	}
}

func (m *MachOLoader) Bytes() []byte {
	return m.file.Buffer
}

func (m *MachOLoader) Fields() []field.Named {
	return m.file.Fields()
}

func (m *MachOLoader) WriteFile(path string) error {
	return m.file.WriteFile(path)
}

func (m *MachOLoader) Segments() ([]models.SegmentData, error) {
	segs := lo.Reject(m.file.Segments, func(s *macho.Segment, _ int) bool {
		return s.Name.Value == "__PAGEZERO"
	})
	return lo.Map(segs, func(s *macho.Segment, _ int) models.SegmentData {
		return models.SegmentData{
			Name:     s.Name.Value,
			Off:      uint64(m.file.Base) + s.Fileoff.Value,
			FileSize: s.Filesize.Value,
			Addr:     s.Vmaddr.Value,
			Size:     s.Vmsize.Value,
			Prot:     s.Prot(),
			DataFunc: func() ([]byte, error) {
				return s.Data(m.file.Buffer)
			},
		}
	}), nil
}
