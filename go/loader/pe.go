package loader

import (
	"bytes"

	"github.com/samber/lo"

	"github.com/M3str3/HexSpell/go/field"
	"github.com/M3str3/HexSpell/go/models"
	"github.com/M3str3/HexSpell/go/pe"
)

var peMagic = []byte("MZ")

type PELoader struct {
	LoaderBase
	file *pe.File
}

func MatchPE(p []byte) bool {
	return bytes.HasPrefix(p, peMagic)
}

func NewPELoader(p []byte) (Binary, error) {
	file, err := pe.Parse(p)
	if err != nil {
		return nil, err
	}
	return &PELoader{
		LoaderBase: LoaderBase{
			format: "pe",
			os:     "windows",
		},
		file: file,
	}, nil
}

func (p *PELoader) File() *pe.File {
	return p.file
}

func (p *PELoader) Entry() uint64 {
	return p.file.Entry()
}

func (p *PELoader) Arch() string {
	return p.file.Arch()
}

func (p *PELoader) Bits() int {
	return p.file.Bits()
}

func (p *PELoader) Interp() string {
	return ""
}

func (p *PELoader) Type() int {
	// IMAGE_FILE_DLL
	if p.file.Header.Characteristics.Value&0x2000 != 0 {
		return DYN
	}
	return EXEC
}

// Bytes reads through to the file so growth from AddSection is visible.
func (p *PELoader) Bytes() []byte {
	return p.file.Buffer
}

func (p *PELoader) Fields() []field.Named {
	return p.file.Fields()
}

func (p *PELoader) WriteFile(path string) error {
	return p.file.WriteFile(path)
}

func (p *PELoader) Segments() ([]models.SegmentData, error) {
	base := p.file.Header.ImageBase.Value
	return lo.Map(p.file.Sections, func(s *pe.Section, _ int) models.SegmentData {
		var prot int
		if s.IsReadable() {
			prot |= models.PROT_READ
		}
		if s.IsWritable() {
			prot |= models.PROT_WRITE
		}
		if s.IsExecutable() {
			prot |= models.PROT_EXEC
		}
		return models.SegmentData{
			Name:     s.Name.Value,
			Off:      uint64(s.PointerToRawData.Value),
			FileSize: uint64(s.SizeOfRawData.Value),
			Addr:     base + uint64(s.VirtualAddress.Value),
			Size:     uint64(s.VirtualSize.Value),
			Prot:     prot,
			DataFunc: func() ([]byte, error) {
				return s.Data(p.file.Buffer)
			},
		}
	}), nil
}
