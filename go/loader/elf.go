package loader

import (
	"bytes"
	goelf "debug/elf"

	"github.com/samber/lo"

	"github.com/M3str3/HexSpell/go/elf"
	"github.com/M3str3/HexSpell/go/field"
	"github.com/M3str3/HexSpell/go/models"
)

type ElfLoader struct {
	LoaderBase
	file *elf.File
}

func MatchElf(p []byte) bool {
	return bytes.Equal(getMagic(p), elf.Magic)
}

func NewElfLoader(p []byte) (Binary, error) {
	file, err := elf.Parse(p)
	if err != nil {
		return nil, err
	}
	os := "linux"
	switch file.Header.OSABI.Value {
	case 9:
		os = "freebsd"
	case 12:
		os = "openbsd"
	}
	return &ElfLoader{
		LoaderBase: LoaderBase{
			format:    "elf",
			byteOrder: file.ByteOrder,
			os:        os,
		},
		file: file,
	}, nil
}

func (e *ElfLoader) File() *elf.File {
	return e.file
}

// Entry reads the header field, so edits made through Fields show up.
func (e *ElfLoader) Entry() uint64 {
	return e.file.Header.Entry.Value
}

func (e *ElfLoader) Arch() string {
	return e.file.Arch()
}

func (e *ElfLoader) Bits() int {
	return e.file.Bits()
}

func (e *ElfLoader) Interp() string {
	return e.file.Interp()
}

func (e *ElfLoader) Type() int {
	switch e.file.Header.Type.Value {
	case 1:
		return REL
	case 2:
		return EXEC
	case 3:
		return DYN
	default:
		return UNKNOWN
	}
}

func (e *ElfLoader) Bytes() []byte {
	return e.file.Buffer
}

func (e *ElfLoader) Fields() []field.Named {
	return e.file.Fields()
}

func (e *ElfLoader) WriteFile(path string) error {
	return e.file.WriteFile(path)
}

func (e *ElfLoader) Segments() ([]models.SegmentData, error) {
	loads := lo.Filter(e.file.ProgramHeaders, func(p *elf.ProgramHeader, _ int) bool {
		return p.Type.Value == uint32(goelf.PT_LOAD)
	})
	return lo.Map(loads, func(p *elf.ProgramHeader, i int) models.SegmentData {
		var prot int
		if p.Flags.Value&uint32(goelf.PF_R) != 0 {
			prot |= models.PROT_READ
		}
		if p.Flags.Value&uint32(goelf.PF_W) != 0 {
			prot |= models.PROT_WRITE
		}
		if p.Flags.Value&uint32(goelf.PF_X) != 0 {
			prot |= models.PROT_EXEC
		}
		return models.SegmentData{
			Name:     "LOAD",
			Off:      p.Offset.Value,
			FileSize: p.Filesz.Value,
			Addr:     p.Vaddr.Value,
			Size:     p.Memsz.Value,
			Prot:     prot,
			DataFunc: func() ([]byte, error) {
				return field.Slice(e.file.Buffer, p.Offset.Value, p.Filesz.Value)
			},
		}
	}), nil
}
