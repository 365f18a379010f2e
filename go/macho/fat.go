package macho

import (
	"bytes"
	"encoding/binary"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/M3str3/HexSpell/go/field"
	"github.com/M3str3/HexSpell/go/models"
)

const (
	FAT_MAGIC    = 0xcafebabe
	FAT_MAGIC_64 = 0xcafebabf
	FAT_CIGAM    = 0xbebafeca
	FAT_CIGAM_64 = 0xbfbafeca

	fatHeaderSize = 8
)

type fatArch32 struct {
	CPUType    uint32
	CPUSubtype uint32
	Offset     uint32
	Size       uint32
	Align      uint32
}

type fatArch64 struct {
	CPUType    uint32
	CPUSubtype uint32
	Offset     uint64
	Size       uint64
	Align      uint32
	Reserved   uint32
}

// FatArch describes one slice of a universal file.
type FatArch struct {
	CPUType    uint32
	CPUSubtype uint32
	Offset     uint64
	Size       uint64
	Align      uint32
}

type Fat struct {
	Magic    field.Field[uint32]
	NfatArch field.Field[uint32]
	Arches   []FatArch
	Is64     bool
}

// fatOrder reports the byte order of a universal header at the start of
// buf, or nil if buf is not one.
func fatOrder(buf []byte) (binary.ByteOrder, bool) {
	magic, err := field.Extract32(buf, 0, binary.BigEndian)
	if err != nil {
		return nil, false
	}
	switch magic {
	case FAT_MAGIC:
		return binary.BigEndian, false
	case FAT_MAGIC_64:
		return binary.BigEndian, true
	case FAT_CIGAM:
		return binary.LittleEndian, false
	case FAT_CIGAM_64:
		return binary.LittleEndian, true
	}
	return nil, false
}

func IsFat(buf []byte) bool {
	order, _ := fatOrder(buf)
	return order != nil
}

func parseFat(buf []byte) (*Fat, error) {
	order, is64 := fatOrder(buf)
	if order == nil {
		return nil, models.Invalidf("not a universal file")
	}
	r := field.NewReader(buf, order)
	fat := &Fat{Magic: r.U32(0), NfatArch: r.U32(4), Is64: is64}
	if r.Err != nil {
		return nil, r.Err
	}
	n := fat.NfatArch.Value
	if n == 0 {
		return nil, models.Invalidf("universal file has no architectures")
	}
	recSize := 20
	if is64 {
		recSize = 32
	}
	for i := 0; i < int(n); i++ {
		rec, err := field.Slice(buf, fatHeaderSize+i*recSize, recSize)
		if err != nil {
			return nil, err
		}
		var arch FatArch
		if is64 {
			var a fatArch64
			if err := struc.UnpackWithOrder(bytes.NewReader(rec), &a, order); err != nil {
				return nil, errors.Wrap(err, "struc.Unpack() failed")
			}
			arch = FatArch{a.CPUType, a.CPUSubtype, a.Offset, a.Size, a.Align}
		} else {
			var a fatArch32
			if err := struc.UnpackWithOrder(bytes.NewReader(rec), &a, order); err != nil {
				return nil, errors.Wrap(err, "struc.Unpack() failed")
			}
			arch = FatArch{a.CPUType, a.CPUSubtype, uint64(a.Offset), uint64(a.Size), a.Align}
		}
		fat.Arches = append(fat.Arches, arch)
	}
	return fat, nil
}

func (f *Fat) Fields() []field.Named {
	return []field.Named{
		{Name: "magic", Field: &f.Magic},
		{Name: "nfat_arch", Field: &f.NfatArch},
	}
}
