// Package mock synthesizes small, well-formed executables for tests.
package mock

import (
	"bytes"
	"encoding/binary"

	"github.com/lunixbochs/struc"
)

type elfHeader64 struct {
	Ident     string `struc:"[16]byte"`
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint64
	Phoff     uint64
	Shoff     uint64
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

type elfHeader32 struct {
	Ident     string `struc:"[16]byte"`
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint32
	Phoff     uint32
	Shoff     uint32
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

type elfProg64 struct {
	Type, Flags                                uint32
	Offset, Vaddr, Paddr, Filesz, Memsz, Align uint64
}

type elfProg32 struct {
	Type, Offset, Vaddr, Paddr, Filesz, Memsz, Flags, Align uint32
}

type elfSection64 struct {
	Name, Type                uint32
	Flags, Addr, Offset, Size uint64
	Link, Info                uint32
	Addralign, Entsize        uint64
}

type elfSection32 struct {
	Name, Type, Flags, Addr, Offset, Size, Link, Info, Addralign, Entsize uint32
}

// Values shared by the synthetic ELF images.
const (
	ElfEntry     = 0x400111
	ElfLoadOff   = 0x111
	ElfTextFlags = 0xAAA
	ElfInterp    = "/lib/ld.so"
	ElfShoff     = 0x180
	ElfSize      = 0x300
)

const elfStrtab = "\x00.text\x00.shstrtab\x00"

// Elf builds an executable with a LOAD and an INTERP program header and
// the sections "", ".text" and ".shstrtab".
func Elf(order binary.ByteOrder, is64 bool) []byte {
	var buf bytes.Buffer
	data := byte(1)
	if order == binary.BigEndian {
		data = 2
	}
	class := byte(1)
	ehsize, phentsize, shentsize := 52, 32, 40
	if is64 {
		class = 2
		ehsize, phentsize, shentsize = 64, 56, 64
	}
	ident := string([]byte{0x7f, 'E', 'L', 'F', class, data, 1})
	interpOff := ehsize + 2*phentsize
	strtabOff := interpOff + len(ElfInterp) + 1
	shoff := ElfShoff

	sections := []elfSection64{
		{},
		{Name: 1, Type: 1, Flags: ElfTextFlags, Addr: 0x400000 + ElfLoadOff, Offset: ElfLoadOff, Size: 0x40, Addralign: 16},
		{Name: 7, Type: 3, Offset: uint64(strtabOff), Size: uint64(len(elfStrtab)), Addralign: 1},
	}
	progs := []elfProg64{
		{Type: 1, Flags: 5, Offset: ElfLoadOff, Vaddr: 0x400000 + ElfLoadOff, Paddr: 0x400000 + ElfLoadOff, Filesz: 0x40, Memsz: 0x40, Align: 0x1000},
		{Type: 3, Flags: 4, Offset: uint64(interpOff), Vaddr: 0x400000 + uint64(interpOff), Filesz: uint64(len(ElfInterp) + 1), Memsz: uint64(len(ElfInterp) + 1), Align: 1},
	}
	if is64 {
		pack(&buf, order, &elfHeader64{
			Ident: ident, Type: 2, Machine: 62, Version: 1, Entry: ElfEntry,
			Phoff: uint64(ehsize), Shoff: uint64(shoff), Ehsize: uint16(ehsize),
			Phentsize: uint16(phentsize), Phnum: 2,
			Shentsize: uint16(shentsize), Shnum: 3, Shstrndx: 2,
		})
		for i := range progs {
			pack(&buf, order, &progs[i])
		}
	} else {
		pack(&buf, order, &elfHeader32{
			Ident: ident, Type: 2, Machine: 3, Version: 1, Entry: ElfEntry,
			Phoff: uint32(ehsize), Shoff: uint32(shoff), Ehsize: uint16(ehsize),
			Phentsize: uint16(phentsize), Phnum: 2,
			Shentsize: uint16(shentsize), Shnum: 3, Shstrndx: 2,
		})
		for _, p := range progs {
			pack(&buf, order, &elfProg32{
				Type: p.Type, Offset: uint32(p.Offset), Vaddr: uint32(p.Vaddr), Paddr: uint32(p.Paddr),
				Filesz: uint32(p.Filesz), Memsz: uint32(p.Memsz), Flags: p.Flags, Align: uint32(p.Align),
			})
		}
	}
	buf.WriteString(ElfInterp + "\x00")
	buf.WriteString(elfStrtab)
	pad(&buf, shoff)
	for _, s := range sections {
		if is64 {
			pack(&buf, order, &s)
			continue
		}
		pack(&buf, order, &elfSection32{
			Name: s.Name, Type: s.Type, Flags: uint32(s.Flags), Addr: uint32(s.Addr),
			Offset: uint32(s.Offset), Size: uint32(s.Size), Link: s.Link, Info: s.Info,
			Addralign: uint32(s.Addralign), Entsize: uint32(s.Entsize),
		})
	}
	pad(&buf, ElfSize)
	out := buf.Bytes()
	copy(out[ElfLoadOff:], bytes.Repeat([]byte{0x90}, 0x40))
	return out
}

func pack(buf *bytes.Buffer, order binary.ByteOrder, v interface{}) {
	if err := struc.PackWithOrder(buf, v, order); err != nil {
		panic(err)
	}
}

func pad(buf *bytes.Buffer, size int) {
	if n := size - buf.Len(); n > 0 {
		buf.Write(make([]byte, n))
	}
}
