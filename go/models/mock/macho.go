package mock

import (
	"bytes"
	"encoding/binary"
)

type machHeader struct {
	Magic      uint32
	CPUType    uint32
	CPUSubtype uint32
	FileType   uint32
	Ncmds      uint32
	Sizeofcmds uint32
	Flags      uint32
}

type segment64 struct {
	Cmd, Cmdsize      uint32
	Name              string `struc:"[16]byte"`
	Vmaddr, Vmsize    uint64
	Fileoff, Filesz   uint64
	Maxprot, Initprot uint32
	Nsects, Flags     uint32
}

type segment32 struct {
	Cmd, Cmdsize      uint32
	Name              string `struc:"[16]byte"`
	Vmaddr, Vmsize    uint32
	Fileoff, Filesz   uint32
	Maxprot, Initprot uint32
	Nsects, Flags     uint32
}

type section64 struct {
	Name, Segname                        string `struc:"[16]byte"`
	Addr, Size                           uint64
	Offset, Align, Reloff, Nreloc, Flags uint32
	Reserved1, Reserved2, Reserved3      uint32
}

type section32 struct {
	Name, Segname                        string `struc:"[16]byte"`
	Addr, Size                           uint32
	Offset, Align, Reloff, Nreloc, Flags uint32
	Reserved1, Reserved2                 uint32
}

type dylinker struct {
	Cmd, Cmdsize, Offset uint32
	Name                 string `struc:"[20]byte"`
}

type entryPoint struct {
	Cmd, Cmdsize        uint32
	Entryoff, Stacksize uint64
}

type fatHeader struct {
	Magic    uint32
	NfatArch uint32
}

type fatArch struct {
	CPUType, CPUSubtype, Offset, Size, Align uint32
}

// Values shared by the synthetic Mach-O images.
const (
	MachoTextAddr64 = 0x100000000
	MachoTextAddr32 = 0x1000
	MachoEntryOff   = 0x180
	MachoDylinker   = "/usr/lib/dyld"
	MachoSize       = 0x200
	MachoCPU64      = 0x01000007
	MachoCPU32      = 7
	FatOffset       = 0x1000
)

// MachO builds an executable with a __TEXT segment holding one __text
// section, an LC_LOAD_DYLINKER and an LC_MAIN command.
func MachO(order binary.ByteOrder, is64 bool) []byte {
	var cmds bytes.Buffer
	if is64 {
		pack(&cmds, order, &segment64{
			Cmd: 0x19, Cmdsize: 72 + 80, Name: "__TEXT",
			Vmaddr: MachoTextAddr64, Vmsize: 0x1000, Filesz: MachoSize,
			Maxprot: 5, Initprot: 5, Nsects: 1,
		})
		pack(&cmds, order, &section64{
			Name: "__text", Segname: "__TEXT",
			Addr: MachoTextAddr64 + MachoEntryOff, Size: 0x20, Offset: MachoEntryOff, Align: 4,
			Flags: 0x80000400,
		})
	} else {
		pack(&cmds, order, &segment32{
			Cmd: 0x1, Cmdsize: 56 + 68, Name: "__TEXT",
			Vmaddr: MachoTextAddr32, Vmsize: 0x1000, Filesz: MachoSize,
			Maxprot: 5, Initprot: 5, Nsects: 1,
		})
		pack(&cmds, order, &section32{
			Name: "__text", Segname: "__TEXT",
			Addr: MachoTextAddr32 + MachoEntryOff, Size: 0x20, Offset: MachoEntryOff, Align: 4,
			Flags: 0x80000400,
		})
	}
	pack(&cmds, order, &dylinker{Cmd: 0xe, Cmdsize: 32, Offset: 12, Name: MachoDylinker})
	pack(&cmds, order, &entryPoint{Cmd: 0x80000028, Cmdsize: 24, Entryoff: MachoEntryOff})

	hdr := machHeader{
		Magic:      0xfeedface,
		CPUType:    MachoCPU32,
		CPUSubtype: 3,
		FileType:   2,
		Ncmds:      3,
		Sizeofcmds: uint32(cmds.Len()),
		Flags:      0x200085,
	}
	var buf bytes.Buffer
	if is64 {
		hdr.Magic = 0xfeedfacf
		hdr.CPUType = MachoCPU64
		pack(&buf, order, &hdr)
		buf.Write(make([]byte, 4))
	} else {
		pack(&buf, order, &hdr)
	}
	buf.Write(cmds.Bytes())
	pad(&buf, MachoEntryOff)
	buf.Write([]byte{0x55, 0x48, 0x89, 0xe5, 0x31, 0xc0, 0x5d, 0xc3})
	pad(&buf, MachoSize)
	return buf.Bytes()
}

// Fat wraps one slice in a big-endian universal header, placing it at
// FatOffset.
func Fat(slice []byte, cpu uint32) []byte {
	var buf bytes.Buffer
	pack(&buf, binary.BigEndian, &fatHeader{Magic: 0xcafebabe, NfatArch: 1})
	pack(&buf, binary.BigEndian, &fatArch{
		CPUType: cpu, CPUSubtype: 3, Offset: FatOffset, Size: uint32(len(slice)), Align: 12,
	})
	pad(&buf, FatOffset)
	buf.Write(slice)
	return buf.Bytes()
}

type threadCommand struct {
	Cmd, Cmdsize, Flavor, Count uint32
}

// MachOThread builds an executable whose only load command is an
// LC_UNIXTHREAD carrying state for the given flavor. The image is 64-bit
// when cpu has the 64-bit ABI bit set.
func MachOThread(order binary.ByteOrder, cpu, flavor uint32, state []byte) []byte {
	var cmds bytes.Buffer
	pack(&cmds, order, &threadCommand{
		Cmd: 0x5, Cmdsize: uint32(16 + len(state)), Flavor: flavor, Count: uint32(len(state) / 4),
	})
	cmds.Write(state)

	hdr := machHeader{
		Magic:      0xfeedface,
		CPUType:    cpu,
		FileType:   2,
		Ncmds:      1,
		Sizeofcmds: uint32(cmds.Len()),
	}
	var buf bytes.Buffer
	if cpu&0x01000000 != 0 {
		hdr.Magic = 0xfeedfacf
		pack(&buf, order, &hdr)
		buf.Write(make([]byte, 4))
	} else {
		pack(&buf, order, &hdr)
	}
	buf.Write(cmds.Bytes())
	pad(&buf, MachoSize)
	return buf.Bytes()
}
