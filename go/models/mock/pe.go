package mock

import (
	"bytes"
	"encoding/binary"

	"github.com/lunixbochs/struc"
)

type coffHeader struct {
	Signature            string `struc:"[4]byte"`
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

// optionalHeader covers the fields shared by PE32 and PE32+. For PE32+
// BaseOfData and ImageBase together hold the 64-bit image base.
type optionalHeader struct {
	Magic                   uint16
	LinkerVersion           uint16
	SizeOfCode              uint32
	SizeOfInitializedData   uint32
	SizeOfUninitializedData uint32
	AddressOfEntryPoint     uint32
	BaseOfCode              uint32
	BaseOfData              uint32
	ImageBase               uint32
	SectionAlignment        uint32
	FileAlignment           uint32
	OSVersion               uint32
	ImageVersion            uint32
	SubsystemVersion        uint32
	Win32VersionValue       uint32
	SizeOfImage             uint32
	SizeOfHeaders           uint32
	CheckSum                uint32
	Subsystem               uint16
	DllCharacteristics      uint16
}

type sectionHeader struct {
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

// Layout of the synthetic PE images.
const (
	PELfanew        = 0x80
	PEImageBase32   = 0x400000
	PEImageBase64   = 0x140000000
	PEEntry         = 0x1000
	PESectionAlign  = 0x1000
	PEFileAlign     = 0x200
	PESizeOfImage   = 0x3000
	PESizeOfHeaders = 0x200
	PESize          = 0x600
	PEString        = "Hello from the text section"
)

// PE builds an image with .text and .data sections and a valid checksum.
// plus selects PE32+ over PE32.
func PE(plus bool) []byte {
	var buf bytes.Buffer
	buf.WriteString("MZ")
	pad(&buf, 0x3c)
	binary.Write(&buf, binary.LittleEndian, uint32(PELfanew))
	buf.WriteString("This program cannot be run in DOS mode.")
	pad(&buf, PELfanew)

	machine, optSize := uint16(0x14c), uint16(224)
	if plus {
		machine, optSize = 0x8664, 240
	}
	peLE(&buf, &coffHeader{
		Signature:            "PE\x00\x00",
		Machine:              machine,
		NumberOfSections:     2,
		SizeOfOptionalHeader: optSize,
		Characteristics:      0x102,
	})
	opt := optionalHeader{
		Magic:               0x10b,
		SizeOfCode:          0x200,
		AddressOfEntryPoint: PEEntry,
		BaseOfCode:          0x1000,
		BaseOfData:          0x2000,
		ImageBase:           PEImageBase32,
		SectionAlignment:    PESectionAlign,
		FileAlignment:       PEFileAlign,
		SubsystemVersion:    6,
		SizeOfImage:         PESizeOfImage,
		SizeOfHeaders:       PESizeOfHeaders,
		Subsystem:           3,
		DllCharacteristics:  0x8160,
	}
	if plus {
		opt.Magic = 0x20b
		opt.BaseOfData = uint32(PEImageBase64 & 0xffffffff)
		opt.ImageBase = uint32(PEImageBase64 >> 32)
	}
	optStart := buf.Len()
	peLE(&buf, &opt)
	// stack and heap sizes, loader flags, data directories
	pad(&buf, optStart+int(optSize))
	buf.Bytes()[optStart+int(optSize)-128-4] = 16

	peLE(&buf, &sectionHeader{
		Name: ".text", VirtualSize: uint32(len(PEString)) + 0x10, VirtualAddress: 0x1000,
		SizeOfRawData: 0x200, PointerToRawData: 0x200, Characteristics: 0x60000020,
	})
	peLE(&buf, &sectionHeader{
		Name: ".data", VirtualSize: 0x10, VirtualAddress: 0x2000,
		SizeOfRawData: 0x200, PointerToRawData: 0x400, Characteristics: 0xc0000040,
	})
	pad(&buf, PESizeOfHeaders)
	buf.Write([]byte{0x55, 0x48, 0x89, 0xe5, 0x31, 0xc0, 0x5d, 0xc3})
	pad(&buf, 0x210)
	buf.WriteString(PEString + "\x00")
	pad(&buf, 0x400)
	buf.WriteString("\x01\x02\x03\x04")
	pad(&buf, PESize)

	out := buf.Bytes()
	csOff := PELfanew + 24 + 64
	binary.LittleEndian.PutUint32(out[csOff:], PEChecksum(out, csOff))
	return out
}

// PEChecksum is a straightforward word-at-a-time PE checksum used to seed
// the synthetic images.
func PEChecksum(p []byte, csOff int) uint32 {
	var sum uint32
	for i := 0; i < len(p); i += 2 {
		if i == csOff || i == csOff+2 {
			continue
		}
		if i+1 < len(p) {
			sum += uint32(p[i]) | uint32(p[i+1])<<8
		} else {
			sum += uint32(p[i])
		}
		sum = (sum & 0xffff) + (sum >> 16)
	}
	sum += uint32(len(p))
	sum = (sum & 0xffff) + (sum >> 16)
	return (sum & 0xffff) + (sum >> 16)
}

func peLE(buf *bytes.Buffer, v interface{}) {
	if err := struc.PackWithOrder(buf, v, binary.LittleEndian); err != nil {
		panic(err)
	}
}
