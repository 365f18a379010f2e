// Package macho parses Mach-O images, including the first slice of a
// universal file, into editable fields over the original bytes.
package macho

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"

	"github.com/M3str3/HexSpell/go/field"
	"github.com/M3str3/HexSpell/go/models"
)

var cpuMap = map[uint32]string{
	7:          "x86",
	0x01000007: "x86_64",
	12:         "arm",
	0x0100000c: "arm64",
	18:         "ppc",
	0x01000012: "ppc64",
}

type File struct {
	Buffer       []byte
	Header       *Header
	LoadCommands []*LoadCommand
	Segments     []*Segment
	ByteOrder    binary.ByteOrder

	// Fat is set when the image was taken from a universal file. Base is
	// where the image starts in Buffer; all field offsets stay absolute.
	Fat  *Fat
	Base int
}

// Parse decodes buf. For universal files the first architecture is parsed
// and the wrapper is kept in Buffer, so writing the file preserves it.
func Parse(buf []byte) (*File, error) {
	if len(buf) < header32Size {
		return nil, models.Overflowf("mach-o header needs %d bytes, have %d", header32Size, len(buf))
	}
	if !IsFat(buf) {
		return parseImage(buf, 0, len(buf))
	}
	fat, err := parseFat(buf)
	if err != nil {
		return nil, err
	}
	arch := fat.Arches[0]
	if !field.Fits(buf, arch.Offset, arch.Size) {
		return nil, models.Overflowf("architecture slice %#x+%#x runs past the file", arch.Offset, arch.Size)
	}
	start, end := int(arch.Offset), int(arch.Offset+arch.Size)
	if IsFat(buf[start:end]) {
		return nil, models.Invalidf("nested universal file at %#x", start)
	}
	f, err := parseImage(buf, start, end)
	if err != nil {
		return nil, err
	}
	f.Fat = fat
	return f, nil
}

func parseImage(buf []byte, base, end int) (*File, error) {
	view := buf[:end]
	h, order, err := parseHeader(view, base)
	if err != nil {
		return nil, err
	}
	cmds, err := parseLoadCommands(view, base+h.Size(), h.Ncmds.Value, order)
	if err != nil {
		return nil, err
	}
	segs, err := parseSegments(view, base, cmds, order)
	if err != nil {
		return nil, err
	}
	return &File{
		Buffer:       buf,
		Header:       h,
		LoadCommands: cmds,
		Segments:     segs,
		ByteOrder:    order,
		Base:         base,
	}, nil
}

func Open(path string) (*File, error) {
	buf, err := models.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(buf)
}

func (f *File) WriteFile(path string) error {
	return models.WriteFile(path, f.Buffer)
}

func (f *File) Bits() int {
	if f.Header.Is64() {
		return 64
	}
	return 32
}

func (f *File) Arch() string {
	if name, ok := cpuMap[f.Header.CPUType.Value]; ok {
		return name
	}
	return "unknown"
}

func (f *File) Segment(name string) *Segment {
	for _, s := range f.Segments {
		if s.Name.Value == name {
			return s
		}
	}
	return nil
}

// thread_command flavors
const (
	x86_THREAD_STATE32 = 1
	x86_THREAD_STATE64 = 4
	x86_THREAD_STATE   = 7
	ARM_THREAD_STATE   = 1
	ARM_THREAD_STATE64 = 6
)

type threadPC struct {
	cpu, flavor uint32
	off, size   int
}

// pc location inside the thread command, past cmd/cmdsize/flavor/count.
// x86_THREAD_STATE prefixes the state with its own flavor and count.
var threadPCs = []threadPC{
	{7, x86_THREAD_STATE32, 16 + 10*4, 4},
	{7, x86_THREAD_STATE, 24 + 10*4, 4},
	{0x01000007, x86_THREAD_STATE64, 16 + 16*8, 8},
	{0x01000007, x86_THREAD_STATE, 24 + 16*8, 8},
	{12, ARM_THREAD_STATE, 16 + 15*4, 4},
	{0x0100000c, ARM_THREAD_STATE64, 16 + 32*8, 8},
}

// threadEntry reads the program counter from an LC_UNIXTHREAD record.
func (f *File) threadEntry(data []byte) (uint64, error) {
	flavor, err := field.Extract32(data, 8, f.ByteOrder)
	if err != nil {
		return 0, err
	}
	cpu := f.Header.CPUType.Value
	for _, t := range threadPCs {
		if t.cpu != cpu || t.flavor != flavor {
			continue
		}
		if t.size == 4 {
			pc, err := field.Extract32(data, t.off, f.ByteOrder)
			return uint64(pc), err
		}
		return field.Extract64(data, t.off, f.ByteOrder)
	}
	return 0, models.Unsupported(fmt.Sprintf("thread state flavor %d for cpu %#x", flavor, cpu))
}

// Entry finds the entry point from LC_MAIN or LC_UNIXTHREAD.
func (f *File) Entry() (uint64, error) {
	for _, lc := range f.LoadCommands {
		data := lc.Data(f.Buffer)
		switch lc.Cmd.Value {
		case LC_UNIXTHREAD:
			return f.threadEntry(data)
		case LC_MAIN:
			// [8:16] == entry - __TEXT, [16:24] == stack size
			text := f.Segment("__TEXT")
			if text == nil {
				return 0, errors.New("found LC_MAIN but no __TEXT segment")
			}
			off, err := field.Extract64(data, 8, f.ByteOrder)
			if err != nil {
				return 0, err
			}
			return text.Vmaddr.Value + off, nil
		}
	}
	return 0, errors.New("could not find entry point")
}

// Interp returns the dynamic linker named by LC_LOAD_DYLINKER.
func (f *File) Interp() string {
	for _, lc := range f.LoadCommands {
		if lc.Cmd.Value == LC_LOAD_DYLINKER {
			return lc.lcString(f.Buffer, f.ByteOrder)
		}
	}
	return ""
}

func (f *File) Fields() []field.Named {
	var fields []field.Named
	if f.Fat != nil {
		fields = field.Prefix("fat", f.Fat.Fields())
	}
	fields = append(fields, field.Prefix("header", f.Header.Fields())...)
	cmds := make([][]field.Named, len(f.LoadCommands))
	for i, lc := range f.LoadCommands {
		cmds[i] = lc.Fields()
	}
	segs := make([][]field.Named, len(f.Segments))
	for i, s := range f.Segments {
		segs[i] = s.Fields()
	}
	fields = append(fields, field.Indexed("commands", cmds...)...)
	return append(fields, field.Indexed("segments", segs...)...)
}
