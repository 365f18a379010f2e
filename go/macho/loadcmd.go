package macho

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/M3str3/HexSpell/go/field"
	"github.com/M3str3/HexSpell/go/models"
)

const (
	LC_REQ_DYLD = 0x80000000

	LC_SEGMENT         = 0x1
	LC_SYMTAB          = 0x2
	LC_UNIXTHREAD      = 0x5
	LC_DYSYMTAB        = 0xb
	LC_LOAD_DYLIB      = 0xc
	LC_ID_DYLIB        = 0xd
	LC_LOAD_DYLINKER   = 0xe
	LC_SEGMENT_64      = 0x19
	LC_UUID            = 0x1b
	LC_CODE_SIGNATURE  = 0x1d
	LC_DYLD_INFO_ONLY  = 0x22 | LC_REQ_DYLD
	LC_FUNCTION_STARTS = 0x26
	LC_MAIN            = 0x28 | LC_REQ_DYLD
	LC_SOURCE_VERSION  = 0x2a
	LC_BUILD_VERSION   = 0x32
)

var cmdNames = map[uint32]string{
	LC_SEGMENT:         "LC_SEGMENT",
	LC_SYMTAB:          "LC_SYMTAB",
	LC_UNIXTHREAD:      "LC_UNIXTHREAD",
	LC_DYSYMTAB:        "LC_DYSYMTAB",
	LC_LOAD_DYLIB:      "LC_LOAD_DYLIB",
	LC_ID_DYLIB:        "LC_ID_DYLIB",
	LC_LOAD_DYLINKER:   "LC_LOAD_DYLINKER",
	LC_SEGMENT_64:      "LC_SEGMENT_64",
	LC_UUID:            "LC_UUID",
	LC_CODE_SIGNATURE:  "LC_CODE_SIGNATURE",
	LC_DYLD_INFO_ONLY:  "LC_DYLD_INFO_ONLY",
	LC_FUNCTION_STARTS: "LC_FUNCTION_STARTS",
	LC_MAIN:            "LC_MAIN",
	LC_SOURCE_VERSION:  "LC_SOURCE_VERSION",
	LC_BUILD_VERSION:   "LC_BUILD_VERSION",
}

type LoadCommand struct {
	Cmd     field.Field[uint32]
	Cmdsize field.Field[uint32]
}

// parseLoadCommands walks ncmds records starting at off. Each record
// declares its own size.
func parseLoadCommands(buf []byte, off int, ncmds uint32, order binary.ByteOrder) ([]*LoadCommand, error) {
	var cmds []*LoadCommand
	for i := uint32(0); i < ncmds; i++ {
		r := field.NewReader(buf, order)
		lc := &LoadCommand{Cmd: r.U32(off), Cmdsize: r.U32(off + 4)}
		if r.Err != nil {
			return nil, r.Err
		}
		size := lc.Cmdsize.Value
		if size < 8 {
			return nil, models.Invalidf("load command %d has size %d", i, size)
		}
		if !field.Fits(buf, uint64(off), uint64(size)) {
			return nil, models.Overflowf("load command %d (%d bytes at %#x) runs past the image", i, size, off)
		}
		cmds = append(cmds, lc)
		off += int(size)
	}
	return cmds, nil
}

func (l *LoadCommand) Offset() int {
	return l.Cmd.Offset
}

func (l *LoadCommand) Name() string {
	if name, ok := cmdNames[l.Cmd.Value]; ok {
		return name
	}
	return fmt.Sprintf("LC_%#x", l.Cmd.Value)
}

// Data returns the whole command record.
func (l *LoadCommand) Data(buf []byte) []byte {
	p, err := field.Slice(buf, l.Offset(), int(l.Cmdsize.Value))
	if err != nil {
		return nil
	}
	return p
}

// lcString reads an lc_str member: a command-relative offset at +8 that
// points at a NUL terminated string inside the command.
func (l *LoadCommand) lcString(buf []byte, order binary.ByteOrder) string {
	data := l.Data(buf)
	if len(data) < 12 {
		return ""
	}
	off := order.Uint32(data[8:12])
	if off >= uint32(len(data)) {
		return ""
	}
	s := data[off:]
	if i := bytes.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return string(s)
}

func (l *LoadCommand) Fields() []field.Named {
	return []field.Named{
		{Name: "cmd", Field: &l.Cmd},
		{Name: "cmdsize", Field: &l.Cmdsize},
	}
}
