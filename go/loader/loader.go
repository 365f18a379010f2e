package loader

import (
	"encoding/binary"

	"github.com/M3str3/HexSpell/go/field"
	"github.com/M3str3/HexSpell/go/models"
)

const (
	UNKNOWN = iota
	EXEC
	DYN
	REL
)

// Binary is the format-independent view of a parsed executable. Fields
// edit Bytes in place.
type Binary interface {
	Format() string
	Arch() string
	Bits() int
	ByteOrder() binary.ByteOrder
	OS() string
	Entry() uint64
	Type() int
	Interp() string
	Bytes() []byte
	Fields() []field.Named
	Segments() ([]models.SegmentData, error)
	WriteFile(path string) error
}

// LoaderBase holds what cannot change after parsing. Arch and Bits come
// from each loader's header fields so edits show up.
type LoaderBase struct {
	format    string
	byteOrder binary.ByteOrder
	os        string
}

func (l *LoaderBase) Format() string {
	return l.format
}

func (l *LoaderBase) ByteOrder() binary.ByteOrder {
	if l.byteOrder == nil {
		return binary.LittleEndian
	}
	return l.byteOrder
}

func (l *LoaderBase) OS() string {
	return l.os
}

func TypeName(t int) string {
	switch t {
	case EXEC:
		return "exec"
	case DYN:
		return "dyn"
	case REL:
		return "rel"
	}
	return "unknown"
}
