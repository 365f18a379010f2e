package elf

import (
	goelf "debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/M3str3/HexSpell/go/field"
	"github.com/M3str3/HexSpell/go/models"
	"github.com/M3str3/HexSpell/go/models/mock"
)

func TestParseElf64(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		f, err := Parse(mock.Elf(order, true))
		require.NoError(t, err, order.String())
		require.Equal(t, order, f.ByteOrder)
		require.Equal(t, 64, f.Bits())
		require.Equal(t, "x86_64", f.Arch())
		require.Equal(t, "EXEC", f.TypeName())
		require.Equal(t, uint64(mock.ElfEntry), f.Header.Entry.Value)
		require.Equal(t, 8, f.Header.Entry.Size)

		require.Len(t, f.ProgramHeaders, 2)
		require.Equal(t, uint64(0x111), f.ProgramHeaders[0].Offset.Value)
		require.Equal(t, uint32(goelf.PF_R|goelf.PF_X), f.ProgramHeaders[0].Flags.Value)
		require.Equal(t, "LOAD", f.ProgramHeaders[0].TypeName())

		require.Len(t, f.SectionHeaders, 3)
		require.Equal(t, uint64(0xAAA), f.SectionHeaders[1].Flags.Value)
		require.Equal(t, ".text", f.SectionHeaders[1].Name)
		require.Equal(t, ".shstrtab", f.SectionHeaders[2].Name)
		require.Equal(t, mock.ElfInterp, f.Interp())
		require.NotNil(t, f.Section(".text"))
		require.Nil(t, f.Section(".bss"))
		require.Len(t, f.Section(".text").Data(f.Buffer), 0x40)
	}
}

func TestParseElf32(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		f, err := Parse(mock.Elf(order, false))
		require.NoError(t, err)
		require.Equal(t, 32, f.Bits())
		require.Equal(t, "x86", f.Arch())
		require.Equal(t, uint64(mock.ElfEntry), f.Header.Entry.Value)
		require.Equal(t, 4, f.Header.Entry.Size)
		require.Equal(t, uint64(mock.ElfShoff), f.Header.Shoff.Value)

		p := f.ProgramHeaders[0]
		require.Equal(t, uint64(0x111), p.Offset.Value)
		require.Equal(t, uint32(goelf.PF_R|goelf.PF_X), p.Flags.Value)
		require.Equal(t, 24, p.Flags.Offset-int(f.Header.Phoff.Value))
		require.Equal(t, uint64(0x1000), p.Align.Value)

		require.Equal(t, uint64(0xAAA), f.SectionHeaders[1].Flags.Value)
		require.Equal(t, ".text", f.SectionHeaders[1].Name)
		require.Equal(t, mock.ElfInterp, f.Interp())

		err = f.Header.Entry.Update(f.Buffer, 1<<32)
		require.True(t, errors.Is(err, models.ErrValueTooLarge))
	}
}

func TestRoundTrip(t *testing.T) {
	orig := mock.Elf(binary.LittleEndian, true)
	f, err := Parse(append([]byte(nil), orig...))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.elf")
	require.NoError(t, f.WriteFile(path))
	out, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, orig, out)

	g, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, orig, g.Buffer)
}

func TestMutateThroughFields(t *testing.T) {
	f, err := Parse(mock.Elf(binary.BigEndian, true))
	require.NoError(t, err)

	require.NoError(t, f.Header.Entry.Update(f.Buffer, 0x401000))
	ed, err := field.Lookup(f.Fields(), "sections[1].flags")
	require.NoError(t, err)
	require.NoError(t, ed.Set(f.Buffer, "0x6"))

	g, err := Parse(f.Buffer)
	require.NoError(t, err)
	require.Equal(t, uint64(0x401000), g.Header.Entry.Value)
	require.Equal(t, uint64(goelf.SHF_ALLOC|goelf.SHF_EXECINSTR), g.SectionHeaders[1].Flags.Value)
}

func TestFieldNames(t *testing.T) {
	f, err := Parse(mock.Elf(binary.LittleEndian, true))
	require.NoError(t, err)
	fields := f.Fields()
	require.Len(t, fields, 17+2*8+3*10)
	require.Equal(t, "header.class", fields[0].Name)
	_, err = field.Lookup(fields, "programs[1].filesz")
	require.NoError(t, err)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(make([]byte, 10))
	require.True(t, errors.Is(err, models.ErrBufferOverflow), "short: %v", err)

	buf := mock.Elf(binary.LittleEndian, true)
	bad := append([]byte(nil), buf...)
	copy(bad, "JUNK")
	_, err = Parse(bad)
	require.True(t, errors.Is(err, models.ErrInvalidFileFormat), "magic: %v", err)

	bad = append([]byte(nil), buf...)
	bad[4] = 3
	_, err = Parse(bad)
	require.True(t, errors.Is(err, models.ErrInvalidFileFormat), "class: %v", err)

	bad = append([]byte(nil), buf...)
	bad[5] = 0
	_, err = Parse(bad)
	require.True(t, errors.Is(err, models.ErrInvalidFileFormat), "data: %v", err)

	_, err = Parse(buf[:60])
	require.True(t, errors.Is(err, models.ErrBufferOverflow), "elf64 header: %v", err)

	_, err = Parse(buf[:mock.ElfShoff+64])
	require.True(t, errors.Is(err, models.ErrBufferOverflow), "section table: %v", err)

	bad = append([]byte(nil), buf...)
	binary.LittleEndian.PutUint16(bad[54:], 16)
	_, err = Parse(bad)
	require.True(t, errors.Is(err, models.ErrInvalidFileFormat), "phentsize: %v", err)

	bad = append([]byte(nil), buf...)
	binary.LittleEndian.PutUint64(bad[32:], ^uint64(0)-8)
	_, err = Parse(bad)
	require.True(t, errors.Is(err, models.ErrBufferOverflow), "phoff: %v", err)
}

func TestBadStringTableIsTolerated(t *testing.T) {
	buf := mock.Elf(binary.LittleEndian, true)
	binary.LittleEndian.PutUint16(buf[62:], 9)
	f, err := Parse(buf)
	require.NoError(t, err)
	require.Equal(t, "", f.SectionHeaders[1].Name)
}
