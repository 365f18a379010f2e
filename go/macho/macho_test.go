package macho

import (
	"bytes"
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

func TestParse(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		for _, is64 := range []bool{false, true} {
			f, err := Parse(mock.MachO(order, is64))
			require.NoError(t, err)
			require.Equal(t, order, f.ByteOrder)
			require.Nil(t, f.Fat)
			require.Equal(t, uint32(3), f.Header.Ncmds.Value)
			require.Len(t, f.LoadCommands, 3)
			require.Equal(t, "LC_LOAD_DYLINKER", f.LoadCommands[1].Name())
			require.Equal(t, "LC_MAIN", f.LoadCommands[2].Name())
			require.Len(t, f.Segments, 1)

			text := f.Segment("__TEXT")
			require.NotNil(t, text)
			require.Equal(t, uint64(mock.MachoSize), text.Filesize.Value)
			require.Equal(t, models.PROT_READ|models.PROT_EXEC, text.Prot())
			require.Len(t, text.Sections, 1)
			require.Equal(t, "__text", text.Sections[0].Name.Value)
			require.Equal(t, "__TEXT", text.Sections[0].Segname.Value)
			require.Equal(t, uint32(mock.MachoEntryOff), text.Sections[0].Offset.Value)

			entry, err := f.Entry()
			require.NoError(t, err)
			require.Equal(t, mock.MachoDylinker, f.Interp())
			if is64 {
				require.Equal(t, 64, f.Bits())
				require.Equal(t, "x86_64", f.Arch())
				require.Equal(t, uint64(mock.MachoTextAddr64), text.Vmaddr.Value)
				require.Equal(t, uint64(mock.MachoTextAddr64+mock.MachoEntryOff), entry)
				require.Equal(t, 8, text.Vmaddr.Size)
			} else {
				require.Equal(t, 32, f.Bits())
				require.Equal(t, "x86", f.Arch())
				require.Equal(t, uint64(mock.MachoTextAddr32+mock.MachoEntryOff), entry)
				require.Equal(t, 4, text.Vmaddr.Size)
			}
		}
	}
}

func TestFatSelectsFirstSlice(t *testing.T) {
	inner := mock.MachO(binary.LittleEndian, true)
	plain, err := Parse(append([]byte(nil), inner...))
	require.NoError(t, err)

	buf := mock.Fat(inner, mock.MachoCPU64)
	f, err := Parse(buf)
	require.NoError(t, err)
	require.NotNil(t, f.Fat)
	require.Len(t, f.Fat.Arches, 1)
	require.Equal(t, uint64(mock.FatOffset), f.Fat.Arches[0].Offset)
	require.Equal(t, mock.FatOffset, f.Base)

	require.Equal(t, plain.Header.CPUType.Value, f.Header.CPUType.Value)
	require.Equal(t, plain.Header.Ncmds.Value, f.Header.Ncmds.Value)
	require.Equal(t, plain.Header.Sizeofcmds.Value, f.Header.Sizeofcmds.Value)
	require.Equal(t, mock.FatOffset+plain.Header.Magic.Offset, f.Header.Magic.Offset)

	data, err := f.Segment("__TEXT").Data(f.Buffer)
	require.NoError(t, err)
	require.Equal(t, inner[:mock.MachoSize], data)

	require.NoError(t, f.Header.Flags.Update(f.Buffer, 0x1))
	require.Equal(t, []byte{1, 0, 0, 0}, buf[mock.FatOffset+24:mock.FatOffset+28])
	require.Equal(t, []byte{0xca, 0xfe, 0xba, 0xbe}, buf[:4])
}

func TestFatLittleEndianAnd64(t *testing.T) {
	inner := mock.MachO(binary.BigEndian, false)
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, []uint32{FAT_MAGIC_64, 1})
	binary.Write(&buf, binary.LittleEndian, []uint32{18, 0})
	binary.Write(&buf, binary.LittleEndian, []uint64{0x40, uint64(len(inner))})
	binary.Write(&buf, binary.LittleEndian, []uint32{6, 0})
	buf.Write(make([]byte, 0x40-buf.Len()))
	buf.Write(inner)

	f, err := Parse(buf.Bytes())
	require.NoError(t, err)
	require.True(t, f.Fat.Is64)
	require.Equal(t, binary.BigEndian, f.ByteOrder)
	require.Equal(t, 0x40, f.Base)
	require.Equal(t, uint32(mock.MachoCPU32), f.Header.CPUType.Value)
}

func TestFatErrors(t *testing.T) {
	inner := mock.MachO(binary.LittleEndian, true)

	buf := mock.Fat(inner, mock.MachoCPU64)
	binary.BigEndian.PutUint32(buf[4:], 0)
	_, err := Parse(buf)
	require.True(t, errors.Is(err, models.ErrInvalidFileFormat), "%v", err)

	buf = mock.Fat(inner, mock.MachoCPU64)
	binary.BigEndian.PutUint32(buf[8+12:], uint32(len(inner)+1))
	_, err = Parse(buf)
	require.True(t, errors.Is(err, models.ErrBufferOverflow), "%v", err)

	nested := mock.Fat(mock.Fat(inner, mock.MachoCPU64), mock.MachoCPU64)
	_, err = Parse(nested)
	require.True(t, errors.Is(err, models.ErrInvalidFileFormat), "%v", err)

	// the load commands may not reach past the end of the slice
	buf = mock.Fat(inner, mock.MachoCPU64)
	short := append([]byte(nil), buf...)
	binary.BigEndian.PutUint32(short[8+12:], 0x40)
	short = append(short, make([]byte, 0x1000)...)
	_, err = Parse(short)
	require.True(t, errors.Is(err, models.ErrBufferOverflow), "%v", err)
}

func TestRoundTrip(t *testing.T) {
	for _, orig := range [][]byte{
		mock.MachO(binary.BigEndian, true),
		mock.Fat(mock.MachO(binary.LittleEndian, false), mock.MachoCPU32),
	} {
		f, err := Parse(append([]byte(nil), orig...))
		require.NoError(t, err)
		path := filepath.Join(t.TempDir(), "a.out")
		require.NoError(t, f.WriteFile(path))
		out, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, orig, out)
	}
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(make([]byte, 10))
	require.True(t, errors.Is(err, models.ErrBufferOverflow), "%v", err)

	buf := mock.MachO(binary.LittleEndian, true)
	bad := append([]byte(nil), buf...)
	copy(bad, "\x00\x00\x00\x00")
	_, err = Parse(bad)
	require.True(t, errors.Is(err, models.ErrInvalidFileFormat), "%v", err)

	_, err = Parse(buf[:30])
	require.True(t, errors.Is(err, models.ErrBufferOverflow), "%v", err)

	bad = append([]byte(nil), buf...)
	binary.LittleEndian.PutUint32(bad[20:], 0x10000)
	_, err = Parse(bad)
	require.True(t, errors.Is(err, models.ErrBufferOverflow), "sizeofcmds: %v", err)

	bad = append([]byte(nil), buf...)
	binary.LittleEndian.PutUint32(bad[32+4:], 4)
	_, err = Parse(bad)
	require.True(t, errors.Is(err, models.ErrInvalidFileFormat), "cmdsize: %v", err)

	bad = append([]byte(nil), buf...)
	binary.LittleEndian.PutUint32(bad[32+4:], 0x1000)
	_, err = Parse(bad)
	require.True(t, errors.Is(err, models.ErrBufferOverflow), "cmdsize: %v", err)

	bad = append([]byte(nil), buf...)
	binary.LittleEndian.PutUint32(bad[16:], 1000)
	_, err = Parse(bad)
	require.Error(t, err)

	bad = append([]byte(nil), buf...)
	binary.LittleEndian.PutUint32(bad[32+64:], 5)
	_, err = Parse(bad)
	require.True(t, errors.Is(err, models.ErrInvalidFileFormat), "nsects: %v", err)
}

func TestUnixThreadEntry(t *testing.T) {
	cases := []struct {
		cpu, flavor uint32
		words       int
		wide        bool
		pcIndex     int
	}{
		{0x01000007, 4, 21, true, 16}, // rip
		{0x0100000c, 6, 34, true, 32}, // pc after x0-x28, fp, lr, sp
		{7, 1, 16, false, 10},         // eip
		{12, 1, 17, false, 15},        // r15
	}
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		for _, c := range cases {
			width := 4
			if c.wide {
				width = 8
			}
			state := make([]byte, c.words*width)
			for i := 0; i < c.words; i++ {
				// a distinct value in every register so a wrong slot shows
				if c.wide {
					order.PutUint64(state[i*8:], 0xdead0000+uint64(i))
				} else {
					order.PutUint32(state[i*4:], 0xdead0000+uint32(i))
				}
			}
			want := uint64(0x100003f00)
			if c.wide {
				order.PutUint64(state[c.pcIndex*8:], want)
			} else {
				want = 0x3f00
				order.PutUint32(state[c.pcIndex*4:], uint32(want))
			}
			f, err := Parse(mock.MachOThread(order, c.cpu, c.flavor, state))
			require.NoError(t, err)
			entry, err := f.Entry()
			require.NoError(t, err, "cpu %#x", c.cpu)
			require.Equal(t, want, entry, "cpu %#x", c.cpu)
		}
	}
}

func TestUnixThreadEntryRejects(t *testing.T) {
	// x86_64 thread state flavor on an arm64 image
	f, err := Parse(mock.MachOThread(binary.LittleEndian, 0x0100000c, 4, make([]byte, 168)))
	require.NoError(t, err)
	_, err = f.Entry()
	var unsupported *models.UnsupportedFeatureError
	require.True(t, errors.As(err, &unsupported))

	// state too short to hold the pc
	f, err = Parse(mock.MachOThread(binary.LittleEndian, 0x01000007, 4, make([]byte, 64)))
	require.NoError(t, err)
	_, err = f.Entry()
	require.True(t, errors.Is(err, models.ErrBufferOverflow))
}

func TestFields(t *testing.T) {
	f, err := Parse(mock.Fat(mock.MachO(binary.LittleEndian, true), mock.MachoCPU64))
	require.NoError(t, err)
	fields := f.Fields()
	ed, err := field.Lookup(fields, "segments[0].sections[0].sectname")
	require.NoError(t, err)
	require.NoError(t, ed.Set(f.Buffer, "__code"))

	g, err := Parse(f.Buffer)
	require.NoError(t, err)
	require.Equal(t, "__code", g.Segments[0].Sections[0].Name.Value)
	_, err = field.Lookup(fields, "fat.nfat_arch")
	require.NoError(t, err)
	_, err = field.Lookup(fields, "commands[2].cmdsize")
	require.NoError(t, err)
}
