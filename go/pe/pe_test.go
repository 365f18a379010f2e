package pe

import (
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
	f, err := Parse(mock.PE(false))
	require.NoError(t, err)
	require.Equal(t, PE32, f.Header.Type)
	require.Equal(t, "x86", f.Arch())
	require.Equal(t, 32, f.Bits())
	require.Equal(t, uint64(mock.PEImageBase32), f.Header.ImageBase.Value)
	require.Equal(t, 4, f.Header.ImageBase.Size)
	require.Equal(t, uint32(0x2000), f.Header.BaseOfData.Value)
	require.Equal(t, uint32(mock.PEEntry), f.Header.AddressOfEntryPoint.Value)
	require.Equal(t, uint64(mock.PEImageBase32+mock.PEEntry), f.Entry())
	require.Equal(t, uint32(mock.PESectionAlign), f.Header.SectionAlignment.Value)
	require.Equal(t, uint32(mock.PEFileAlign), f.Header.FileAlignment.Value)
	require.Equal(t, uint32(mock.PESizeOfImage), f.Header.SizeOfImage.Value)

	require.Len(t, f.Sections, 2)
	text := f.Section(".text")
	require.NotNil(t, text)
	require.True(t, text.IsExecutable())
	require.True(t, text.ContainsCode())
	require.True(t, text.IsReadable())
	require.False(t, text.IsWritable())
	require.Equal(t, "r-x", text.Flags())
	data := f.Sections[1]
	require.Equal(t, ".data", data.Name.Value)
	require.True(t, data.IsWritable())
	require.True(t, data.ContainsInitializedData())
	require.False(t, data.ContainsUninitializedData())
	require.False(t, data.IsDiscardable())
	require.False(t, data.IsTLS())
}

func TestParsePE32Plus(t *testing.T) {
	f, err := Parse(mock.PE(true))
	require.NoError(t, err)
	require.Equal(t, PE32Plus, f.Header.Type)
	require.Equal(t, "x86_64", f.Arch())
	require.Equal(t, 64, f.Bits())
	require.Equal(t, uint64(mock.PEImageBase64), f.Header.ImageBase.Value)
	require.Equal(t, 8, f.Header.ImageBase.Size)
	require.False(t, f.Header.BaseOfData.Valid())
	_, err = field.Lookup(f.Fields(), "header.base_of_data")
	require.Error(t, err)
	require.Len(t, f.Sections, 2)
}

func TestImageBaseWriteStaysInside(t *testing.T) {
	f, err := Parse(mock.PE(false))
	require.NoError(t, err)
	align := append([]byte(nil), f.Buffer[f.Header.SectionAlignment.Offset:][:4]...)

	require.NoError(t, f.Header.ImageBase.Update(f.Buffer, 0x10000000))
	require.True(t, errors.Is(f.Header.ImageBase.Update(f.Buffer, 1<<32), models.ErrValueTooLarge))
	require.Equal(t, align, f.Buffer[f.Header.SectionAlignment.Offset:][:4])

	g, err := Parse(f.Buffer)
	require.NoError(t, err)
	require.Equal(t, uint64(0x10000000), g.Header.ImageBase.Value)
	require.Equal(t, uint32(mock.PESectionAlign), g.Header.SectionAlignment.Value)
}

func TestChecksum(t *testing.T) {
	for _, plus := range []bool{false, true} {
		f, err := Parse(mock.PE(plus))
		require.NoError(t, err)
		require.NotZero(t, f.Header.CheckSum.Value)
		require.Equal(t, f.Header.CheckSum.Value, f.Checksum())

		f.Buffer[0x300] ^= 0xff
		require.NotEqual(t, f.Header.CheckSum.Value, f.Checksum())
		require.NoError(t, f.UpdateChecksum())
		require.Equal(t, mock.PEChecksum(f.Buffer, f.Header.CheckSum.Offset), f.Header.CheckSum.Value)
	}
}

func TestChecksumOddLength(t *testing.T) {
	buf := append(mock.PE(false), 0x7f)
	f, err := Parse(buf)
	require.NoError(t, err)
	require.Equal(t, mock.PEChecksum(buf, f.Header.CheckSum.Offset), f.Checksum())
}

func TestRoundTrip(t *testing.T) {
	orig := mock.PE(true)
	f, err := Parse(append([]byte(nil), orig...))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "a.exe")
	require.NoError(t, f.WriteFile(path))
	out, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, orig, out)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(make([]byte, 10))
	require.True(t, errors.Is(err, models.ErrBufferOverflow), "%v", err)

	buf := mock.PE(false)
	bad := append([]byte(nil), buf...)
	copy(bad, "XXXX")
	_, err = Parse(bad)
	require.True(t, errors.Is(err, models.ErrInvalidFileFormat), "%v", err)

	bad = append([]byte(nil), buf...)
	bad[mock.PELfanew] = 'X'
	_, err = Parse(bad)
	require.True(t, errors.Is(err, models.ErrInvalidFileFormat), "%v", err)

	bad = append([]byte(nil), buf...)
	binary.LittleEndian.PutUint16(bad[mock.PELfanew+24:], 0x107)
	_, err = Parse(bad)
	require.True(t, errors.Is(err, models.ErrInvalidFileFormat), "%v", err)

	bad = append([]byte(nil), buf...)
	binary.LittleEndian.PutUint32(bad[0x3c:], 0xfffffff0)
	_, err = Parse(bad)
	require.True(t, errors.Is(err, models.ErrBufferOverflow), "%v", err)

	_, err = Parse(buf[:0x190])
	require.True(t, errors.Is(err, models.ErrBufferOverflow), "%v", err)
}

func TestRVAToOffset(t *testing.T) {
	f, err := Parse(mock.PE(false))
	require.NoError(t, err)
	off, err := f.RVAToOffset(0x1010)
	require.NoError(t, err)
	require.Equal(t, uint32(0x210), off)
	off, err = f.RVAToOffset(0x40)
	require.NoError(t, err)
	require.Equal(t, uint32(0x40), off)
	_, err = f.RVAToOffset(0x9000)
	require.Error(t, err)
}

func TestExtractStrings(t *testing.T) {
	f, err := Parse(mock.PE(false))
	require.NoError(t, err)
	strs, err := f.Section(".text").ExtractStrings(f.Buffer, 4)
	require.NoError(t, err)
	require.Equal(t, []string{"Hello", "from", "text", "section"}, strs)
}

func TestGenerateSectionHeader(t *testing.T) {
	f, err := Parse(mock.PE(false))
	require.NoError(t, err)
	s, err := f.GenerateSectionHeader(".inj", 0x123, IMAGE_SCN_MEM_EXECUTE|IMAGE_SCN_MEM_READ|IMAGE_SCN_CNT_CODE)
	require.NoError(t, err)

	last := f.Sections[1]
	require.Equal(t, last.Characteristics.Offset+4, s.Offset())
	require.Equal(t, uint32(0x3000), s.VirtualAddress.Value)
	require.Equal(t, uint32(0x1000), s.VirtualSize.Value)
	require.Equal(t, uint32(0x200), s.SizeOfRawData.Value)
	require.Equal(t, uint32(0x600), s.PointerToRawData.Value)
	require.True(t, s.IsExecutable())

	_, err = f.GenerateSectionHeader(".toolongname", 1, 0)
	require.True(t, errors.Is(err, models.ErrBufferOverflow))

	require.NoError(t, f.Header.FileAlignment.Update(f.Buffer, 0x300))
	_, err = f.GenerateSectionHeader(".x", 1, 0)
	require.True(t, errors.Is(err, models.ErrInvalidFileFormat))

	f.Sections = nil
	require.NoError(t, f.Header.FileAlignment.Update(f.Buffer, 0x200))
	_, err = f.GenerateSectionHeader(".x", 1, 0)
	require.True(t, errors.Is(err, models.ErrInvalidFileFormat))
}

func TestAddSection(t *testing.T) {
	for _, plus := range []bool{false, true} {
		f, err := Parse(mock.PE(plus))
		require.NoError(t, err)
		n := len(f.Sections)
		payload := []byte{0xcc, 0xcc, 0x90, 0xc3}
		s, err := f.GenerateSectionHeader(".inj", uint32(len(payload)), 0x60000020)
		require.NoError(t, err)
		require.NoError(t, f.AddSection(s, payload))

		require.Len(t, f.Buffer, mock.PESize+0x200)
		require.Equal(t, payload, f.Buffer[0x600:0x604])
		require.Equal(t, uint32(0x3000+0x1000), f.Header.SizeOfImage.Value)
		require.Equal(t, f.Checksum(), f.Header.CheckSum.Value)

		g, err := Parse(f.Buffer)
		require.NoError(t, err)
		require.Len(t, g.Sections, n+1)
		require.Equal(t, uint16(n+1), g.Header.NumberOfSections.Value)
		require.Equal(t, ".inj", g.Sections[n].Name.Value)
		require.Equal(t, s.VirtualAddress.Value+s.VirtualSize.Value, g.Header.SizeOfImage.Value)
		require.Equal(t, g.Checksum(), g.Header.CheckSum.Value)
		data, err := g.Sections[n].Data(g.Buffer)
		require.NoError(t, err)
		require.Equal(t, payload, data[:4])
	}
}

func TestAddSectionRejectsBeforeWriting(t *testing.T) {
	f, err := Parse(mock.PE(true))
	require.NoError(t, err)
	orig := append([]byte(nil), f.Buffer...)

	s, err := f.GenerateSectionHeader(".a", 0x10, 0)
	require.NoError(t, err)
	err = f.AddSection(s, make([]byte, 0x201))
	require.True(t, errors.Is(err, models.ErrBufferOverflow))
	require.Equal(t, orig, f.Buffer)
	require.Len(t, f.Sections, 2)

	// the PE32+ image has room for exactly one more header
	require.NoError(t, f.AddSection(s, nil))
	s2, err := f.GenerateSectionHeader(".b", 0x10, 0)
	require.NoError(t, err)
	before := append([]byte(nil), f.Buffer...)
	err = f.AddSection(s2, nil)
	require.True(t, errors.Is(err, models.ErrBufferOverflow))
	require.Equal(t, before, f.Buffer)
}

func TestAddSectionRejectsRawDataPastFile(t *testing.T) {
	f, err := Parse(mock.PE(false))
	require.NoError(t, err)
	orig := append([]byte(nil), f.Buffer...)

	// a good header whose raw pointer is moved far past the file
	s, err := f.GenerateSectionHeader(".far", 0x10, 0)
	require.NoError(t, err)
	s.PointerToRawData.Value = 0x10000000
	err = f.AddSection(s, nil)
	require.True(t, errors.Is(err, models.ErrInvalidFileFormat))
	require.Equal(t, orig, f.Buffer)
	require.Len(t, f.Sections, 2)

	// a corrupt last section makes the generated pointer land past the file
	data := f.Section(".data")
	require.NoError(t, data.PointerToRawData.Update(f.Buffer, 0x10000000))
	require.NoError(t, data.SizeOfRawData.Update(f.Buffer, 0))
	before := append([]byte(nil), f.Buffer...)
	_, err = f.GenerateSectionHeader(".far", 0x10, 0)
	require.True(t, errors.Is(err, models.ErrInvalidFileFormat))
	require.Equal(t, before, f.Buffer)

	// a pointer at the aligned end of the file still grows it
	g, err := Parse(mock.PE(false))
	require.NoError(t, err)
	s, err = g.GenerateSectionHeader(".ok", 0x10, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(mock.PESize), s.PointerToRawData.Value)
	require.NoError(t, g.AddSection(s, []byte{1}))
	require.Len(t, g.Buffer, mock.PESize+mock.PEFileAlign)
}
