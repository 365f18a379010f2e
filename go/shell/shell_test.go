package shell

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/M3str3/HexSpell/go/field"
	"github.com/M3str3/HexSpell/go/loader"
	"github.com/M3str3/HexSpell/go/models/mock"
)

func newContext(t *testing.T, buf []byte) (*Context, *bytes.Buffer) {
	bin, err := loader.Load(buf)
	require.NoError(t, err)
	var out bytes.Buffer
	return NewContext(&out, bin, "", nil), &out
}

func fieldValue(t *testing.T, c *Context, name string) string {
	f, err := field.Lookup(c.Bin.Fields(), name)
	require.NoError(t, err)
	return f.String()
}

func TestSetAndUndo(t *testing.T) {
	orig := mock.PE(false)
	c, out := newContext(t, append([]byte(nil), orig...))

	require.NoError(t, Run(c, "set header.entry_point 0x1010"))
	require.Contains(t, out.String(), "+ header.entry_point = 0x1010 (was 0x1000)")
	require.Equal(t, uint64(mock.PEImageBase32+0x1010), c.Bin.Entry())
	require.Len(t, c.History(), 1)

	require.NoError(t, Run(c, "undo"))
	require.Equal(t, orig, c.Bin.Bytes())
	require.Equal(t, uint64(mock.PEImageBase32+mock.PEEntry), c.Bin.Entry())
	require.Empty(t, c.History())
	require.Error(t, Run(c, "undo"))
}

func TestSetRejectsOversizedValue(t *testing.T) {
	orig := mock.Elf(binary.LittleEndian, true)
	c, _ := newContext(t, append([]byte(nil), orig...))
	require.Error(t, Run(c, "set header.phnum 0x10000"))
	require.Equal(t, orig, c.Bin.Bytes())
	require.Empty(t, c.History())
}

func TestFieldsPattern(t *testing.T) {
	c, out := newContext(t, mock.PE(true))
	require.NoError(t, Run(c, `fields "sections[*].name"`))
	require.Contains(t, out.String(), `"`+".text"+`"`)
	require.Contains(t, out.String(), `"`+".data"+`"`)
	require.Equal(t, 2, bytes.Count(out.Bytes(), []byte("\n")))
}

func TestAddSectionJournalReplay(t *testing.T) {
	dir := t.TempDir()
	payload := filepath.Join(dir, "payload.bin")
	require.NoError(t, os.WriteFile(payload, []byte("\xcc\xcc\xc3"), 0644))

	c, out := newContext(t, mock.PE(false))
	require.NoError(t, Run(c, "addsection .inj "+payload))
	require.Contains(t, out.String(), "added .inj")
	require.Equal(t, "0x3", fieldValue(t, c, "header.number_of_sections"))
	require.Equal(t, `".inj"`, fieldValue(t, c, "sections[2].name"))

	out.Reset()
	require.NoError(t, Run(c, "checksum"))
	require.Contains(t, out.String(), " ok")

	jpath := filepath.Join(dir, "edits.hxj")
	require.NoError(t, Run(c, "journal "+jpath))

	fresh, _ := newContext(t, mock.PE(false))
	require.NoError(t, Run(fresh, "replay "+jpath))
	require.Equal(t, c.Bin.Bytes(), fresh.Bin.Bytes())

	// the same journal no longer applies on top of itself
	require.Error(t, Run(fresh, "replay "+jpath))
}

func TestChecksumFix(t *testing.T) {
	c, out := newContext(t, mock.PE(false))
	require.NoError(t, Run(c, "set header.checksum 0"))
	out.Reset()
	require.NoError(t, Run(c, "checksum"))
	require.Contains(t, out.String(), "stale")

	out.Reset()
	require.NoError(t, Run(c, "checksum fix"))
	require.Equal(t, mock.PE(false), c.Bin.Bytes())
}

func TestStrings(t *testing.T) {
	c, out := newContext(t, mock.PE(false))
	require.NoError(t, Run(c, "strings .text 5"))
	require.Contains(t, out.String(), `"Hello"`)
	require.Contains(t, out.String(), `"section"`)
	require.NotContains(t, out.String(), `"from"`)

	elf, _ := newContext(t, mock.Elf(binary.LittleEndian, true))
	require.Error(t, Run(elf, "strings .text"))
}

func TestInfoAndDump(t *testing.T) {
	c, out := newContext(t, mock.Elf(binary.LittleEndian, true))
	require.NoError(t, Run(c, "info"))
	require.Contains(t, out.String(), "format elf")
	require.Contains(t, out.String(), "interp "+mock.ElfInterp)

	out.Reset()
	require.NoError(t, Run(c, "dump 0 16"))
	require.Contains(t, out.String(), "00000000  7f 45 4c 46")
	require.Contains(t, out.String(), "header.class@4")
	require.Error(t, Run(c, "dump 0x10000 4"))
}

func TestUnknownCommand(t *testing.T) {
	c, out := newContext(t, mock.PE(false))
	require.Error(t, Run(c, "frobnicate"))
	require.Contains(t, out.String(), "command not found.")
	require.NoError(t, Run(c, ""))
}
