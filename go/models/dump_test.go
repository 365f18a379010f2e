package models

import (
	"bytes"
	"flag"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHexDump(t *testing.T) {
	mem := append([]byte("\x7fELF"), make([]byte, 16)...)
	lines := HexDump(0x40, mem, []Span{
		{Name: "magic", Off: 0x40, Size: 4},
		{Name: "entry", Off: 0x52, Size: 2},
		{Name: "outside", Off: 0x100, Size: 1},
	})
	require.Len(t, lines, 2)
	require.Equal(t, "00000040  7f 45 4c 46 00 00 00 00  00 00 00 00 00 00 00 00  |.ELF............| magic@0", lines[0])
	require.True(t, strings.HasPrefix(lines[1], "00000050  00 00 00 00                                       |....            |"), lines[1])
	require.True(t, strings.HasSuffix(lines[1], " entry@2"))
	require.Empty(t, HexDump(0, nil, nil))
}

func TestRepr(t *testing.T) {
	require.Equal(t, `"abc"`, Repr([]byte("abc"), 0))
	require.Equal(t, `"ab"...`, Repr([]byte("abc"), 2))
	require.Equal(t, `"\x00a"`, Repr([]byte("\x00a"), 10))
}

func TestPrintFlags(t *testing.T) {
	fs := flag.NewFlagSet("x", flag.ContinueOnError)
	fs.Bool("v", false, "verbose output")
	fs.String("o", "out.bin", strings.Repeat("word ", 30))
	var flags []*flag.Flag
	fs.VisitAll(func(f *flag.Flag) { flags = append(flags, f) })

	var buf bytes.Buffer
	PrintFlags(&buf, flags)
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Equal(t, "  -o (out.bin)  word word word word word word word word word word word word word", lines[0])
	for _, l := range lines {
		require.LessOrEqual(t, len(l), 80)
	}
	require.Equal(t, "  -v            verbose output", lines[len(lines)-1])
}
