package models

import (
	"fmt"
	"strconv"
	"strings"
)

const dumpWidth = 16

// Span names a byte range of the file, such as a header field.
type Span struct {
	Name      string
	Off, Size uint64
}

// Repr quotes p for display, cutting it after limit bytes when limit > 0.
func Repr(p []byte, limit int) string {
	if limit > 0 && len(p) > limit {
		return strconv.Quote(string(p[:limit])) + "..."
	}
	return strconv.Quote(string(p))
}

// HexDump renders mem 16 bytes per line, labelled with file offsets
// counting from base. Each line ends with the spans that start on it.
func HexDump(base uint64, mem []byte, spans []Span) []string {
	var out []string
	var line strings.Builder
	for i := 0; i < len(mem); i += dumpWidth {
		row := mem[i:]
		if len(row) > dumpWidth {
			row = row[:dumpWidth]
		}
		off := base + uint64(i)
		line.Reset()
		fmt.Fprintf(&line, "%08x ", off)
		for j := 0; j < dumpWidth; j++ {
			if j == dumpWidth/2 {
				line.WriteByte(' ')
			}
			if j < len(row) {
				fmt.Fprintf(&line, " %02x", row[j])
			} else {
				line.WriteString("   ")
			}
		}
		line.WriteString("  |")
		for _, c := range row {
			if c < 0x20 || c > 0x7e {
				c = '.'
			}
			line.WriteByte(c)
		}
		line.WriteString(strings.Repeat(" ", dumpWidth-len(row)) + "|")
		var names []string
		for _, s := range spans {
			if s.Off >= off && s.Off < off+uint64(len(row)) {
				names = append(names, fmt.Sprintf("%s@%x", s.Name, s.Off-off))
			}
		}
		if len(names) > 0 {
			line.WriteString(" " + strings.Join(names, " "))
		}
		out = append(out, line.String())
	}
	return out
}
