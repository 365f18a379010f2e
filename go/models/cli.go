package models

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
)

const usageWidth = 80

// wrap splits s into lines of at most width bytes, breaking on spaces.
func wrap(s string, width int) []string {
	var lines []string
	cur := ""
	for _, word := range strings.Fields(s) {
		if cur != "" && len(cur)+1+len(word) > width {
			lines = append(lines, cur)
			cur = ""
		}
		if cur != "" {
			cur += " "
		}
		cur += word
	}
	return append(lines, cur)
}

// PrintFlags writes one entry per flag: its name and non-trivial default,
// then the usage text wrapped to 80 columns.
func PrintFlags(w io.Writer, flags []*flag.Flag) {
	if len(flags) == 0 {
		return
	}
	names := lo.Map(flags, func(f *flag.Flag, _ int) string {
		switch f.DefValue {
		case "", "false", "[]":
			return "-" + f.Name
		}
		return fmt.Sprintf("-%s (%s)", f.Name, f.DefValue)
	})
	width := lo.Max(lo.Map(names, func(s string, _ int) int { return len(s) }))
	indent := strings.Repeat(" ", width+4)
	for i, f := range flags {
		lines := wrap(f.Usage, usageWidth-len(indent))
		fmt.Fprintf(w, "  %-*s  %s\n", width, names[i], lines[0])
		for _, l := range lines[1:] {
			fmt.Fprintf(w, "%s%s\n", indent, l)
		}
	}
}
