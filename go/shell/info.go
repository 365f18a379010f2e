package shell

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/M3str3/HexSpell/go/field"
	"github.com/M3str3/HexSpell/go/loader"
	"github.com/M3str3/HexSpell/go/models"
	"github.com/M3str3/HexSpell/go/pe"
)

var InfoCmd = cmd(&Command{
	Name: "info",
	Desc: "Summarize the binary and its segments.",
	Run: func(c *Context) error {
		b := c.Bin
		c.Printf("format %s\n", models.Colorize(b.Format(), "cyan+b", c.Config.Color))
		c.Printf("arch   %s (%d-bit, %s)\n", b.Arch(), b.Bits(), b.ByteOrder())
		c.Printf("os     %s\n", b.OS())
		c.Printf("type   %s\n", loader.TypeName(b.Type()))
		c.Printf("entry  %#x\n", b.Entry())
		if interp := b.Interp(); interp != "" {
			c.Printf("interp %s\n", interp)
		}
		segs, err := b.Segments()
		if err != nil {
			return err
		}
		for _, s := range segs {
			c.Printf("  %s\n", s.String())
		}
		return nil
	},
})

func parseUint(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 0, 64)
	return n, errors.Wrapf(err, "bad number %q", s)
}

var DumpCmd = cmd(&Command{
	Name: "dump",
	Desc: "Hex dump file bytes, naming the fields that start on each line: dump <offset> <size>",
	Run: func(c *Context, offStr, sizeStr string) error {
		off, err := parseUint(offStr)
		if err != nil {
			return err
		}
		size, err := parseUint(sizeStr)
		if err != nil {
			return err
		}
		buf := c.Bin.Bytes()
		if off < uint64(len(buf)) && off+size > uint64(len(buf)) {
			size = uint64(len(buf)) - off
		}
		if off > uint64(len(buf)) || size > uint64(len(buf))-off {
			return models.Overflowf("%#x+%#x is outside the %#x byte file", off, size, len(buf))
		}
		if segs, err := c.Bin.Segments(); err == nil {
			for _, s := range segs {
				if s.ContainsPhys(off) {
					c.Printf("  %s+%#x\n", s.Name, off-s.Off)
				}
			}
		}
		spans := lo.Map(c.Bin.Fields(), func(f field.Named, _ int) models.Span {
			at, n := f.Field.Span()
			return models.Span{Name: f.Name, Off: uint64(at), Size: uint64(n)}
		})
		for _, line := range models.HexDump(off, buf[off:off+size], spans) {
			c.Printf("  %s\n", line)
		}
		return nil
	},
})

func peFile(c *Context) (*pe.File, error) {
	if l, ok := c.Bin.(*loader.PELoader); ok {
		return l.File(), nil
	}
	return nil, models.Unsupported(c.Bin.Format() + " images in this command")
}

var StringsCmd = cmd(&Command{
	Name: "strings",
	Desc: "List identifier-like strings in a PE section: strings <section> [minlen]",
	Run: func(c *Context, name string, args ...string) error {
		f, err := peFile(c)
		if err != nil {
			return err
		}
		minLen := uint64(4)
		if len(args) > 0 {
			if minLen, err = parseUint(args[0]); err != nil {
				return err
			}
		}
		s := f.Section(name)
		if s == nil {
			return errors.Errorf("no section named %q", name)
		}
		strs, err := s.ExtractStrings(f.Buffer, int(minLen))
		if err != nil {
			return err
		}
		for _, str := range strs {
			c.Printf("  %s\n", models.Repr([]byte(str), c.Config.Strsize))
		}
		return nil
	},
})
