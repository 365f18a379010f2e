package inject

import (
	"os"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/M3str3/HexSpell/go/cmd"
	"github.com/M3str3/HexSpell/go/loader"
	"github.com/M3str3/HexSpell/go/pe"
)

func Main(args []string) {
	c := cmd.NewHexCmd("<pe file> <payload>")
	name := c.Flags.String("name", ".inj", "section name (at most 8 bytes)")
	chars := c.Flags.Uint64("chars", pe.IMAGE_SCN_CNT_CODE|pe.IMAGE_SCN_MEM_EXECUTE|pe.IMAGE_SCN_MEM_READ, "section characteristics")
	entry := c.Flags.Bool("entry", false, "point the entry at the start of the new section")
	out := c.Flags.String("o", "", "write the result here instead of over the input")
	rest := c.Parse(args, 2)

	bin, err := c.Load(rest[0])
	c.Check(err)
	l, ok := bin.(*loader.PELoader)
	if !ok {
		c.Check(errors.Errorf("%s is %s, not pe", rest[0], bin.Format()))
	}
	payload, err := os.ReadFile(rest[1])
	c.Check(errors.WithStack(err))
	if *chars > 0xffffffff || uint64(len(payload)) > 0xffffffff {
		c.Check(errors.New("characteristics and payload size must fit in 32 bits"))
	}

	f := l.File()
	s, err := f.GenerateSectionHeader(*name, uint32(len(payload)), uint32(*chars))
	c.Check(err)
	c.Check(f.AddSection(s, payload))
	if *entry {
		c.Check(f.Header.AddressOfEntryPoint.Update(f.Buffer, s.VirtualAddress.Value))
		c.Check(f.UpdateChecksum())
	}
	level.Info(c.Config.Logger).Log("msg", "added section", "name", *name,
		"rva", s.VirtualAddress.Value, "raw", s.PointerToRawData.Value, "size", len(payload))

	dst := rest[0]
	if *out != "" {
		dst = *out
	}
	c.Check(f.WriteFile(dst))
}

func init() { cmd.Register("inject", "append a section holding a payload to a PE image", Main) }
