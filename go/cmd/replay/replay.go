package replay

import (
	"os"

	"github.com/pkg/errors"

	"github.com/M3str3/HexSpell/go/cmd"
	"github.com/M3str3/HexSpell/go/models"
	"github.com/M3str3/HexSpell/go/models/journal"
)

func Main(args []string) {
	c := cmd.NewHexCmd("<file> <journal>")
	revert := c.Flags.Bool("revert", false, "undo the journal instead of applying it")
	list := c.Flags.Bool("l", false, "list the journal records and exit")
	out := c.Flags.String("o", "", "write the result here instead of over the input")
	rest := c.Parse(args, 2)

	hdr, recs, err := journal.Load(rest[1])
	c.Check(err)
	if *list {
		for i := range recs {
			os.Stdout.WriteString(recs[i].String() + "\n")
		}
		return
	}
	bin, err := c.Load(rest[0])
	c.Check(err)
	if hdr.Format != bin.Format() {
		c.Check(errors.Errorf("journal was recorded against %s, not %s", hdr.Format, bin.Format()))
	}
	buf := bin.Bytes()
	if *revert {
		buf, err = journal.Revert(buf, recs)
	} else {
		buf, err = journal.Apply(buf, recs)
	}
	c.Check(err)

	dst := rest[0]
	if *out != "" {
		dst = *out
	}
	c.Check(models.WriteFile(dst, buf))
}

func init() { cmd.Register("replay", "apply or revert a saved edit journal", Main) }
