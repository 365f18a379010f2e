package patch

import (
	"os"
	"strings"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/M3str3/HexSpell/go/cmd"
	"github.com/M3str3/HexSpell/go/models/journal"
	"github.com/M3str3/HexSpell/go/shell"
)

func Main(args []string) {
	c := cmd.NewHexCmd("<file> name=value [name=value...]")
	out := c.Flags.String("o", "", "write the result here instead of over the input")
	jpath := c.Flags.String("journal", "", "also save the edits as a journal file")
	dry := c.Flags.Bool("n", false, "show the changes without writing anything")
	rest := c.Parse(args, 2)

	path := rest[0]
	bin, err := c.Load(path)
	c.Check(err)
	ctx := shell.NewContext(os.Stdout, bin, path, c.Config)
	for _, assign := range rest[1:] {
		name, value, ok := strings.Cut(assign, "=")
		if !ok {
			c.Check(errors.Errorf("expected name=value, got %q", assign))
		}
		c.Check(shell.RunArgs(ctx, []string{"set", name, value}))
	}
	if *dry {
		return
	}
	dst := path
	if *out != "" {
		dst = *out
	}
	c.Check(shell.RunArgs(ctx, []string{"write", dst}))
	if *jpath != "" {
		c.Check(journal.Save(*jpath, ctx.Bin.Format(), ctx.OrigLen(), ctx.History()))
		level.Info(c.Config.Logger).Log("msg", "saved journal", "path", *jpath, "records", len(ctx.History()))
	}
}

func init() { cmd.Register("patch", "set header and table fields by name", Main) }
