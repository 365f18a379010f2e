package repl

import (
	"os"

	"github.com/M3str3/HexSpell/go/cmd"
	"github.com/M3str3/HexSpell/go/shell"
	"github.com/M3str3/HexSpell/go/ui"
)

func Main(args []string) {
	c := cmd.NewHexCmd("<file> [command...]")
	rest := c.Parse(args, 1)

	bin, err := c.Load(rest[0])
	c.Check(err)
	ctx := shell.NewContext(os.Stdout, bin, rest[0], c.Config)
	// scripted: run each argument as a command line and stop at the first failure
	if len(rest) > 1 {
		for _, line := range rest[1:] {
			if err := shell.Run(ctx, line); err != nil {
				os.Exit(1)
			}
		}
		return
	}
	r, err := ui.NewRepl(ctx)
	c.Check(err)
	c.Check(r.Run())
}

func init() { cmd.Register("repl", "edit a binary interactively", Main) }
