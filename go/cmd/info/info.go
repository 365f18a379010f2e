package info

import (
	"os"

	"github.com/M3str3/HexSpell/go/cmd"
	"github.com/M3str3/HexSpell/go/shell"
)

func Main(args []string) {
	c := cmd.NewHexCmd("<file>")
	fields := c.Flags.Bool("fields", false, "list every editable field")
	match := c.Flags.String("match", "", "list fields matching a pattern, e.g. 'sections[*].name'")
	sorted := c.Flags.Bool("sort", false, "sort listed fields by name")
	rest := c.Parse(args, 1)

	bin, err := c.Load(rest[0])
	c.Check(err)
	ctx := shell.NewContext(os.Stdout, bin, rest[0], c.Config)
	c.Check(shell.Run(ctx, "info"))
	if *fields || *match != "" {
		line := []string{"fields", *match}
		if *sorted {
			line = append(line, "sort")
		}
		c.Check(shell.RunArgs(ctx, line))
	}
}

func init() { cmd.Register("info", "describe a binary and list its fields", Main) }
