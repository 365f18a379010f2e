package shell

import (
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/M3str3/HexSpell/go/models/journal"
)

var UndoCmd = cmd(&Command{
	Name: "undo",
	Desc: "Revert the last edit.",
	Run: func(c *Context) error {
		return c.Undo()
	},
})

var WriteCmd = cmd(&Command{
	Name: "write",
	Desc: "Save the edited binary: write [path]",
	Run: func(c *Context, args ...string) error {
		path := c.Path
		if len(args) > 0 {
			path = args[0]
		}
		if path == "" {
			return errors.New("no output path")
		}
		if err := c.Bin.WriteFile(path); err != nil {
			return err
		}
		level.Info(c.Config.Logger).Log("msg", "wrote binary", "path", path, "size", len(c.Bin.Bytes()))
		return nil
	},
})

var JournalCmd = cmd(&Command{
	Name: "journal",
	Desc: "Show recorded edits, or save them: journal [path]",
	Run: func(c *Context, args ...string) error {
		recs := c.History()
		if len(args) == 0 {
			for i := range recs {
				c.Printf("  %s\n", recs[i].String())
			}
			return nil
		}
		return journal.Save(args[0], c.Bin.Format(), c.OrigLen(), recs)
	},
})

var ReplayCmd = cmd(&Command{
	Name: "replay",
	Desc: "Apply a saved journal: replay <path>",
	Run: func(c *Context, path string) error {
		hdr, recs, err := journal.Load(path)
		if err != nil {
			return err
		}
		if hdr.Format != c.Bin.Format() {
			return errors.Errorf("journal was recorded against %s, not %s", hdr.Format, c.Bin.Format())
		}
		if err := c.Apply(recs); err != nil {
			return err
		}
		c.Printf("applied %d records\n", len(recs))
		return nil
	},
})
