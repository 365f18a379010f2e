package shell

import (
	"github.com/M3str3/HexSpell/go/field"
	"github.com/M3str3/HexSpell/go/models"
)

var FieldsCmd = cmd(&Command{
	Name: "fields",
	Desc: "List fields, optionally filtered by a pattern like sections[*].name.",
	Run: func(c *Context, args ...string) error {
		pattern := ""
		if len(args) > 0 {
			pattern = args[0]
		}
		fields := field.Match(c.Bin.Fields(), pattern)
		if len(args) > 1 && args[1] == "sort" {
			field.Sort(fields)
		}
		for _, f := range fields {
			c.Printf("  %s\n", f)
		}
		return nil
	},
})

var GetCmd = cmd(&Command{
	Name: "get",
	Desc: "Print one field.",
	Run: func(c *Context, name string) error {
		f, err := field.Lookup(c.Bin.Fields(), name)
		if err != nil {
			return err
		}
		c.Printf("%s\n", f)
		return nil
	},
})

var SetCmd = cmd(&Command{
	Name: "set",
	Desc: "Write a field: set header.entry 0x401000",
	Run: func(c *Context, name, value string) error {
		f, err := field.Lookup(c.Bin.Fields(), name)
		if err != nil {
			return err
		}
		old := f.String()
		err = c.Edit(func() error {
			return f.Set(c.Bin.Bytes(), value)
		})
		if err != nil {
			return err
		}
		c.Printf("%s\n", models.NewChange(name, f.String(), old).String(c.Config.Color))
		return nil
	},
})
