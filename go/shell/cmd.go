package shell

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/lunixbochs/argjoy"
	"github.com/mattn/go-shellwords"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

type Command struct {
	Name string
	Desc string
	Run  interface{}
}

var Commands = make(map[string]*Command)

func cmd(c *Command) *Command {
	fn := reflect.ValueOf(c.Run)
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		panic(fmt.Sprintf("Command.Run must be a func: got (%T) %#v\n", c.Run, c.Run))
	}
	Commands[c.Name] = c
	return c
}

var aj = argjoy.NewArgjoy()

// Names lists registered commands alphabetically.
func Names() []string {
	names := lo.Keys(Commands)
	sort.Strings(names)
	return names
}

// Run parses one line and dispatches it. Errors are printed to the session
// and also returned so scripted callers can stop on them.
func Run(c *Context, line string) error {
	args, err := shellwords.Parse(line)
	if err != nil {
		c.Printf("parse error: %v\n", err)
		return errors.WithStack(err)
	}
	if len(args) == 0 {
		return nil
	}
	return RunArgs(c, args)
}

// RunArgs dispatches an already split command line.
func RunArgs(c *Context, args []string) error {
	name, args := args[0], args[1:]
	cmd, ok := Commands[name]
	if !ok {
		c.Printf("command not found.\n")
		return errors.Errorf("command not found: %s", name)
	}
	in := []interface{}{c}
	for _, arg := range args {
		in = append(in, arg)
	}
	out, err := aj.Call(cmd.Run, in...)
	if err != nil {
		c.Printf("error: %v\n", err)
		return err
	}
	if len(out) > 0 {
		if err, ok := out[0].(error); ok {
			c.Printf("error: %v\n", err)
			return err
		}
	}
	return nil
}

var HelpCmd = cmd(&Command{
	Name: "help",
	Desc: "List commands.",
	Run: func(c *Context) error {
		for _, name := range Names() {
			c.Printf("  %-12s %s\n", name, Commands[name].Desc)
		}
		return nil
	},
})
