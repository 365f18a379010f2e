package cmd

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/go-kit/log/level"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"github.com/M3str3/HexSpell/go/loader"
	"github.com/M3str3/HexSpell/go/models"
)

// HexCmd carries the flags and config shared by every subcommand.
type HexCmd struct {
	Config *models.Config
	Flags  *flag.FlagSet
	Usage  string

	verbose, color, nocolor *bool
	strsize                 *int
}

func NewHexCmd(usage string) *HexCmd {
	fs := flag.NewFlagSet("cli", flag.ExitOnError)
	c := &HexCmd{Flags: fs, Usage: usage}
	c.verbose = fs.Bool("v", false, "verbose output")
	c.color = fs.Bool("color", false, "force color output")
	c.nocolor = fs.Bool("nocolor", false, "disable color output")
	c.strsize = fs.Int("strsize", 30, "limit printed strings to length (0 disables)")
	return c
}

// Parse handles flags and returns the positional arguments. It exits with
// usage when fewer than nargs remain.
func (c *HexCmd) Parse(args []string, nargs int) []string {
	fs := c.Flags
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] %s\n\nOptions:\n", args[0], c.Usage)
		var flags []*flag.Flag
		fs.VisitAll(func(f *flag.Flag) { flags = append(flags, f) })
		models.PrintFlags(os.Stderr, flags)
	}
	fs.Parse(args[1:])
	if fs.NArg() < nargs {
		fs.Usage()
		os.Exit(1)
	}
	color := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	if *c.color {
		color = true
	} else if *c.nocolor {
		color = false
	}
	c.Config = models.NewConfig(*c.verbose, color)
	c.Config.Strsize = *c.strsize
	return fs.Args()
}

func (c *HexCmd) Load(path string) (loader.Binary, error) {
	bin, err := loader.LoadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", path)
	}
	level.Debug(c.Config.Logger).Log("msg", "loaded", "path", path, "format", bin.Format(), "arch", bin.Arch(), "size", len(bin.Bytes()))
	return bin, nil
}

// Check prints err and exits when it is non-nil.
func (c *HexCmd) Check(err error) {
	if err != nil {
		c.PrintError(err)
		os.Exit(1)
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func (c *HexCmd) PrintError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	if c.Config == nil || !c.Config.Verbose {
		return
	}
	// print a stacktrace if available
	fmt.Fprintf(os.Stderr, "%s\n", strings.Repeat("-", 40))
	var st stackTracer
	if !errors.As(err, &st) {
		return
	}
	var frames [][]string
	for _, f := range st.StackTrace() {
		fileline := fmt.Sprintf("%s:%d", f, f)
		method := fmt.Sprintf("%n", f)
		frames = append(frames, []string{fileline, method})
		if method == "main" {
			break
		}
	}
	width := 0
	for _, f := range frames {
		if len(f[0]) > width {
			width = len(f[0])
		}
	}
	for _, f := range frames {
		fmt.Fprintf(os.Stderr, "%-*s | %s()\n", width, f[0], f[1])
	}
}
