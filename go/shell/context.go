package shell

import (
	"fmt"
	"io"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/M3str3/HexSpell/go/loader"
	"github.com/M3str3/HexSpell/go/models"
	"github.com/M3str3/HexSpell/go/models/journal"
)

// Context is one editing session over a loaded binary. Every edit is
// recorded as journal records so it can be undone or saved.
type Context struct {
	io.Writer
	Bin    loader.Binary
	Config *models.Config
	Path   string

	origLen int
	undo    [][]journal.Record
}

func NewContext(w io.Writer, bin loader.Binary, path string, config *models.Config) *Context {
	if config == nil {
		config = &models.Config{}
	}
	return &Context{
		Writer:  w,
		Bin:     bin,
		Config:  config.Init(),
		Path:    path,
		origLen: len(bin.Bytes()),
	}
}

func (c *Context) Printf(format string, a ...interface{}) (n int, err error) {
	return fmt.Fprintf(c, format, a...)
}

// History flattens every change still on the undo stack, oldest first.
func (c *Context) History() []journal.Record {
	var out []journal.Record
	for _, group := range c.undo {
		out = append(out, group...)
	}
	return out
}

// OrigLen is the buffer length before the first recorded edit.
func (c *Context) OrigLen() int {
	return c.origLen
}

// Edit runs fn and records whatever it changed in Bin's buffer as one undo
// step, even when fn fails partway.
func (c *Context) Edit(fn func() error) error {
	before := append([]byte(nil), c.Bin.Bytes()...)
	err := fn()
	if recs := journal.Diff(before, c.Bin.Bytes()); len(recs) > 0 {
		c.undo = append(c.undo, recs)
		level.Debug(c.Config.Logger).Log("msg", "recorded edit", "records", len(recs))
	}
	return err
}

// Apply replays recs onto the buffer as a single undo step.
func (c *Context) Apply(recs []journal.Record) error {
	buf, err := journal.Apply(append([]byte(nil), c.Bin.Bytes()...), recs)
	if err != nil {
		return err
	}
	if err := c.reload(buf); err != nil {
		return err
	}
	c.undo = append(c.undo, recs)
	return nil
}

// Undo reverts the most recent edit and reparses the result.
func (c *Context) Undo() error {
	if len(c.undo) == 0 {
		return errors.Errorf("nothing to undo")
	}
	recs := c.undo[len(c.undo)-1]
	buf, err := journal.Revert(append([]byte(nil), c.Bin.Bytes()...), recs)
	if err != nil {
		return err
	}
	if err := c.reload(buf); err != nil {
		return err
	}
	c.undo = c.undo[:len(c.undo)-1]
	return nil
}

func (c *Context) reload(buf []byte) error {
	bin, err := loader.Load(buf)
	if err != nil {
		return err
	}
	c.Bin = bin
	return nil
}
