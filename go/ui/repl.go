package ui

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/samber/lo"
	"github.com/shibukawa/configdir"

	"github.com/M3str3/HexSpell/go/field"
	"github.com/M3str3/HexSpell/go/shell"
)

type Repl struct {
	ctx *shell.Context
	rl  *readline.Instance
}

func NewRepl(ctx *shell.Context) (*Repl, error) {
	// get history path
	configDirs := configdir.New("hexspell", "repl")
	cacheDir := configDirs.QueryCacheFolder()
	historyPath := ""
	if err := cacheDir.MkdirAll(); err == nil {
		historyPath = filepath.Join(cacheDir.Path, "history")
	}
	r := &Repl{ctx: ctx}
	rl, err := readline.NewEx(&readline.Config{
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		HistoryFile:     historyPath,
		AutoComplete:    r.completer(),
	})
	if err != nil {
		return nil, err
	}
	r.rl = rl
	ctx.Writer = rl.Stdout()
	return r, nil
}

// field names are looked up per keystroke so they follow reloads
func (r *Repl) fieldNames(string) []string {
	return lo.Map(r.ctx.Bin.Fields(), func(f field.Named, _ int) string {
		return f.Name
	})
}

func (r *Repl) completer() *readline.PrefixCompleter {
	items := lo.Map(shell.Names(), func(name string, _ int) readline.PrefixCompleterInterface {
		switch name {
		case "get", "set", "fields":
			return readline.PcItem(name, readline.PcItemDynamic(r.fieldNames))
		}
		return readline.PcItem(name)
	})
	return readline.NewPrefixCompleter(items...)
}

func (r *Repl) setPrompt() {
	dirty := ""
	if len(r.ctx.History()) > 0 {
		dirty = "*"
	}
	b := r.ctx.Bin
	r.rl.SetPrompt(fmt.Sprintf("%s/%s%s> ", b.Format(), b.Arch(), dirty))
}

// Run reads commands until EOF or "quit".
func (r *Repl) Run() error {
	defer r.rl.Close()
	for {
		r.setPrompt()
		line, err := r.rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		// errors are already printed to the session
		shell.Run(r.ctx, line)
	}
}
