package main

import (
	"github.com/M3str3/HexSpell/go/cmd"

	_ "github.com/M3str3/HexSpell/go/cmd/info"
	_ "github.com/M3str3/HexSpell/go/cmd/inject"
	_ "github.com/M3str3/HexSpell/go/cmd/patch"
	_ "github.com/M3str3/HexSpell/go/cmd/repl"
	_ "github.com/M3str3/HexSpell/go/cmd/replay"
)

func main() { cmd.Main() }
