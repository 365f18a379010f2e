package loader

import (
	"github.com/pkg/errors"

	"github.com/M3str3/HexSpell/go/models"
)

var UnknownMagic = errors.New("Could not identify file magic.")

func LoadFile(path string) (Binary, error) {
	p, err := models.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(p)
}

// Load picks a parser by magic. The returned Binary aliases p.
func Load(p []byte) (Binary, error) {
	if MatchElf(p) {
		return NewElfLoader(p)
	} else if MatchMachO(p) {
		return NewMachOLoader(p)
	} else if MatchPE(p) {
		return NewPELoader(p)
	} else {
		return nil, errors.WithStack(UnknownMagic)
	}
}

func getMagic(p []byte) []byte {
	if len(p) < 4 {
		return p
	}
	return p[:4]
}
