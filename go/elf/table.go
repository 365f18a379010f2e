package elf

import (
	"github.com/M3str3/HexSpell/go/field"
	"github.com/M3str3/HexSpell/go/models"
)

// walk visits count records of stride entsize starting at off. Each record
// is bounds checked before visit sees it.
func walk(buf []byte, off uint64, count, entsize uint16, minSize int, visit func(base int) error) error {
	if count == 0 {
		return nil
	}
	if int(entsize) < minSize {
		return models.Invalidf("entry size %d smaller than %d byte record", entsize, minSize)
	}
	if !field.Fits(buf, off, 0) {
		return models.Overflowf("table at %#x outside %d byte buffer", off, len(buf))
	}
	for i := uint64(0); i < uint64(count); i++ {
		base := off + i*uint64(entsize)
		if !field.Fits(buf, base, uint64(entsize)) {
			return models.Overflowf("entry %d at %#x outside %d byte buffer", i, base, len(buf))
		}
		if err := visit(int(base)); err != nil {
			return err
		}
	}
	return nil
}
