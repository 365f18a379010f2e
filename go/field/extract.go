package field

import (
	"encoding/binary"

	"github.com/M3str3/HexSpell/go/models"
)

// Fits reports whether [off, off+size) lies inside buf without overflowing.
func Fits[I ~int | ~uint64](buf []byte, off, size I) bool {
	if off < 0 || size < 0 {
		return false
	}
	n := uint64(len(buf))
	return uint64(off) <= n && uint64(size) <= n-uint64(off)
}

func Slice[I ~int | ~uint64](buf []byte, off, size I) ([]byte, error) {
	if !Fits(buf, off, size) {
		return nil, models.Overflowf("read %#x+%d outside %d byte buffer", uint64(off), uint64(size), len(buf))
	}
	start := uint64(off)
	return buf[start : start+uint64(size)], nil
}

func Extract16(buf []byte, off int, order binary.ByteOrder) (uint16, error) {
	p, err := Slice(buf, off, 2)
	if err != nil {
		return 0, err
	}
	return order.Uint16(p), nil
}

func Extract32(buf []byte, off int, order binary.ByteOrder) (uint32, error) {
	p, err := Slice(buf, off, 4)
	if err != nil {
		return 0, err
	}
	return order.Uint32(p), nil
}

func Extract64(buf []byte, off int, order binary.ByteOrder) (uint64, error) {
	p, err := Slice(buf, off, 8)
	if err != nil {
		return 0, err
	}
	return order.Uint64(p), nil
}
