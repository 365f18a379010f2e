package field

import "encoding/binary"

// Reader decodes fields from one buffer and keeps the first error, so a
// record can be read field by field and checked once.
type Reader struct {
	Buf   []byte
	Order binary.ByteOrder
	Err   error
}

func NewReader(buf []byte, order binary.ByteOrder) *Reader {
	return &Reader{Buf: buf, Order: order}
}

func readUint[T uint8 | uint16 | uint32 | uint64](r *Reader, off, size int) Field[T] {
	if r.Err != nil {
		return Field[T]{}
	}
	f, err := ReadUint[T](r.Buf, off, size, r.Order)
	r.Err = err
	return f
}

func (r *Reader) U8(off int) Field[uint8] {
	return readUint[uint8](r, off, 1)
}

func (r *Reader) U16(off int) Field[uint16] {
	return readUint[uint16](r, off, 2)
}

func (r *Reader) U32(off int) Field[uint32] {
	return readUint[uint32](r, off, 4)
}

func (r *Reader) U64(off int) Field[uint64] {
	return readUint[uint64](r, off, 8)
}

// Addr reads an address-sized value of 4 or 8 bytes into a 64-bit field.
func (r *Reader) Addr(off, size int) Field[uint64] {
	return readUint[uint64](r, off, size)
}

func (r *Reader) String(off, size int) Field[string] {
	if r.Err != nil {
		return Field[string]{}
	}
	f, err := ReadString(r.Buf, off, size)
	r.Err = err
	return f
}
