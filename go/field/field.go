// Package field binds decoded values to the exact bytes they were read from,
// so they can be rewritten in place without disturbing the rest of the file.
package field

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"github.com/M3str3/HexSpell/go/models"
)

// Codec converts between a value and its on-disk bytes.
// Encode must fill all of dst or fail without touching it.
type Codec[T any] interface {
	Encode(dst []byte, v T) error
	Decode(src []byte) T
	Parse(text string) (T, error)
	Format(v T) string
}

// Field is a value paired with its location in the owning buffer.
type Field[T any] struct {
	Value  T
	Offset int
	Size   int
	codec  Codec[T]
}

func New[T any](value T, offset, size int, codec Codec[T]) Field[T] {
	return Field[T]{Value: value, Offset: offset, Size: size, codec: codec}
}

func NewUint[T constraints.Unsigned](value T, offset, size int, order binary.ByteOrder) Field[T] {
	return New[T](value, offset, size, Uint[T]{Order: order})
}

func NewString(value string, offset, size int) Field[string] {
	return New[string](value, offset, size, String{})
}

// ReadUint decodes a size-byte unsigned integer at off.
func ReadUint[T constraints.Unsigned](buf []byte, off, size int, order binary.ByteOrder) (Field[T], error) {
	p, err := Slice(buf, off, size)
	if err != nil {
		return Field[T]{}, err
	}
	codec := Uint[T]{Order: order}
	return New[T](codec.Decode(p), off, size, codec), nil
}

// ReadString decodes a NUL-padded string of at most size bytes at off.
func ReadString(buf []byte, off, size int) (Field[string], error) {
	p, err := Slice(buf, off, size)
	if err != nil {
		return Field[string]{}, err
	}
	return New[string](String{}.Decode(p), off, size, String{}), nil
}

// Valid reports whether the field was decoded from the file.
func (f *Field[T]) Valid() bool {
	return f.codec != nil
}

func (f *Field[T]) Span() (int, int) {
	return f.Offset, f.Size
}

// Update encodes v into buf[Offset:Offset+Size] and caches it. On error
// neither buf nor the cached value change.
func (f *Field[T]) Update(buf []byte, v T) error {
	if f.codec == nil {
		return models.Invalidf("field at %#x was never decoded", f.Offset)
	}
	if !Fits(buf, f.Offset, f.Size) {
		return models.Overflowf("field %#x+%d outside %d byte buffer", f.Offset, f.Size, len(buf))
	}
	scratch := make([]byte, f.Size)
	if err := f.codec.Encode(scratch, v); err != nil {
		return err
	}
	copy(buf[f.Offset:], scratch)
	f.Value = v
	return nil
}

// Set parses text with the field's codec and writes the result.
func (f *Field[T]) Set(buf []byte, text string) error {
	if f.codec == nil {
		return models.Invalidf("field at %#x was never decoded", f.Offset)
	}
	v, err := f.codec.Parse(text)
	if err != nil {
		return err
	}
	return f.Update(buf, v)
}

func (f *Field[T]) String() string {
	if f.codec == nil {
		return "<none>"
	}
	return f.codec.Format(f.Value)
}

// Uint is the codec for fixed-width unsigned integers. Fields narrower than
// T keep the low Size bytes of the value.
type Uint[T constraints.Unsigned] struct {
	Order binary.ByteOrder
}

func littleEndian(order binary.ByteOrder) bool {
	var tmp [2]byte
	order.PutUint16(tmp[:], 1)
	return tmp[0] == 1
}

func (u Uint[T]) Encode(dst []byte, v T) error {
	size := len(dst)
	if size > 8 {
		return models.Invalidf("integer field of %d bytes", size)
	}
	wide := uint64(v)
	if size < 8 && wide>>(uint(size)*8) != 0 {
		return errors.Wrapf(models.ErrValueTooLarge, "%#x does not fit in %d bytes", wide, size)
	}
	var tmp [8]byte
	u.Order.PutUint64(tmp[:], wide)
	if littleEndian(u.Order) {
		copy(dst, tmp[:size])
	} else {
		copy(dst, tmp[8-size:])
	}
	return nil
}

func (u Uint[T]) Decode(src []byte) T {
	var tmp [8]byte
	if len(src) > 8 {
		src = src[:8]
	}
	if littleEndian(u.Order) {
		copy(tmp[:], src)
	} else {
		copy(tmp[8-len(src):], src)
	}
	return T(u.Order.Uint64(tmp[:]))
}

func (u Uint[T]) Parse(text string) (T, error) {
	n, err := strconv.ParseUint(text, 0, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "bad integer %q", text)
	}
	if uint64(T(n)) != n {
		return 0, errors.Wrapf(models.ErrValueTooLarge, "%#x", n)
	}
	return T(n), nil
}

func (u Uint[T]) Format(v T) string {
	return fmt.Sprintf("%#x", uint64(v))
}

// String is the codec for fixed-size, NUL-padded UTF-8 strings.
type String struct{}

func (String) Encode(dst []byte, v string) error {
	if len(v) > len(dst) {
		return errors.Wrapf(models.ErrBufferOverflow, "%q is longer than %d bytes", v, len(dst))
	}
	n := copy(dst, v)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	return nil
}

func (String) Decode(src []byte) string {
	for i, c := range src {
		if c == 0 {
			return string(src[:i])
		}
	}
	return string(src)
}

func (String) Parse(text string) (string, error) {
	return text, nil
}

func (String) Format(v string) string {
	return strconv.Quote(v)
}
