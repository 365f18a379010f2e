package journal

import (
	"bytes"
	"fmt"
	"io"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/M3str3/HexSpell/go/field"
)

const (
	OP_PATCH  = 1
	OP_RESIZE = 2
)

// differing runs separated by fewer equal bytes than this are merged
const mergeGap = 4

var ErrMismatch = errors.New("journal does not match buffer contents")

// Record is one change to a buffer. A patch replaces Old with New at
// Offset. A resize changes the length from Offset to Size; when shrinking,
// Old holds the bytes cut off the end.
type Record struct {
	Kind   uint8  `struc:"skip"`
	Offset uint64 `struc:"uint64,little"`
	Size   uint64 `struc:"uint64,little"`
	OldLen int    `struc:"uint32,little,sizeof=Old"`
	Old    []byte
	NewLen int `struc:"uint32,little,sizeof=New"`
	New    []byte
}

func (r *Record) String() string {
	switch r.Kind {
	case OP_PATCH:
		return fmt.Sprintf("patch  %#08x %d bytes % x -> % x", r.Offset, len(r.New), clip(r.Old), clip(r.New))
	case OP_RESIZE:
		return fmt.Sprintf("resize %#x -> %#x", r.Offset, r.Size)
	}
	return fmt.Sprintf("op(%d)", r.Kind)
}

func clip(p []byte) []byte {
	if len(p) > 8 {
		return p[:8]
	}
	return p
}

func (r *Record) Pack(w io.Writer) error {
	if _, err := w.Write([]byte{r.Kind}); err != nil {
		return errors.WithStack(err)
	}
	return errors.Wrap(struc.Pack(w, r), "struc.Pack() failed")
}

// Unpack reads one record. It returns io.EOF cleanly between records.
func Unpack(r io.Reader) (*Record, error) {
	var tmp [1]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return nil, err
	}
	switch tmp[0] {
	case OP_PATCH, OP_RESIZE:
	default:
		return nil, errors.Errorf("Unknown op: %d", tmp[0])
	}
	rec := &Record{Kind: tmp[0]}
	if err := struc.Unpack(r, rec); err != nil {
		return nil, errors.Wrap(err, "struc.Unpack() failed")
	}
	return rec, nil
}

// Diff returns the records that turn old into new.
func Diff(old, new []byte) []Record {
	var recs []Record
	if len(old) != len(new) {
		rec := Record{Kind: OP_RESIZE, Offset: uint64(len(old)), Size: uint64(len(new))}
		if len(new) < len(old) {
			rec.Old = append([]byte(nil), old[len(new):]...)
		}
		recs = append(recs, rec)
	}
	// compare against old as it looks after the resize
	base := make([]byte, len(new))
	copy(base, old)
	start, last := -1, -1
	flush := func() {
		if start >= 0 {
			recs = append(recs, Record{
				Kind:   OP_PATCH,
				Offset: uint64(start),
				Old:    append([]byte(nil), base[start:last+1]...),
				New:    append([]byte(nil), new[start:last+1]...),
			})
		}
		start, last = -1, -1
	}
	for i := range new {
		if base[i] == new[i] {
			continue
		}
		if start >= 0 && i-last > mergeGap {
			flush()
		}
		if start < 0 {
			start = i
		}
		last = i
	}
	flush()
	return recs
}

// Apply replays recs onto buf, checking that every record's old bytes are
// present first. The returned slice may differ from buf after a resize.
func Apply(buf []byte, recs []Record) ([]byte, error) {
	for i := range recs {
		rec := &recs[i]
		switch rec.Kind {
		case OP_RESIZE:
			if uint64(len(buf)) != rec.Offset {
				return buf, errors.Wrapf(ErrMismatch, "resize from %#x but buffer is %#x bytes", rec.Offset, len(buf))
			}
			if rec.Size < rec.Offset && !bytes.Equal(buf[rec.Size:], rec.Old) {
				return buf, errors.Wrapf(ErrMismatch, "truncated tail at %#x differs", rec.Size)
			}
			buf = resize(buf, rec.Size)
		case OP_PATCH:
			if err := swap(buf, rec.Offset, rec.Old, rec.New); err != nil {
				return buf, err
			}
		default:
			return buf, errors.Errorf("Unknown op: %d", rec.Kind)
		}
	}
	return buf, nil
}

// Revert undoes recs, newest first.
func Revert(buf []byte, recs []Record) ([]byte, error) {
	for i := len(recs) - 1; i >= 0; i-- {
		rec := &recs[i]
		switch rec.Kind {
		case OP_RESIZE:
			if uint64(len(buf)) != rec.Size {
				return buf, errors.Wrapf(ErrMismatch, "undo resize to %#x but buffer is %#x bytes", rec.Size, len(buf))
			}
			buf = resize(buf, rec.Offset)
			if rec.Size < rec.Offset {
				copy(buf[rec.Size:], rec.Old)
			}
		case OP_PATCH:
			if err := swap(buf, rec.Offset, rec.New, rec.Old); err != nil {
				return buf, err
			}
		default:
			return buf, errors.Errorf("Unknown op: %d", rec.Kind)
		}
	}
	return buf, nil
}

func swap(buf []byte, off uint64, from, to []byte) error {
	cur, err := field.Slice(buf, off, uint64(len(from)))
	if err != nil {
		return err
	}
	if len(from) != len(to) {
		return errors.Errorf("patch at %#x changes length", off)
	}
	if !bytes.Equal(cur, from) {
		return errors.Wrapf(ErrMismatch, "bytes at %#x differ", off)
	}
	copy(cur, to)
	return nil
}

func resize(buf []byte, size uint64) []byte {
	if size <= uint64(len(buf)) {
		return buf[:size]
	}
	grown := make([]byte, size)
	copy(grown, buf)
	return grown
}
