package journal

import (
	"io"
	"os"
	"strings"

	"github.com/golang/snappy"
	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

var JOURNAL_MAGIC = "HXJL"

type Header struct {
	// MAGIC ("HXJL")
	Magic string `struc:"[4]byte"`
	// file format version
	Version uint32
	// "elf", "pe" or "macho". Right-null-padded.
	Format string `struc:"[8]byte"`
	// length of the buffer the first record applies to
	Size uint64
}

type Writer struct {
	w  io.WriteCloser
	zw *snappy.Writer
}

func NewWriter(w io.WriteCloser, format string, size int) (*Writer, error) {
	header := &Header{
		Magic:   JOURNAL_MAGIC,
		Version: 1,
		Format:  format,
		Size:    uint64(size),
	}
	if err := struc.Pack(w, header); err != nil {
		return nil, errors.Wrap(err, "failed to pack header")
	}
	return &Writer{w: w, zw: snappy.NewBufferedWriter(w)}, nil
}

func (j *Writer) Pack(rec *Record) error {
	return rec.Pack(j.zw)
}

func (j *Writer) Close() error {
	if err := j.zw.Close(); err != nil {
		j.w.Close()
		return errors.WithStack(err)
	}
	return errors.WithStack(j.w.Close())
}

type Reader struct {
	r      io.ReadCloser
	zr     *snappy.Reader
	Header Header
}

func NewReader(r io.ReadCloser) (*Reader, error) {
	j := &Reader{r: r}
	if err := struc.Unpack(r, &j.Header); err != nil {
		return nil, errors.Wrap(err, "failed to unpack header")
	}
	if j.Header.Magic != JOURNAL_MAGIC {
		return nil, errors.New("invalid journal file magic")
	}
	j.Header.Format = strings.TrimRight(j.Header.Format, "\x00")
	j.zr = snappy.NewReader(r)
	return j, nil
}

// Next returns io.EOF after the last record.
func (j *Reader) Next() (*Record, error) {
	return Unpack(j.zr)
}

func (j *Reader) Close() {
	j.zr.Reset(nil)
	j.r.Close()
}

// Save writes recs to a journal file at path.
func Save(path, format string, size int, recs []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	w, err := NewWriter(f, format, size)
	if err != nil {
		f.Close()
		return err
	}
	for i := range recs {
		if err := w.Pack(&recs[i]); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// Load reads every record from the journal file at path.
func Load(path string) (*Header, []Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	defer r.Close()
	var recs []Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, nil, err
		}
		recs = append(recs, *rec)
	}
	return &r.Header, recs, nil
}
