package models

import (
	"bytes"
	"io"
	"os"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// snappy framing format stream identifier chunk
var snappyMagic = []byte("\xff\x06\x00\x00sNaPpY")

// ReadFile reads a whole binary into memory. Inputs stored in snappy framing
// format are inflated so compressed sample corpora can be parsed directly.
func ReadFile(path string) ([]byte, error) {
	p, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !bytes.HasPrefix(p, snappyMagic) {
		return p, nil
	}
	out, err := io.ReadAll(snappy.NewReader(bytes.NewReader(p)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to inflate snappy input")
	}
	return out, nil
}

// WriteFile writes p verbatim, keeping the mode of an existing file.
func WriteFile(path string, p []byte) error {
	mode := os.FileMode(0755)
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode().Perm()
	}
	return errors.WithStack(os.WriteFile(path, p, mode))
}
