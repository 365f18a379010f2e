package models

import (
	"io/fs"

	"github.com/pkg/errors"
)

var (
	ErrBufferOverflow    = errors.New("data out of bounds")
	ErrInvalidFileFormat = errors.New("invalid file format")
	ErrValueTooLarge     = errors.New("value exceeds field size")
)

// UnsupportedFeatureError marks format variants that are recognized but not modeled.
type UnsupportedFeatureError struct {
	Feature string
}

func (e *UnsupportedFeatureError) Error() string {
	return "unsupported feature: " + e.Feature
}

func Unsupported(feature string) error {
	return errors.WithStack(&UnsupportedFeatureError{Feature: feature})
}

// Overflow and Invalid attach a stack to the shared sentinels.
func Overflow() error { return errors.WithStack(ErrBufferOverflow) }
func Invalid() error  { return errors.WithStack(ErrInvalidFileFormat) }

func Overflowf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrBufferOverflow, format, args...)
}

func Invalidf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidFileFormat, format, args...)
}

// IsIo reports whether err came from the file I/O collaborator.
func IsIo(err error) bool {
	var pe *fs.PathError
	return errors.As(err, &pe)
}
