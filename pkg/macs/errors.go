package macs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat is returned for the Invalid format or one an operation cannot handle.
	ErrInvalidFormat = errors.New("macs: invalid pixel format")
	// ErrInvalidEndianness is returned when a multi-byte decode meets Undefined endianness.
	ErrInvalidEndianness = errors.New("macs: invalid pixel endianness")
	// ErrInvalidGeometry is returned when the buffer cannot hold the declared pitch and height.
	ErrInvalidGeometry = errors.New("macs: invalid image geometry")
	// ErrInvalidParameter is returned for out-of-domain correction options.
	ErrInvalidParameter = errors.New("macs: invalid correction parameter")
	// ErrMetaTooLong is returned by Write when a metadata string does not fit its 16-bit length prefix.
	ErrMetaTooLong = errors.New("macs: metadata field too long")
)

// IOError wraps a failure reported by the container reader or writer. The
// cause is passed through untouched and stays reachable with errors.Is/As.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("macs: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("macs: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
