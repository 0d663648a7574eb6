package hexcodec

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHexCharacter reports a byte the active nibble decoder rejects.
	ErrInvalidHexCharacter = errors.New("invalid hex character")
	// ErrLengthMismatch reports XOR operands of different lengths.
	ErrLengthMismatch = errors.New("operand length mismatch")
	// ErrUpstreamIO reports a failed read from the input source.
	ErrUpstreamIO = errors.New("upstream read failed")
)

// InvalidHexError carries the rejected byte and, when known, its offset in
// the input. Offset is -1 when the decoder was called on a lone byte.
type InvalidHexError struct {
	Char   byte
	Offset int
}

func (e *InvalidHexError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("%s %q", ErrInvalidHexCharacter, e.Char)
	}
	return fmt.Sprintf("%s %q at offset %d", ErrInvalidHexCharacter, e.Char, e.Offset)
}

func (e *InvalidHexError) Unwrap() error { return ErrInvalidHexCharacter }

// LengthMismatchError records the operand lengths of a failed XOR.
type LengthMismatchError struct {
	Left  int
	Right int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("%s: %d != %d", ErrLengthMismatch, e.Left, e.Right)
}

func (e *LengthMismatchError) Unwrap() error { return ErrLengthMismatch }

// UpstreamError wraps the error returned by the input reader.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", ErrUpstreamIO, e.Err)
}

// Is matches both ErrUpstreamIO and the wrapped reader error.
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamIO }

func (e *UpstreamError) Unwrap() error { return e.Err }

// at stamps an offset onto an InvalidHexError produced by a NibbleFunc.
func at(err error, offset int) error {
	var invalid *InvalidHexError
	if errors.As(err, &invalid) {
		return &InvalidHexError{Char: invalid.Char, Offset: offset}
	}
	return err
}
