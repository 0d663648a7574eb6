package hexcodec

import (
	"errors"
	"io"
	"unicode"
)

const (
	// GroupChars is the number of hex characters that fill one Base64 group.
	GroupChars = 6
	// DefaultWindowGroups is the number of whole groups per default window.
	DefaultWindowGroups = 128
	// DefaultWindowSize is the default window capacity in bytes.
	DefaultWindowSize = GroupChars * DefaultWindowGroups
)

// TrimFunc returns the usable length of a window.
type TrimFunc func(window []byte) int

// TrimTerminator drops the final byte of a window unless it is alphanumeric.
// It exists to shed a trailing newline, and will also eat a real data byte
// if a window happens to end on punctuation.
func TrimTerminator(window []byte) int {
	l := len(window)
	if l == 0 {
		return 0
	}
	r := rune(window[l-1])
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return l
	}
	return l - 1
}

// NoTrim keeps every byte of the window.
func NoTrim(window []byte) int { return len(window) }

// Window is one bounded read of the input stream.
type Window struct {
	Data []byte
	// Last is set when the read came back short, including empty reads.
	Last bool
}

// WindowReader splits a reader into fixed-capacity windows. It yields a
// finite sequence ending with a Last window and then returns io.EOF. The
// Data slice is reused and is only valid until the next call to Next.
type WindowReader struct {
	r    io.Reader
	buf  []byte
	done bool
}

// NewWindowReader creates a reader producing windows of size bytes. A
// non-positive size selects DefaultWindowSize.
func NewWindowReader(r io.Reader, size int) *WindowReader {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &WindowReader{r: r, buf: make([]byte, size)}
}

// Size reports the window capacity.
func (wr *WindowReader) Size() int { return len(wr.buf) }

// Next fills the next window. Read failures are returned as *UpstreamError.
func (wr *WindowReader) Next() (Window, error) {
	if wr.done {
		return Window{}, io.EOF
	}
	n, err := io.ReadFull(wr.r, wr.buf)
	switch {
	case err == nil:
		return Window{Data: wr.buf[:n]}, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		wr.done = true
		return Window{Data: wr.buf[:n], Last: true}, nil
	default:
		wr.done = true
		return Window{}, &UpstreamError{Err: err}
	}
}
