package hexcodec

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Options tunes the streaming encoder. The zero value selects the strict
// nibble decoder, terminator trimming and DefaultWindowSize.
type Options struct {
	Nibble     NibbleFunc
	Trim       TrimFunc
	WindowSize int
	// OnWindow, if set, is called after each window is written.
	OnWindow func(WindowStats)
}

// WindowStats describes one processed window.
type WindowStats struct {
	Index   int
	Read    int
	Emitted int
	Pending int
	Last    bool
}

func (o Options) withDefaults() Options {
	if o.Nibble == nil {
		o.Nibble = Nibble
	}
	if o.Trim == nil {
		o.Trim = TrimTerminator
	}
	if o.WindowSize <= 0 {
		o.WindowSize = DefaultWindowSize
	}
	return o
}

// Encode reads hex text from r window by window and writes its Base64 form
// to w, one fragment per window. It stops after the first short window. A
// decode error aborts before the failing window is written.
func Encode(ctx context.Context, r io.Reader, w io.Writer, opts Options) (int64, error) {
	opts = opts.withDefaults()
	windows := NewWindowReader(r, opts.WindowSize)
	tr := NewTranscoder(opts)
	out := make([]byte, 0, (opts.WindowSize/GroupChars+1)*4)

	var written int64
	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		win, err := windows.Next()
		if errors.Is(err, io.EOF) {
			return written, nil
		}
		if err != nil {
			return written, err
		}

		out, err = tr.Window(out[:0], win.Data, win.Last)
		if err != nil {
			return written, err
		}
		if len(out) > 0 {
			n, err := w.Write(out)
			written += int64(n)
			if err != nil {
				return written, fmt.Errorf("write base64 fragment: %w", err)
			}
		}
		if opts.OnWindow != nil {
			opts.OnWindow(WindowStats{
				Index:   index,
				Read:    len(win.Data),
				Emitted: len(out),
				Pending: tr.Pending(),
				Last:    win.Last,
			})
		}
		if win.Last {
			return written, nil
		}
	}
}

// EncodeString converts a complete hex string to Base64 with the strict
// decoder and no terminator trimming.
func EncodeString(s string) (string, error) {
	return EncodeStringWith(s, NoTrim, Nibble)
}

// EncodeStringWith treats s as a single final window.
func EncodeStringWith(s string, trim TrimFunc, nibble NibbleFunc) (string, error) {
	tr := NewTranscoder(Options{Nibble: nibble, Trim: trim})
	out, err := tr.Window(make([]byte, 0, (len(s)+5)/6*4), []byte(s), true)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
