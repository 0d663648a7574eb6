package hexcodec

// EncodeGroups appends the Base64 text for src to dst. src is split into
// groups of six hex characters; a short final group is zero-filled and its
// surplus output positions are replaced by Pad.
func EncodeGroups(dst, src []byte, nibble NibbleFunc) ([]byte, error) {
	if nibble == nil {
		nibble = Nibble
	}
	return encodeGroups(dst, src, nibble, func(i int) int { return i })
}

func encodeGroups(dst, src []byte, nibble NibbleFunc, offsetOf func(int) int) ([]byte, error) {
	l := len(src)
	for index := 0; index < l; index += GroupChars {
		var x uint32
		for offset := 0; offset < GroupChars; offset++ {
			x <<= 4
			next := index + offset
			if next >= l {
				continue
			}
			n, err := nibble(src[next])
			if err != nil {
				return dst, at(err, offsetOf(next))
			}
			x += uint32(n)
		}
		// (l-index)/2 counts whole bytes left in this group; only that many
		// sextets after the first carry data.
		whole := (l - index) / 2
		for sextet := 0; sextet < 4; sextet++ {
			if whole < sextet {
				dst = append(dst, Pad)
				continue
			}
			dst = append(dst, Alphabet[(x>>uint((3-sextet)*6))&63])
		}
	}
	return dst, nil
}

// Transcoder encodes a stream one window at a time. Characters that do not
// complete a group in a non-final window are held back and prefixed to the
// next window, so only the final window can produce padding.
type Transcoder struct {
	nibble NibbleFunc
	trim   TrimFunc
	// carry holds fewer than GroupChars usable characters from earlier
	// windows; carryAt is the input offset of carry[0].
	carry   []byte
	carryAt int
	// consumed counts raw input bytes seen so far, trimmed ones included.
	consumed int
	scratch  []byte
}

// NewTranscoder builds a transcoder from opts, filling in defaults.
func NewTranscoder(opts Options) *Transcoder {
	opts = opts.withDefaults()
	return &Transcoder{nibble: opts.Nibble, trim: opts.Trim}
}

// Window trims window, encodes the usable bytes and appends the result to
// dst. last must be set on the final window of the stream; it flushes any
// carried characters as a padded group.
func (t *Transcoder) Window(dst, window []byte, last bool) ([]byte, error) {
	usable := window[:t.trim(window)]
	base := t.consumed
	t.consumed += len(window)

	held := len(t.carry)
	data := usable
	if held > 0 {
		t.scratch = append(append(t.scratch[:0], t.carry...), usable...)
		data = t.scratch
	}
	carryAt := t.carryAt
	offsetOf := func(i int) int {
		if i < held {
			return carryAt + i
		}
		return base + i - held
	}

	emit := len(data)
	if !last {
		emit -= emit % GroupChars
	}
	out, err := encodeGroups(dst, data[:emit], t.nibble, offsetOf)
	if err != nil {
		return dst, err
	}

	rest := data[emit:]
	if len(rest) > 0 {
		t.carryAt = offsetOf(emit)
	}
	t.carry = append(t.carry[:0], rest...)
	return out, nil
}

// Pending reports how many characters are carried into the next window.
func (t *Transcoder) Pending() int { return len(t.carry) }
