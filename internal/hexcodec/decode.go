package hexcodec

// DecodeBytes converts hex text to the bytes it encodes using the strict
// decoder. An odd trailing character is ignored.
func DecodeBytes(s string) ([]byte, error) {
	return DecodeBytesWith(s, Nibble)
}

// DecodeBytesWith is DecodeBytes with a caller-selected nibble decoder.
// Nibble values above 15, which only LegacyNibble yields, wrap modulo 256
// exactly as byte arithmetic does.
func DecodeBytesWith(s string, nibble NibbleFunc) ([]byte, error) {
	if nibble == nil {
		nibble = Nibble
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		hi, err := nibble(s[2*i])
		if err != nil {
			return nil, at(err, 2*i)
		}
		lo, err := nibble(s[2*i+1])
		if err != nil {
			return nil, at(err, 2*i+1)
		}
		out[i] = hi*16 + lo
	}
	return out, nil
}

// EncodeBytes returns the lowercase hex form of b.
func EncodeBytes(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[2*i] = HexDigit(v >> 4)
		out[2*i+1] = HexDigit(v)
	}
	return string(out)
}
