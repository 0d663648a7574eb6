package hexcodec

// XORHex combines two equal-length hex strings digit by digit and returns the
// lowercase hex digits of the result.
func XORHex(a, b string) (string, error) {
	if len(a) != len(b) {
		return "", &LengthMismatchError{Left: len(a), Right: len(b)}
	}
	out := make([]byte, len(a))
	for i := 0; i < len(a); i++ {
		x, err := Nibble(a[i])
		if err != nil {
			return "", at(err, i)
		}
		y, err := Nibble(b[i])
		if err != nil {
			return "", at(err, i)
		}
		out[i] = HexDigit(x ^ y)
	}
	return string(out), nil
}
