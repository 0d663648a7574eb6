package hexcodec

// NibbleFunc decodes one ASCII character into its 4-bit value.
type NibbleFunc func(c byte) (byte, error)

const hexDigits = "0123456789abcdef"

// Nibble is the strict decoder: it accepts 0-9, a-f and A-F only.
func Nibble(c byte) (byte, error) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', nil
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, nil
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, nil
	}
	return 0, &InvalidHexError{Char: c, Offset: -1}
}

// LegacyNibble reproduces the range-offset mapping of earlier hex2b64
// releases. Only bytes below '0' are rejected; 'g'..'z', 'G'..'Z', the
// punctuation between '9' and 'A', and anything above 'z' decode to values
// above 15, which then bleed into neighbouring nibbles of a group.
func LegacyNibble(c byte) (byte, error) {
	switch {
	case c > 96:
		return c - 87, nil
	case c > 64:
		return c - 55, nil
	case c > 47:
		return c - 48, nil
	}
	return 0, &InvalidHexError{Char: c, Offset: -1}
}

// HexDigit returns the lowercase hex digit for n, which must be below 16.
func HexDigit(n byte) byte {
	return hexDigits[n&0x0f]
}
