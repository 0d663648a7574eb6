// Package hexcodec converts hexadecimal text to Base64 and other byte forms.
//
// The streaming encoder consumes its input in fixed-capacity windows
// (768 bytes by default, 128 whole groups of six hex characters) and writes
// one Base64 fragment per window:
//
//	n, err := hexcodec.Encode(ctx, os.Stdin, os.Stdout, hexcodec.Options{})
//
// A window that comes back short ends the stream. Before encoding, each
// window passes through a TrimFunc; the default TrimTerminator drops a
// trailing non-alphanumeric byte such as a newline. Pass NoTrim to keep
// every byte.
//
// Nibble decoding is pluggable. Nibble accepts only hex digits, while
// LegacyNibble reproduces the permissive letter-range mapping of earlier
// hex2b64 releases for byte-for-byte compatible output.
package hexcodec
