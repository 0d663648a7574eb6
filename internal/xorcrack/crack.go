package xorcrack

import (
	"fmt"

	"github.com/RowanDark/hexcrack/internal/hexcodec"
)

// Candidate is the outcome of trying one key against a ciphertext.
type Candidate struct {
	Key       byte
	Score     int
	Plaintext []byte
}

// XORByte writes src XOR key into dst, which must be at least as long as
// src. dst and src may be the same slice.
func XORByte(dst, src []byte, key byte) {
	for i, b := range src {
		dst[i] = b ^ key
	}
}

// Crack tries all 256 single-byte keys in ascending order and keeps the
// first key whose score is strictly higher than the best so far, starting
// from key 0 at score 0. The ciphertext is then decrypted in place with the
// winning key and returned as the candidate plaintext. A nil table selects
// English.
func Crack(ciphertext []byte, table *Table) Candidate {
	if table == nil {
		table = English()
	}
	var best Candidate
	for k := 0; k <= 0xff; k++ {
		key := byte(k)
		score := 0
		for _, b := range ciphertext {
			score += table[b^key]
		}
		if score > best.Score {
			best.Key = key
			best.Score = score
		}
	}
	XORByte(ciphertext, ciphertext, best.Key)
	best.Plaintext = ciphertext
	return best
}

// CrackHex decodes hex ciphertext and cracks it.
func CrackHex(s string, table *Table) (Candidate, error) {
	ciphertext, err := hexcodec.DecodeBytes(s)
	if err != nil {
		return Candidate{}, fmt.Errorf("decode ciphertext: %w", err)
	}
	return Crack(ciphertext, table), nil
}
