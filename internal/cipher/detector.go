package cipher

import (
	"context"
	"fmt"
	"strings"

	"github.com/RowanDark/hexcrack/internal/xorcrack"
)

// LineDetector finds the lines of a hex listing most likely to be
// single-byte XOR encrypted English.
type LineDetector struct {
	// Table scores candidate plaintexts; nil selects xorcrack.English.
	Table *xorcrack.Table
	// Limit caps the number of results; zero keeps all.
	Limit int
}

// NewLineDetector creates a detector using the English table.
func NewLineDetector() *LineDetector {
	return &LineDetector{}
}

// Detect cracks each line of input and returns the results ranked by score.
func (d *LineDetector) Detect(ctx context.Context, input []byte) ([]DetectionResult, error) {
	if len(strings.TrimSpace(string(input))) == 0 {
		return nil, fmt.Errorf("empty input")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table := d.Table
	if table == nil {
		table = xorcrack.English()
	}

	detections, err := xorcrack.Detect(strings.Split(string(input), "\n"), table)
	if err != nil {
		return nil, err
	}
	if d.Limit > 0 && len(detections) > d.Limit {
		detections = detections[:d.Limit]
	}

	results := make([]DetectionResult, 0, len(detections))
	for _, det := range detections {
		results = append(results, DetectionResult{
			Encoding:   "single-byte-xor",
			Confidence: coverage(table, det.Plaintext),
			Reasoning:  fmt.Sprintf("key %#02x scores %d", det.Key, det.Score),
			Operation:  "single_byte_xor",
			Line:       det.Line + 1,
			Key:        det.Key,
			Score:      det.Score,
			Plaintext:  det.Plaintext,
		})
	}
	return results, nil
}

// SupportedEncodings lists what this detector recognises.
func (d *LineDetector) SupportedEncodings() []string {
	return []string{"single-byte-xor"}
}

// coverage is the share of plaintext bytes that carry any weight.
func coverage(table *xorcrack.Table, plaintext []byte) float64 {
	if len(plaintext) == 0 {
		return 0
	}
	var hits int
	for _, b := range plaintext {
		if table[b] > 0 {
			hits++
		}
	}
	return float64(hits) / float64(len(plaintext))
}
