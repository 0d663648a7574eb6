package xorcrack

import (
	"fmt"
	"sort"
	"strings"
)

// Detection is the best candidate recovered from one input line.
type Detection struct {
	Line int
	Candidate
}

// Detect cracks every non-blank line of hex ciphertext independently and
// ranks the results by score, highest first. Equal scores keep input order.
// A line that fails to decode aborts the whole run.
func Detect(lines []string, table *Table) ([]Detection, error) {
	if table == nil {
		table = English()
	}
	results := make([]Detection, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		c, err := CrackHex(line, table)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		results = append(results, Detection{Line: i, Candidate: c})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}
