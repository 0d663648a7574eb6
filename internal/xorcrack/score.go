package xorcrack

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// Table maps every byte value to its plausibility weight as English text.
type Table [256]int

var englishWeights = []struct {
	letter byte
	weight int
}{
	{'e', 127}, {'t', 91}, {'a', 82}, {'o', 76}, {'i', 70}, {'n', 67},
	{'s', 63}, {'h', 61}, {'r', 60}, {'d', 43}, {'l', 40}, {'c', 28},
	{'u', 28},
}

var english = func() Table {
	var t Table
	t[' '] = 167
	for _, w := range englishWeights {
		t[w.letter] = w.weight
		t[w.letter-'a'+'A'] = w.weight
	}
	return t
}()

// English returns a copy of the built-in letter frequency table. Only the
// space and thirteen common letters carry weight; both cases score alike.
func English() *Table {
	t := english
	return &t
}

// Score sums the weights of every byte in b.
func (t *Table) Score(b []byte) int {
	var total int
	for _, c := range b {
		total += t[c]
	}
	return total
}

// TableFromSample counts byte occurrences in a sample of text resembling the
// expected plaintext.
func TableFromSample(r io.Reader) (*Table, error) {
	var t Table
	br := bufio.NewReader(r)
	var seen int
	for {
		c, err := br.ReadByte()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read sample: %w", err)
		}
		t[c]++
		seen++
	}
	if seen == 0 {
		return nil, errors.New("sample is empty")
	}
	return &t, nil
}
