package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/RowanDark/hexcrack/internal/cipher"
	"github.com/RowanDark/hexcrack/internal/hexcodec"
	"github.com/RowanDark/hexcrack/internal/logging"
	"github.com/RowanDark/hexcrack/internal/xorcrack"
)

func (c *cli) runXOR(args []string) int {
	fs := flag.NewFlagSet("xor", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(c.stderr, "xor requires exactly two hex arguments")
		return 2
	}
	out, err := hexcodec.XORHex(fs.Arg(0), fs.Arg(1))
	if err != nil {
		fmt.Fprintf(c.stderr, "xor failed: %v\n", err)
		return 1
	}
	fmt.Fprintln(c.stdout, out)
	return 0
}

func (c *cli) runCrack(args []string) int {
	fs := flag.NewFlagSet("crack", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	sample := fs.String("sample", "", "build the scoring table from this text file instead of English")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(c.stderr, "crack accepts at most one hex argument")
		return 2
	}
	table, err := loadTable(*sample)
	if err != nil {
		fmt.Fprintf(c.stderr, "load sample: %v\n", err)
		return 1
	}

	input := fs.Arg(0)
	if fs.NArg() == 0 {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			fmt.Fprintf(c.stderr, "read stdin: %v\n", err)
			return 1
		}
		input = string(data)
	}

	cand, err := xorcrack.CrackHex(strings.TrimSpace(input), table)
	if err != nil {
		_ = c.logger.Error(logging.EventDecodeError, "crack", err, nil)
		fmt.Fprintf(c.stderr, "crack failed: %v\n", err)
		return 1
	}
	_ = c.logger.Emit(logging.Event{
		EventType: logging.EventCrackResult,
		Operation: "crack",
		Metadata:  map[string]any{"key": int(cand.Key), "score": cand.Score},
	})
	fmt.Fprintf(c.stdout, "key %#02x score %d\n%s\n", cand.Key, cand.Score, printable(cand.Plaintext))
	return 0
}

func (c *cli) runDetect(args []string) int {
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	sample := fs.String("sample", "", "build the scoring table from this text file instead of English")
	top := fs.Int("top", 1, "number of ranked lines to print; 0 prints all")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(c.stderr, "detect accepts at most one file argument")
		return 2
	}
	if *top < 0 {
		fmt.Fprintln(c.stderr, "--top must not be negative")
		return 2
	}
	table, err := loadTable(*sample)
	if err != nil {
		fmt.Fprintf(c.stderr, "load sample: %v\n", err)
		return 1
	}

	var r io.Reader = c.stdin
	if fs.NArg() == 1 {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(c.stderr, "open input: %v\n", err)
			return 1
		}
		defer f.Close()
		r = f
	}
	input, err := io.ReadAll(bufio.NewReader(r))
	if err != nil {
		fmt.Fprintf(c.stderr, "read input: %v\n", err)
		return 1
	}

	detector := &cipher.LineDetector{Table: table, Limit: *top}
	results, err := detector.Detect(context.Background(), input)
	if err != nil {
		_ = c.logger.Error(logging.EventDecodeError, "detect", err, nil)
		fmt.Fprintf(c.stderr, "detect failed: %v\n", err)
		return 1
	}
	_ = c.logger.Emit(logging.Event{
		EventType: logging.EventDetectResult,
		Operation: "detect",
		Metadata:  map[string]any{"results": len(results)},
	})
	for _, res := range results {
		fmt.Fprintf(c.stdout, "line %d key %#02x score %d confidence %.2f\n%s\n",
			res.Line, res.Key, res.Score, res.Confidence, printable(res.Plaintext))
	}
	return 0
}

func loadTable(path string) (*xorcrack.Table, error) {
	if path == "" {
		return xorcrack.English(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return xorcrack.TableFromSample(f)
}

// printable returns plaintext as text when it is valid UTF-8 and as quoted
// Go syntax otherwise.
func printable(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return fmt.Sprintf("%q", b)
}
