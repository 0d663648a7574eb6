package main

import (
	"fmt"
	"io"
	"os"

	"github.com/RowanDark/hexcrack/internal/config"
	"github.com/RowanDark/hexcrack/internal/logging"
)

const usageText = `hexcrack converts hex to Base64 and breaks single-byte XOR.

Usage:
  hexcrack encode [flags] < hex            stream stdin to Base64 on stdout
  hexcrack xor A B                         XOR two equal-length hex strings
  hexcrack crack [--sample FILE] [HEX]     recover a single-byte XOR key
  hexcrack detect [FILE]                   rank hex lines by likely plaintext
  hexcrack pipe --ops a,b | --recipe NAME  run an operation pipeline on stdin
  hexcrack recipe save|list|delete         manage saved pipelines
  hexcrack serve [flags]                   run the gRPC codec service
  hexcrack self-update [--channel C]       install the newest release
  hexcrack rollback                        restore the previous release
  hexcrack version                         print the build version
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// cli carries the streams and resolved configuration shared by subcommands.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	cfg    config.Config
	logger *logging.Logger
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usageText)
		return 2
	}
	switch args[0] {
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usageText)
		return 0
	case "version":
		return runVersion(args[1:], stdout, stderr)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	logger, err := newLogger(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "open log: %v\n", err)
		return 1
	}
	defer logger.Close()

	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr, cfg: cfg, logger: logger}
	switch args[0] {
	case "encode":
		return c.runEncode(args[1:])
	case "xor":
		return c.runXOR(args[1:])
	case "crack":
		return c.runCrack(args[1:])
	case "detect":
		return c.runDetect(args[1:])
	case "pipe":
		return c.runPipe(args[1:])
	case "recipe":
		return c.runRecipe(args[1:])
	case "serve":
		return c.runServe(args[1:])
	case "self-update":
		return c.runSelfUpdate(args[1:])
	case "rollback":
		return c.runRollback(args[1:])
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", args[0])
		fmt.Fprint(stderr, usageText)
		return 2
	}
}

// newLogger sends events to the configured log file, or to stderr when none
// is set.
func newLogger(cfg config.Config, stderr io.Writer) (*logging.Logger, error) {
	if cfg.Log.File != "" {
		return logging.New("hexcrack", logging.WithoutStderr(), logging.WithFile(cfg.Log.File))
	}
	return logging.New("hexcrack", logging.WithoutStderr(), logging.WithWriter(stderr))
}
