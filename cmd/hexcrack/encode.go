package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/RowanDark/hexcrack/internal/codecsvc"
	"github.com/RowanDark/hexcrack/internal/hexcodec"
	"github.com/RowanDark/hexcrack/internal/logging"
)

func (c *cli) runEncode(args []string) int {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	groups := fs.Int("groups", c.cfg.Window.Groups, "window size in 6-character groups")
	legacy := fs.Bool("legacy", c.cfg.Hex.Legacy, "use the permissive range-offset nibble decoder")
	trim := fs.Bool("trim", c.cfg.Hex.Trim, "drop a trailing non-alphanumeric byte from each window")
	remote := fs.String("remote", "", "encode through the codec service at this address")
	progress := fs.Bool("progress", false, "log an encode_window event per window and a closing encode_done event")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(c.stderr, "encode reads hex from stdin and takes no positional arguments")
		return 2
	}
	if *groups <= 0 {
		fmt.Fprintf(c.stderr, "--groups must be positive, got %d\n", *groups)
		return 2
	}

	cfg := c.cfg
	cfg.Window.Groups = *groups
	cfg.Hex.Legacy = *legacy
	cfg.Hex.Trim = *trim
	opts := cfg.CodecOptions()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *remote != "" {
		client, closeConn, err := dialCodec(*remote)
		if err != nil {
			fmt.Fprintf(c.stderr, "connect to %s: %v\n", *remote, err)
			return 1
		}
		defer closeConn()
		n, err := client.EncodeStream(ctx, c.stdin, c.stdout, opts.WindowSize,
			codecsvc.WithLegacy(*legacy), codecsvc.WithTrim(*trim))
		return c.encodeResult(n, err, *progress)
	}

	if *progress {
		opts.OnWindow = func(ws hexcodec.WindowStats) {
			_ = c.logger.Emit(logging.Event{
				EventType: logging.EventEncodeWindow,
				Operation: "encode",
				Metadata: map[string]any{
					"index":   ws.Index,
					"read":    ws.Read,
					"emitted": ws.Emitted,
					"pending": ws.Pending,
					"last":    ws.Last,
				},
			})
		}
	}
	n, err := hexcodec.Encode(ctx, c.stdin, c.stdout, opts)
	return c.encodeResult(n, err, *progress)
}

// encodeResult always logs failures. The encode_done event is only written
// with --progress or a configured log file, so stderr stays quiet otherwise.
func (c *cli) encodeResult(written int64, err error, progress bool) int {
	if err != nil {
		event := logging.EventDecodeError
		if errors.Is(err, hexcodec.ErrUpstreamIO) {
			event = logging.EventEncodeDone
		}
		_ = c.logger.Error(event, "encode", err, map[string]any{"written": written})
		fmt.Fprintf(c.stderr, "encode failed: %v\n", err)
		return 1
	}
	if !progress && c.cfg.Log.File == "" {
		return 0
	}
	_ = c.logger.Emit(logging.Event{
		EventType: logging.EventEncodeDone,
		Operation: "encode",
		Metadata:  map[string]any{"written": written},
	})
	return 0
}
