package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/RowanDark/hexcrack/internal/codecsvc"
	"github.com/RowanDark/hexcrack/internal/logging"
)

func (c *cli) runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	addr := fs.String("addr", c.cfg.Server.Addr, "address to listen on")
	maxConns := fs.Int("max-conns", c.cfg.Server.MaxConns, "maximum simultaneous connections; 0 disables the limit")
	sample := fs.String("sample", "", "build the scoring table from this text file instead of English")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(c.stderr, "serve takes no positional arguments")
		return 2
	}
	if *maxConns < 0 {
		fmt.Fprintln(c.stderr, "--max-conns must not be negative")
		return 2
	}
	table, err := loadTable(*sample)
	if err != nil {
		fmt.Fprintf(c.stderr, "load sample: %v\n", err)
		return 1
	}

	slogger := logging.NewSlog(c.stderr)
	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		slogger.Error("listen failed", "addr", *addr, "error", err)
		return 1
	}
	defer lis.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := codecsvc.NewServer(c.cfg.CodecOptions(),
		codecsvc.WithLogger(c.logger.WithComponent("codecsvc")),
		codecsvc.WithTable(table),
	)
	slogger.Info("codec service listening", "addr", lis.Addr().String(), "max_conns", *maxConns, "service", codecsvc.ServiceName)
	if err := codecsvc.Serve(ctx, lis, srv, *maxConns); err != nil {
		slogger.Error("serve failed", "error", err)
		return 1
	}
	slogger.Info("codec service stopped")
	return 0
}

// dialCodec connects to a codec service without transport security.
func dialCodec(addr string) (*codecsvc.Client, func(), error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return codecsvc.NewClient(conn), func() { _ = conn.Close() }, nil
}
