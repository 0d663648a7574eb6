package codecsvc

import (
	"context"
	"errors"
	"net"
	"time"

	"golang.org/x/net/netutil"
	"google.golang.org/grpc"
)

// Serve runs srv on lis until ctx is cancelled. A positive maxConns caps the
// number of simultaneously accepted connections. Shutdown waits up to two
// seconds for in-flight calls before forcing the server closed.
func Serve(ctx context.Context, lis net.Listener, srv *Server, maxConns int) error {
	if srv == nil {
		return errors.New("codec server is required")
	}
	if maxConns > 0 {
		lis = netutil.LimitListener(lis, maxConns)
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(srv.Logger())),
		grpc.ChainStreamInterceptor(StreamServerInterceptor(srv.Logger())),
	)
	Register(grpcServer, srv)

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}

		done := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			grpcServer.Stop()
		}
	}()

	if err := grpcServer.Serve(lis); err != nil {
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
	return nil
}
