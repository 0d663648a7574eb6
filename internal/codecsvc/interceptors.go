package codecsvc

import (
	"context"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/RowanDark/hexcrack/internal/logging"
)

// UnaryServerInterceptor emits one rpc_call event per unary call.
func UnaryServerInterceptor(logger *logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		emitCall(logger, info.FullMethod, "unary", start, err)
		return resp, err
	}
}

// StreamServerInterceptor emits one rpc_call event per stream once it ends.
func StreamServerInterceptor(logger *logging.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		emitCall(logger, info.FullMethod, streamType(info), start, err)
		return err
	}
}

func emitCall(logger *logging.Logger, fullMethod, kind string, start time.Time, err error) {
	if logger == nil {
		return
	}
	attrs := map[string]any{
		"rpc.system":    "grpc",
		"rpc.grpc.type": kind,
		"rpc.code":      status.Code(err).String(),
		"duration_ms":   time.Since(start).Milliseconds(),
	}
	service, method := splitMethod(fullMethod)
	if service != "" {
		attrs["rpc.service"] = service
	}
	event := logging.Event{EventType: logging.EventRPCCall, Operation: method, Metadata: attrs}
	if err != nil {
		event.Outcome = logging.OutcomeError
		event.Reason = status.Convert(err).Message()
	}
	_ = logger.Emit(event)
}

func splitMethod(full string) (string, string) {
	full = strings.TrimPrefix(full, "/")
	parts := strings.Split(full, "/")
	if len(parts) != 2 {
		return full, ""
	}
	return parts[0], parts[1]
}

func streamType(info *grpc.StreamServerInfo) string {
	switch {
	case info.IsClientStream && info.IsServerStream:
		return "bidi"
	case info.IsClientStream:
		return "client_stream"
	case info.IsServerStream:
		return "server_stream"
	default:
		return "unary"
	}
}
