package codecsvc

import (
	"context"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/RowanDark/hexcrack/internal/hexcodec"
)

// Metadata keys carrying per-call decoding choices. A key that is absent
// leaves the server's configured behaviour in place.
const (
	nibbleMetadataKey = "hexcrack-nibble"
	trimMetadataKey   = "hexcrack-trim"
)

// EncodeOption selects how the server decodes one encode call.
type EncodeOption func(*encodeSettings)

type encodeSettings struct {
	legacy *bool
	trim   *bool
}

// WithLegacy picks the range-offset nibble decoder (true) or the strict one.
func WithLegacy(legacy bool) EncodeOption {
	return func(s *encodeSettings) { s.legacy = &legacy }
}

// WithTrim turns per-window terminator trimming on or off.
func WithTrim(trim bool) EncodeOption {
	return func(s *encodeSettings) { s.trim = &trim }
}

// outgoing attaches the chosen settings to ctx as request metadata.
func outgoing(ctx context.Context, opts []EncodeOption) context.Context {
	var s encodeSettings
	for _, opt := range opts {
		opt(&s)
	}
	var kv []string
	if s.legacy != nil {
		nibble := "strict"
		if *s.legacy {
			nibble = "legacy"
		}
		kv = append(kv, nibbleMetadataKey, nibble)
	}
	if s.trim != nil {
		kv = append(kv, trimMetadataKey, strconv.FormatBool(*s.trim))
	}
	if len(kv) == 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, kv...)
}

// callOptions overlays the decoding choices found in the incoming metadata
// of ctx on the server defaults.
func (s *Server) callOptions(ctx context.Context) (hexcodec.Options, error) {
	opts := s.opts
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return opts, nil
	}
	if vals := md.Get(nibbleMetadataKey); len(vals) > 0 {
		switch vals[len(vals)-1] {
		case "strict":
			opts.Nibble = hexcodec.Nibble
		case "legacy":
			opts.Nibble = hexcodec.LegacyNibble
		default:
			return opts, status.Errorf(codes.InvalidArgument, "%s must be strict or legacy, got %q", nibbleMetadataKey, vals[len(vals)-1])
		}
	}
	if vals := md.Get(trimMetadataKey); len(vals) > 0 {
		trim, err := strconv.ParseBool(vals[len(vals)-1])
		if err != nil {
			return opts, status.Errorf(codes.InvalidArgument, "%s must be a boolean, got %q", trimMetadataKey, vals[len(vals)-1])
		}
		opts.Trim = hexcodec.NoTrim
		if trim {
			opts.Trim = hexcodec.TrimTerminator
		}
	}
	return opts, nil
}
