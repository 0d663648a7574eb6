package codecsvc

import (
	"context"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/RowanDark/hexcrack/internal/cipher"
	"github.com/RowanDark/hexcrack/internal/hexcodec"
	"github.com/RowanDark/hexcrack/internal/logging"
	"github.com/RowanDark/hexcrack/internal/xorcrack"
)

// Server implements CodecServer on top of hexcodec and xorcrack.
type Server struct {
	opts   hexcodec.Options
	table  *xorcrack.Table
	logger *logging.Logger
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger overrides the event logger used by the server.
func WithLogger(logger *logging.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTable replaces the English scoring table used by Crack and Detect.
func WithTable(table *xorcrack.Table) ServerOption {
	return func(s *Server) {
		if table != nil {
			s.table = table
		}
	}
}

// NewServer constructs a codec service encoding with opts.
func NewServer(opts hexcodec.Options, options ...ServerOption) *Server {
	srv := &Server{
		opts:   opts,
		table:  xorcrack.English(),
		logger: logging.MustNew("codecsvc"),
	}
	for _, opt := range options {
		opt(srv)
	}
	return srv
}

// Logger returns the server's event logger.
func (s *Server) Logger() *logging.Logger { return s.logger }

func (s *Server) EncodeBase64(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	opts, err := s.callOptions(ctx)
	if err != nil {
		return nil, err
	}
	out, err := hexcodec.EncodeStringWith(req.GetValue(), opts.Trim, opts.Nibble)
	if err != nil {
		return nil, s.fail("EncodeBase64", err)
	}
	return wrapperspb.String(out), nil
}

func (s *Server) FixedXOR(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	a, err := stringField(req, "a")
	if err != nil {
		return nil, err
	}
	b, err := stringField(req, "b")
	if err != nil {
		return nil, err
	}
	out, err := hexcodec.XORHex(a, b)
	if err != nil {
		return nil, s.fail("FixedXOR", err)
	}
	return wrapperspb.String(out), nil
}

func (s *Server) Crack(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	c, err := xorcrack.CrackHex(strings.TrimSpace(req.GetValue()), s.table)
	if err != nil {
		return nil, s.fail("Crack", err)
	}
	fields := map[string]any{
		"key":           int(c.Key),
		"score":         c.Score,
		"plaintext_hex": hexcodec.EncodeBytes(c.Plaintext),
	}
	if utf8.Valid(c.Plaintext) {
		fields["plaintext"] = string(c.Plaintext)
	}
	resp, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, s.fail("Crack", err)
	}
	_ = s.logger.Emit(logging.Event{
		EventType: logging.EventCrackResult,
		Operation: "Crack",
		Metadata:  map[string]any{"key": int(c.Key), "score": c.Score},
	})
	return resp, nil
}

func (s *Server) Detect(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	lines, err := listField(req, "lines")
	if err != nil {
		return nil, err
	}
	input := strings.Join(lines, "\n")
	if strings.TrimSpace(input) == "" {
		return nil, status.Error(codes.InvalidArgument, "lines must not be empty")
	}
	detector := &cipher.LineDetector{Table: s.table}
	if v, ok := req.GetFields()["limit"]; ok {
		detector.Limit = int(v.GetNumberValue())
	}

	found, err := detector.Detect(ctx, []byte(input))
	if err != nil {
		return nil, s.fail("Detect", err)
	}
	results := make([]any, 0, len(found))
	for _, r := range found {
		results = append(results, map[string]any{
			"line":          r.Line,
			"key":           int(r.Key),
			"score":         r.Score,
			"plaintext_hex": hexcodec.EncodeBytes(r.Plaintext),
			"confidence":    r.Confidence,
		})
	}
	resp, err := structpb.NewStruct(map[string]any{"results": results})
	if err != nil {
		return nil, s.fail("Detect", err)
	}
	_ = s.logger.Emit(logging.Event{
		EventType: logging.EventDetectResult,
		Operation: "Detect",
		Metadata:  map[string]any{"lines": len(lines), "results": len(results)},
	})
	return resp, nil
}

// EncodeStream treats every received message as one window. A window is
// only known to be the last one once the client half-closes, so each window
// is held until the next message (or EOF) arrives.
func (s *Server) EncodeStream(stream EncodeStreamServer) error {
	opts, err := s.callOptions(stream.Context())
	if err != nil {
		return err
	}
	tr := hexcodec.NewTranscoder(opts)
	var (
		out     []byte
		windows int
		read    int
	)

	pending, err := stream.Recv()
	if errors.Is(err, io.EOF) {
		s.streamDone(windows, read)
		return nil
	}
	if err != nil {
		return err
	}
	for {
		next, err := stream.Recv()
		last := errors.Is(err, io.EOF)
		if err != nil && !last {
			return err
		}

		window := pending.GetValue()
		out, err = tr.Window(out[:0], window, last)
		if err != nil {
			return s.fail("EncodeStream", err)
		}
		windows++
		read += len(window)
		if len(out) > 0 {
			if err := stream.Send(wrapperspb.String(string(out))); err != nil {
				return err
			}
		}
		if last {
			s.streamDone(windows, read)
			return nil
		}
		pending = next
	}
}

func (s *Server) streamDone(windows, read int) {
	_ = s.logger.Emit(logging.Event{
		EventType: logging.EventEncodeDone,
		Operation: "EncodeStream",
		Metadata:  map[string]any{"windows": windows, "bytes": read},
	})
}

// fail logs err and converts it into a gRPC status.
func (s *Server) fail(method string, err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, hexcodec.ErrInvalidHexCharacter),
		errors.Is(err, hexcodec.ErrLengthMismatch):
		code = codes.InvalidArgument
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		code = codes.Internal
	}
	_ = s.logger.Error(logging.EventDecodeError, method, err, map[string]any{"code": code.String()})
	if code == codes.Internal {
		return status.Error(code, strings.ToLower(method)+" failed")
	}
	return status.Error(code, err.Error())
}

func stringField(req *structpb.Struct, name string) (string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "%s must be a string", name)
	}
	return sv.StringValue, nil
}

func listField(req *structpb.Struct, name string) ([]string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	list := v.GetListValue()
	if list == nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be a list", name)
	}
	out := make([]string, 0, len(list.GetValues()))
	for i, item := range list.GetValues() {
		sv, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "%s[%d] must be a string", name, i)
		}
		out = append(out, sv.StringValue)
	}
	return out, nil
}
