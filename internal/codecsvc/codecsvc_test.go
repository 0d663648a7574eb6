package codecsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/RowanDark/hexcrack/internal/hexcodec"
	"github.com/RowanDark/hexcrack/internal/logging"
)

const (
	mushroomHex = "49276d206b696c6c696e6720796f757220627261696e206c696b65206120706f69736f6e6f7573206d757368726f6f6d"
	mushroomB64 = "SSdtIGtpbGxpbmcgeW91ciBicmFpbiBsaWtlIGEgcG9pc29ub3VzIG11c2hyb29t"
	cookingHex  = "1b37373331363f78151b7f2b783431333d78397828372d363c78373e783a393b3736"
	cookingText = "Cooking MC's like a pound of bacon"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// startServer serves a codec service over an in-memory listener and returns
// a client connected to it.
func startServer(t *testing.T, opts hexcodec.Options) (*Client, *syncBuffer) {
	t.Helper()
	events := &syncBuffer{}
	logger := logging.MustNew("codecsvc", logging.WithoutStderr(), logging.WithWriter(events))
	srv := NewServer(opts, WithLogger(logger))

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- Serve(ctx, lis, srv, 4)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("Serve returned error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("server did not stop")
		}
	})
	return NewClient(conn), events
}

func TestEncodeBase64(t *testing.T) {
	client, events := startServer(t, hexcodec.Options{})
	ctx := context.Background()

	got, err := client.EncodeBase64(ctx, mushroomHex+"\n")
	if err != nil {
		t.Fatalf("EncodeBase64: %v", err)
	}
	if got != mushroomB64 {
		t.Fatalf("expected %q, got %q", mushroomB64, got)
	}

	_, err = client.EncodeBase64(ctx, "4d6z")
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if !strings.Contains(status.Convert(err).Message(), "offset 3") {
		t.Fatalf("expected offset in message, got %q", status.Convert(err).Message())
	}

	if !strings.Contains(events.String(), `"event_type":"rpc_call"`) {
		t.Fatalf("expected rpc_call events, got %s", events.String())
	}
}

func TestFixedXOR(t *testing.T) {
	client, _ := startServer(t, hexcodec.Options{})
	ctx := context.Background()

	got, err := client.FixedXOR(ctx, "1c0111001f010100061a024b53535009181c", "686974207468652062756c6c277320657965")
	if err != nil {
		t.Fatalf("FixedXOR: %v", err)
	}
	if got != "746865206b696420646f6e277420706c6179" {
		t.Fatalf("unexpected xor %q", got)
	}

	if _, err := client.FixedXOR(ctx, "abcd", "ab"); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument for mismatch, got %v", err)
	}
}

func TestCrack(t *testing.T) {
	client, events := startServer(t, hexcodec.Options{})

	c, err := client.Crack(context.Background(), cookingHex)
	if err != nil {
		t.Fatalf("Crack: %v", err)
	}
	if c.Key != 'X' {
		t.Fatalf("expected key 'X', got %#02x", c.Key)
	}
	if string(c.Plaintext) != cookingText {
		t.Fatalf("expected %q, got %q", cookingText, c.Plaintext)
	}
	if c.Score <= 0 {
		t.Fatalf("expected positive score, got %d", c.Score)
	}

	var sawResult bool
	for _, line := range strings.Split(strings.TrimSpace(events.String()), "\n") {
		var e logging.Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("decode event %q: %v", line, err)
		}
		if e.EventType == logging.EventCrackResult {
			sawResult = true
		}
	}
	if !sawResult {
		t.Fatalf("expected crack_result event")
	}
}

func TestDetect(t *testing.T) {
	client, _ := startServer(t, hexcodec.Options{})
	ctx := context.Background()

	results, err := client.Detect(ctx, []string{"0000", cookingHex, ""}, 0)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Line != 2 || results[0].Key != 'X' || string(results[0].Plaintext) != cookingText {
		t.Fatalf("unexpected top result %+v", results[0])
	}

	limited, err := client.Detect(ctx, []string{"0000", cookingHex}, 1)
	if err != nil {
		t.Fatalf("Detect with limit: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d results", len(limited))
	}

	if _, err := client.Detect(ctx, []string{"zz"}, 0); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if _, err := client.Detect(ctx, nil, 0); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument for empty input, got %v", err)
	}
}

func TestRequestValidation(t *testing.T) {
	srv := NewServer(hexcodec.Options{}, WithLogger(logging.Nop()))
	ctx := context.Background()

	missing, _ := structpb.NewStruct(map[string]any{"a": "00"})
	if _, err := srv.FixedXOR(ctx, missing); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected missing b to be rejected, got %v", err)
	}
	wrongType, _ := structpb.NewStruct(map[string]any{"a": "00", "b": 7})
	if _, err := srv.FixedXOR(ctx, wrongType); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected numeric b to be rejected, got %v", err)
	}
	notList, _ := structpb.NewStruct(map[string]any{"lines": "00"})
	if _, err := srv.Detect(ctx, notList); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected non-list lines to be rejected, got %v", err)
	}
	if _, err := srv.EncodeBase64(ctx, nil); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected nil request to be rejected, got %v", err)
	}
	if _, err := srv.Crack(ctx, wrapperspb.String("0")); err != nil {
		t.Fatalf("expected odd-length ciphertext to truncate, got %v", err)
	}
}

func TestEncodeStream(t *testing.T) {
	client, _ := startServer(t, hexcodec.Options{Trim: hexcodec.NoTrim})
	input := mushroomHex + "4d616e"

	for _, size := range []int{1, 5, 6, 7, 96, 768} {
		var out bytes.Buffer
		n, err := client.EncodeStream(context.Background(), strings.NewReader(input), &out, size)
		if err != nil {
			t.Fatalf("size %d: EncodeStream: %v", size, err)
		}
		want := mushroomB64 + "TWFu"
		if out.String() != want {
			t.Fatalf("size %d: expected %q, got %q", size, want, out.String())
		}
		if n != int64(len(want)) {
			t.Fatalf("size %d: expected %d bytes written, got %d", size, len(want), n)
		}
	}
}

func TestEncodeStreamEmptyInput(t *testing.T) {
	client, _ := startServer(t, hexcodec.Options{})
	var out bytes.Buffer
	n, err := client.EncodeStream(context.Background(), strings.NewReader(""), &out, 6)
	if err != nil {
		t.Fatalf("EncodeStream: %v", err)
	}
	if n != 0 || out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
}

func TestEncodeStreamErrors(t *testing.T) {
	client, _ := startServer(t, hexcodec.Options{Trim: hexcodec.NoTrim})

	var out bytes.Buffer
	_, err := client.EncodeStream(context.Background(), strings.NewReader("4d616e4d61zz"), &out, 6)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if out.String() != "TWFu" {
		t.Fatalf("expected fragments before the bad window, got %q", out.String())
	}

	_, err = client.EncodeStream(context.Background(), iotest.ErrReader(errors.New("disk gone")), &out, 6)
	if !errors.Is(err, hexcodec.ErrUpstreamIO) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestEncodeStreamReportsServerErrorWhileReadBlocks(t *testing.T) {
	client, _ := startServer(t, hexcodec.Options{Trim: hexcodec.NoTrim})

	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	go func() {
		// Two windows, then the source stalls without closing.
		_, _ = pw.Write([]byte("zzzzzz4d616e"))
	}()

	done := make(chan error, 1)
	go func() {
		var out bytes.Buffer
		_, err := client.EncodeStream(context.Background(), pr, &out, 6)
		done <- err
	}()

	select {
	case err := <-done:
		if status.Code(err) != codes.InvalidArgument {
			t.Fatalf("expected invalid argument, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("EncodeStream did not return after the server rejected the first window")
	}
}

func TestEncodeOptionsOverrideServerDefaults(t *testing.T) {
	client, _ := startServer(t, hexcodec.Options{})
	ctx := context.Background()

	if _, err := client.EncodeBase64(ctx, "0g"); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected strict server default to reject 'g', got %v", err)
	}
	got, err := client.EncodeBase64(ctx, "0g", WithLegacy(true))
	if err != nil {
		t.Fatalf("EncodeBase64 legacy: %v", err)
	}
	if got != "EA==" {
		t.Fatalf("expected EA==, got %q", got)
	}

	tests := []struct {
		name  string
		input string
		opts  []EncodeOption
		want  string
		code  codes.Code
	}{
		{"server defaults trim", "4d61.", nil, "TWE=", codes.OK},
		{"legacy decoder", "0g", []EncodeOption{WithLegacy(true)}, "EA==", codes.OK},
		{"trim disabled", "4d61.", []EncodeOption{WithLegacy(true), WithTrim(false)}, "", codes.InvalidArgument},
		{"strict requested", "0g", []EncodeOption{WithLegacy(false)}, "", codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			_, err := client.EncodeStream(ctx, strings.NewReader(tt.input), &out, 6, tt.opts...)
			if status.Code(err) != tt.code {
				t.Fatalf("expected %v, got %v", tt.code, err)
			}
			if out.String() != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, out.String())
			}
		})
	}

	bad := metadata.AppendToOutgoingContext(ctx, trimMetadataKey, "maybe")
	if _, err := client.EncodeBase64(bad, "4d61"); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected malformed trim metadata to be rejected, got %v", err)
	}
	bad = metadata.AppendToOutgoingContext(ctx, nibbleMetadataKey, "loose")
	var out bytes.Buffer
	if _, err := client.EncodeStream(bad, strings.NewReader("4d61"), &out, 6); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected malformed nibble metadata to be rejected, got %v", err)
	}
}

func TestSplitMethod(t *testing.T) {
	service, method := splitMethod("/hexcrack.v1.Codec/Crack")
	if service != ServiceName || method != "Crack" {
		t.Fatalf("unexpected split %q %q", service, method)
	}
	if got := streamType(&grpc.StreamServerInfo{IsClientStream: true, IsServerStream: true}); got != "bidi" {
		t.Fatalf("expected bidi, got %q", got)
	}
}
