package codecsvc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/RowanDark/hexcrack/internal/cipher"
	"github.com/RowanDark/hexcrack/internal/hexcodec"
	"github.com/RowanDark/hexcrack/internal/xorcrack"
)

// Client is a typed wrapper around a Codec service connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// EncodeBase64 converts hex as one final window. opts override the
// server's decoding defaults for this call.
func (c *Client) EncodeBase64(ctx context.Context, hex string, opts ...EncodeOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(outgoing(ctx, opts), methodPath("EncodeBase64"), wrapperspb.String(hex), out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

func (c *Client) FixedXOR(ctx context.Context, a, b string) (string, error) {
	in, err := structpb.NewStruct(map[string]any{"a": a, "b": b})
	if err != nil {
		return "", err
	}
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, methodPath("FixedXOR"), in, out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

func (c *Client) Crack(ctx context.Context, hex string) (xorcrack.Candidate, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodPath("Crack"), wrapperspb.String(hex), out); err != nil {
		return xorcrack.Candidate{}, err
	}
	fields := out.GetFields()
	plaintext, err := hexcodec.DecodeBytes(fields["plaintext_hex"].GetStringValue())
	if err != nil {
		return xorcrack.Candidate{}, fmt.Errorf("decode plaintext: %w", err)
	}
	return xorcrack.Candidate{
		Key:       byte(fields["key"].GetNumberValue()),
		Score:     int(fields["score"].GetNumberValue()),
		Plaintext: plaintext,
	}, nil
}

// Detect ranks lines remotely. A positive limit caps the result count.
func (c *Client) Detect(ctx context.Context, lines []string, limit int) ([]cipher.DetectionResult, error) {
	list := make([]any, len(lines))
	for i, line := range lines {
		list[i] = line
	}
	fields := map[string]any{"lines": list}
	if limit > 0 {
		fields["limit"] = limit
	}
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodPath("Detect"), in, out); err != nil {
		return nil, err
	}

	values := out.GetFields()["results"].GetListValue().GetValues()
	results := make([]cipher.DetectionResult, 0, len(values))
	for _, v := range values {
		r := v.GetStructValue().GetFields()
		plaintext, err := hexcodec.DecodeBytes(r["plaintext_hex"].GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("decode plaintext: %w", err)
		}
		results = append(results, cipher.DetectionResult{
			Encoding:   "single-byte-xor",
			Operation:  "single_byte_xor",
			Confidence: r["confidence"].GetNumberValue(),
			Line:       int(r["line"].GetNumberValue()),
			Key:        byte(r["key"].GetNumberValue()),
			Score:      int(r["score"].GetNumberValue()),
			Plaintext:  plaintext,
		})
	}
	return results, nil
}

// EncodeStream sends r to the server in windows of size bytes and writes the
// returned Base64 fragments to w. It returns the number of bytes written.
// A server error is returned at once, even while r is still blocked in a
// read; the sending goroutine then exits when that read returns.
func (c *Client) EncodeStream(ctx context.Context, r io.Reader, w io.Writer, size int, opts ...EncodeOption) (int64, error) {
	ctx, cancel := context.WithCancel(outgoing(ctx, opts))
	defer cancel()

	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], methodPath("EncodeStream"))
	if err != nil {
		return 0, err
	}

	sendErr := make(chan error, 1)
	go func() {
		err := sendWindows(stream, hexcodec.NewWindowReader(r, size))
		// Publish before cancelling so the receive loop sees the cause.
		sendErr <- err
		if err != nil {
			cancel()
		}
	}()

	var written int64
	for {
		frag := new(wrapperspb.StringValue)
		err := stream.RecvMsg(frag)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			cancel()
			// The sender fails first when the upstream read broke; prefer
			// that cause over the resulting cancellation.
			select {
			case serr := <-sendErr:
				if errors.Is(serr, hexcodec.ErrUpstreamIO) {
					return written, serr
				}
			default:
			}
			return written, err
		}
		n, err := io.WriteString(w, frag.GetValue())
		written += int64(n)
		if err != nil {
			cancel()
			return written, fmt.Errorf("write base64 fragment: %w", err)
		}
	}
	return written, <-sendErr
}

func sendWindows(stream grpc.ClientStream, windows *hexcodec.WindowReader) error {
	for {
		win, err := windows.Next()
		if errors.Is(err, io.EOF) {
			return stream.CloseSend()
		}
		if err != nil {
			return err
		}
		// SendMsg returns io.EOF once the server has ended the call; the
		// real status is then reported by RecvMsg.
		if err := stream.SendMsg(wrapperspb.Bytes(bytes.Clone(win.Data))); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
