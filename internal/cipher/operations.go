package cipher

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/RowanDark/hexcrack/internal/hexcodec"
	"github.com/RowanDark/hexcrack/internal/xorcrack"
)

// Hex / Base64

// HexToBase64Op re-encodes hex text as Base64. The input is treated as one
// final window. Parameters: "legacy" selects the permissive nibble decoder,
// "trim" (default true) drops a trailing non-alphanumeric byte.
type HexToBase64Op struct {
	BaseOperation
}

func (op *HexToBase64Op) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	legacy, err := boolParam(params, "legacy", false)
	if err != nil {
		return nil, err
	}
	trim, err := boolParam(params, "trim", true)
	if err != nil {
		return nil, err
	}
	opts := hexcodec.Options{Trim: hexcodec.NoTrim}
	if trim {
		opts.Trim = hexcodec.TrimTerminator
	}
	if legacy {
		opts.Nibble = hexcodec.LegacyNibble
	}
	out, err := hexcodec.NewTranscoder(opts).Window(nil, input, true)
	if err != nil {
		return nil, fmt.Errorf("hex to base64 failed: %w", err)
	}
	return out, nil
}

// Base64ToHexOp decodes standard Base64 and prints the bytes as hex.
type Base64ToHexOp struct {
	BaseOperation
}

func (op *Base64ToHexOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(input)))
	if err != nil {
		return nil, fmt.Errorf("base64 decode failed: %w", err)
	}
	return []byte(hexcodec.EncodeBytes(decoded)), nil
}

// HexDecodeOp converts hex text to raw bytes.
type HexDecodeOp struct {
	BaseOperation
}

func (op *HexDecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	decoded, err := hexcodec.DecodeBytes(strings.TrimSpace(string(input)))
	if err != nil {
		return nil, fmt.Errorf("hex decode failed: %w", err)
	}
	return decoded, nil
}

// HexEncodeOp converts raw bytes to lowercase hex text.
type HexEncodeOp struct {
	BaseOperation
}

func (op *HexEncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return []byte(hexcodec.EncodeBytes(input)), nil
}

// XOR

// FixedXOROp XORs hex text against the equal-length hex "key" parameter.
type FixedXOROp struct {
	BaseOperation
}

func (op *FixedXOROp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	key, ok := params["key"].(string)
	if !ok || key == "" {
		return nil, fmt.Errorf("fixed_xor requires a hex string \"key\" parameter")
	}
	out, err := hexcodec.XORHex(strings.TrimSpace(string(input)), strings.TrimSpace(key))
	if err != nil {
		return nil, fmt.Errorf("fixed xor failed: %w", err)
	}
	return []byte(out), nil
}

// SingleByteXOROp XORs every raw byte with the "key" parameter (0-255).
type SingleByteXOROp struct {
	BaseOperation
}

func (op *SingleByteXOROp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	key, err := keyParam(params)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(input))
	xorcrack.XORByte(out, input, key)
	return out, nil
}

// Analysis

// CrackSingleByteXOROp recovers the most English-looking plaintext from raw
// single-byte XOR ciphertext.
type CrackSingleByteXOROp struct {
	BaseOperation
}

func (op *CrackSingleByteXOROp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	buf := make([]byte, len(input))
	copy(buf, input)
	return xorcrack.Crack(buf, nil).Plaintext, nil
}

func boolParam(params map[string]interface{}, name string, def bool) (bool, error) {
	raw, ok := params[name]
	if !ok {
		return def, nil
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("parameter %q: %w", name, err)
		}
		return b, nil
	}
	return false, fmt.Errorf("parameter %q must be a boolean, got %T", name, raw)
}

// keyParam accepts JSON numbers, Go integers, or strings in any base
// strconv understands ("88", "0x58").
func keyParam(params map[string]interface{}) (byte, error) {
	raw, ok := params["key"]
	if !ok {
		return 0, fmt.Errorf("single_byte_xor requires a \"key\" parameter")
	}
	var n int64
	switch v := raw.(type) {
	case int:
		n = int64(v)
	case int64:
		n = v
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("key %v is not an integer", v)
		}
		n = int64(v)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 0, 64)
		if err != nil {
			return 0, fmt.Errorf("parse key %q: %w", v, err)
		}
		n = parsed
	default:
		return 0, fmt.Errorf("key must be a number, got %T", raw)
	}
	if n < 0 || n > 0xff {
		return 0, fmt.Errorf("key %d out of range 0-255", n)
	}
	return byte(n), nil
}

func init() {
	hexToBase64 := &HexToBase64Op{BaseOperation{
		NameValue:        "hex_to_base64",
		TypeValue:        OperationTypeEncode,
		DescriptionValue: "Re-encode hex text as Base64",
	}}
	base64ToHex := &Base64ToHexOp{BaseOperation{
		NameValue:        "base64_to_hex",
		TypeValue:        OperationTypeDecode,
		DescriptionValue: "Re-encode Base64 text as hex",
	}}
	hexToBase64.ReverseOp = base64ToHex
	base64ToHex.ReverseOp = hexToBase64

	hexDecode := &HexDecodeOp{BaseOperation{
		NameValue:        "hex_decode",
		TypeValue:        OperationTypeDecode,
		DescriptionValue: "Decode hex text to raw bytes",
	}}
	hexEncode := &HexEncodeOp{BaseOperation{
		NameValue:        "hex_encode",
		TypeValue:        OperationTypeEncode,
		DescriptionValue: "Encode raw bytes as hex text",
	}}
	hexDecode.ReverseOp = hexEncode
	hexEncode.ReverseOp = hexDecode

	fixedXOR := &FixedXOROp{BaseOperation{
		NameValue:        "fixed_xor",
		TypeValue:        OperationTypeXOR,
		DescriptionValue: "XOR hex text with an equal-length hex key",
	}}
	fixedXOR.ReverseOp = fixedXOR

	singleXOR := &SingleByteXOROp{BaseOperation{
		NameValue:        "single_byte_xor",
		TypeValue:        OperationTypeXOR,
		DescriptionValue: "XOR raw bytes with a single key byte",
	}}
	singleXOR.ReverseOp = singleXOR

	crack := &CrackSingleByteXOROp{BaseOperation{
		NameValue:        "crack_single_byte_xor",
		TypeValue:        OperationTypeAnalyze,
		DescriptionValue: "Recover English plaintext from single-byte XOR ciphertext",
	}}

	for _, op := range []Operation{hexToBase64, base64ToHex, hexDecode, hexEncode, fixedXOR, singleXOR, crack} {
		if err := RegisterOperation(op); err != nil {
			panic(err)
		}
	}
}
