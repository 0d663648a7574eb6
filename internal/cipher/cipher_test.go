package cipher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/RowanDark/hexcrack/internal/hexcodec"
)

const (
	mushroomHex = "49276d206b696c6c696e6720796f757220627261696e206c696b65206120706f69736f6e6f7573206d757368726f6f6d"
	mushroomB64 = "SSdtIGtpbGxpbmcgeW91ciBicmFpbiBsaWtlIGEgcG9pc29ub3VzIG11c2hyb29t"
	cookingHex  = "1b37373331363f78151b7f2b783431333d78397828372d363c78373e783a393b3736"
	cookingText = "Cooking MC's like a pound of bacon"
)

func TestOperations(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		input    string
		params   map[string]interface{}
		expected string
	}{
		{"hex to base64", "hex_to_base64", mushroomHex, nil, mushroomB64},
		{"hex to base64 trims newline", "hex_to_base64", mushroomHex + "\n", nil, mushroomB64},
		{"hex to base64 legacy", "hex_to_base64", "0g", map[string]interface{}{"legacy": true}, "EA=="},
		{"base64 to hex", "base64_to_hex", mushroomB64, nil, mushroomHex},
		{"hex decode", "hex_decode", "48656c6c6f\n", nil, "Hello"},
		{"hex encode", "hex_encode", "Hello", nil, "48656c6c6f"},
		{"fixed xor", "fixed_xor", "1c0111001f010100061a024b53535009181c",
			map[string]interface{}{"key": "686974207468652062756c6c277320657965"},
			"746865206b696420646f6e277420706c6179"},
		{"single byte xor float key", "single_byte_xor", "AB", map[string]interface{}{"key": float64(1)}, "@C"},
		{"single byte xor string key", "single_byte_xor", "AB", map[string]interface{}{"key": "0x01"}, "@C"},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, ok := GetOperation(tt.op)
			if !ok {
				t.Fatalf("operation %s not registered", tt.op)
			}
			got, err := op.Execute(ctx, []byte(tt.input), tt.params)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, string(got))
			}
		})
	}
}

func TestOperationErrors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		op     string
		input  string
		params map[string]interface{}
		is     error
	}{
		{"invalid hex", "hex_to_base64", "zz", nil, hexcodec.ErrInvalidHexCharacter},
		{"length mismatch", "fixed_xor", "abcd", map[string]interface{}{"key": "ab"}, hexcodec.ErrLengthMismatch},
		{"missing key", "single_byte_xor", "AB", nil, nil},
		{"key out of range", "single_byte_xor", "AB", map[string]interface{}{"key": 256}, nil},
		{"fractional key", "single_byte_xor", "AB", map[string]interface{}{"key": 1.5}, nil},
		{"bad bool", "hex_to_base64", "4d", map[string]interface{}{"trim": 3}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, _ := GetOperation(tt.op)
			_, err := op.Execute(ctx, []byte(tt.input), tt.params)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Fatalf("expected %v, got %v", tt.is, err)
			}
		})
	}
}

func TestCrackOperationLeavesInputIntact(t *testing.T) {
	ctx := context.Background()
	decode, _ := GetOperation("hex_decode")
	crack, _ := GetOperation("crack_single_byte_xor")
	ciphertext, err := decode.Execute(ctx, []byte(cookingHex), nil)
	if err != nil {
		t.Fatalf("hex_decode: %v", err)
	}
	before := string(ciphertext)
	plain, err := crack.Execute(ctx, ciphertext, nil)
	if err != nil {
		t.Fatalf("crack: %v", err)
	}
	if string(plain) != cookingText {
		t.Fatalf("expected %q, got %q", cookingText, plain)
	}
	if string(ciphertext) != before {
		t.Fatalf("crack operation mutated its input")
	}
	if _, ok := crack.Reverse(); ok {
		t.Fatalf("crack operation should not be reversible")
	}
}

func TestPipelineExecuteAndReverse(t *testing.T) {
	ctx := context.Background()
	p := &Pipeline{
		Operations: []OperationConfig{
			{Name: "hex_decode"},
			{Name: "single_byte_xor", Parameters: map[string]interface{}{"key": 88}},
		},
		Reversible: true,
	}
	plain, err := p.Execute(ctx, []byte(cookingHex))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if string(plain) != cookingText {
		t.Fatalf("expected %q, got %q", cookingText, plain)
	}

	reversed, err := p.Reverse()
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if reversed.Operations[0].Name != "single_byte_xor" || reversed.Operations[1].Name != "hex_encode" {
		t.Fatalf("unexpected reversed steps %+v", reversed.Operations)
	}
	back, err := reversed.Execute(ctx, plain)
	if err != nil {
		t.Fatalf("reversed Execute: %v", err)
	}
	if string(back) != cookingHex {
		t.Fatalf("expected %q, got %q", cookingHex, back)
	}
}

func TestPipelineErrors(t *testing.T) {
	ctx := context.Background()
	unknown := &Pipeline{Operations: []OperationConfig{{Name: "rot13"}}}
	if _, err := unknown.Execute(ctx, nil); err == nil {
		t.Fatal("expected unknown operation error")
	}

	irreversible := &Pipeline{Operations: []OperationConfig{{Name: "crack_single_byte_xor"}}, Reversible: true}
	if _, err := irreversible.Reverse(); err == nil {
		t.Fatal("expected reverse to fail for crack step")
	}
	if _, err := (&Pipeline{}).Reverse(); err == nil {
		t.Fatal("expected reverse to fail for non-reversible pipeline")
	}

	failing := &Pipeline{Operations: []OperationConfig{{Name: "hex_decode"}}}
	if _, err := failing.Execute(ctx, []byte("xx")); !errors.Is(err, hexcodec.ErrInvalidHexCharacter) {
		t.Fatalf("expected wrapped decode error, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	op := &HexEncodeOp{BaseOperation{NameValue: "mock", TypeValue: OperationTypeEncode}}
	if err := r.Register(op); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(op); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if err := r.Register(nil); err == nil {
		t.Fatal("expected nil registration to fail")
	}
	if err := r.Register(&HexEncodeOp{}); err == nil {
		t.Fatal("expected empty name to fail")
	}
	if _, ok := r.Get("mock"); !ok {
		t.Fatal("expected mock to be registered")
	}
	r.Unregister("mock")
	if _, ok := r.Get("mock"); ok {
		t.Fatal("expected mock to be removed")
	}
}

func TestListOperationsSorted(t *testing.T) {
	ops := ListOperations()
	if len(ops) != 7 {
		t.Fatalf("expected 7 operations, got %d", len(ops))
	}
	for i := 1; i < len(ops); i++ {
		if ops[i-1].Name() >= ops[i].Name() {
			t.Fatalf("operations not sorted: %s before %s", ops[i-1].Name(), ops[i].Name())
		}
	}
	xor := ListOperationsByType(OperationTypeXOR)
	if len(xor) != 2 || xor[0].Name() != "fixed_xor" || xor[1].Name() != "single_byte_xor" {
		t.Fatalf("unexpected xor operations %v", xor)
	}
}

func TestRecipeManagerPersistence(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "recipes")
	rm := NewRecipeManager(dir)

	recipe := &Recipe{
		Name:        "xor 88",
		Description: "Undo a single byte XOR with X",
		Tags:        []string{"XOR"},
		Pipeline: Pipeline{Operations: []OperationConfig{
			{Name: "hex_decode"},
			{Name: "single_byte_xor", Parameters: map[string]interface{}{"key": 88}},
		}},
	}
	if err := rm.SaveRecipe(recipe); err != nil {
		t.Fatalf("SaveRecipe: %v", err)
	}
	if recipe.CreatedAt == "" || recipe.UpdatedAt == "" {
		t.Fatal("expected timestamps to be set")
	}
	if _, err := os.Stat(filepath.Join(dir, "xor_88.json")); err != nil {
		t.Fatalf("expected recipe file: %v", err)
	}

	loaded := NewRecipeManager(dir)
	if err := loaded.LoadRecipes(); err != nil {
		t.Fatalf("LoadRecipes: %v", err)
	}
	out, err := loaded.Run(context.Background(), "xor 88", []byte(cookingHex))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(out) != cookingText {
		t.Fatalf("expected %q, got %q", cookingText, out)
	}

	if got := loaded.SearchRecipes("xor"); len(got) != 2 {
		t.Fatalf("expected crack-hex and xor 88 to match, got %d", len(got))
	}

	if err := loaded.DeleteRecipe("xor 88"); err != nil {
		t.Fatalf("DeleteRecipe: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "xor_88.json")); !os.IsNotExist(err) {
		t.Fatalf("expected recipe file to be removed, got %v", err)
	}
	if err := loaded.DeleteRecipe("xor 88"); !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("expected ErrRecipeNotFound, got %v", err)
	}
}

func TestRecipeManagerValidation(t *testing.T) {
	rm := NewRecipeManager("")
	if err := rm.SaveRecipe(&Recipe{}); err == nil {
		t.Fatal("expected empty name to fail")
	}
	if err := rm.SaveRecipe(&Recipe{Name: "empty"}); err == nil {
		t.Fatal("expected empty pipeline to fail")
	}
	bad := &Recipe{Name: "bad", Pipeline: Pipeline{Operations: []OperationConfig{{Name: "nope"}}}}
	if err := rm.SaveRecipe(bad); err == nil {
		t.Fatal("expected unknown operation to fail")
	}
	if err := rm.LoadRecipes(); err != nil {
		t.Fatalf("LoadRecipes without store: %v", err)
	}
}

func TestBuiltinCrackRecipe(t *testing.T) {
	rm := NewRecipeManager("")
	out, err := rm.Run(context.Background(), "crack-hex", []byte(cookingHex))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(out) != cookingText {
		t.Fatalf("expected %q, got %q", cookingText, out)
	}
	if _, err := rm.Run(context.Background(), "missing", nil); !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("expected ErrRecipeNotFound, got %v", err)
	}
}

func TestLineDetector(t *testing.T) {
	d := NewLineDetector()
	d.Limit = 1
	input := []byte("00\n" + cookingHex + "\n\n")
	results, err := d.Detect(context.Background(), input)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Line != 2 || r.Key != 'X' || string(r.Plaintext) != cookingText {
		t.Fatalf("unexpected result %+v", r)
	}
	if r.Confidence <= 0.5 || r.Confidence > 1 {
		t.Fatalf("unexpected confidence %f", r.Confidence)
	}
	if _, err := d.Detect(context.Background(), []byte("  \n")); err == nil {
		t.Fatal("expected empty input error")
	}
}
