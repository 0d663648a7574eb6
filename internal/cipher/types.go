// Package cipher exposes the hex codec and XOR cryptanalysis primitives as
// named operations that can be chained into pipelines and saved as recipes.
package cipher

import (
	"context"
	"fmt"
)

// OperationType defines the category of an operation.
type OperationType string

const (
	OperationTypeEncode  OperationType = "encode"
	OperationTypeDecode  OperationType = "decode"
	OperationTypeXOR     OperationType = "xor"
	OperationTypeAnalyze OperationType = "analyze"
)

// Operation transforms a byte slice.
type Operation interface {
	// Name returns the unique identifier for this operation
	Name() string

	// Type returns the category of this operation
	Type() OperationType

	// Description returns a human-readable description
	Description() string

	// Execute applies the operation to the input data
	Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error)

	// Reverse returns the inverse operation if available
	Reverse() (Operation, bool)
}

// OperationConfig names one pipeline step and its parameters.
type OperationConfig struct {
	Name       string                 `json:"name"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// Pipeline applies operations in order, feeding each output to the next.
type Pipeline struct {
	Operations []OperationConfig `json:"operations"`
	Reversible bool              `json:"reversible"`
}

// Execute runs the pipeline on the input data. The first failing step
// aborts the run.
func (p *Pipeline) Execute(ctx context.Context, input []byte) ([]byte, error) {
	result := input
	for i, opConfig := range p.Operations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		op, exists := GetOperation(opConfig.Name)
		if !exists {
			return nil, fmt.Errorf("unknown operation at step %d: %s", i, opConfig.Name)
		}
		next, err := op.Execute(ctx, result, opConfig.Parameters)
		if err != nil {
			return nil, fmt.Errorf("operation %s failed at step %d: %w", opConfig.Name, i, err)
		}
		result = next
	}
	return result, nil
}

// Reverse builds the inverse pipeline. Every step must have an inverse;
// parameters carry over so keyed XOR steps undo themselves.
func (p *Pipeline) Reverse() (*Pipeline, error) {
	if !p.Reversible {
		return nil, fmt.Errorf("pipeline is not reversible")
	}
	n := len(p.Operations)
	reversed := &Pipeline{Operations: make([]OperationConfig, n), Reversible: true}
	for i, opConfig := range p.Operations {
		op, exists := GetOperation(opConfig.Name)
		if !exists {
			return nil, fmt.Errorf("unknown operation: %s", opConfig.Name)
		}
		inverse, ok := op.Reverse()
		if !ok {
			return nil, fmt.Errorf("operation %s is not reversible", opConfig.Name)
		}
		reversed.Operations[n-1-i] = OperationConfig{Name: inverse.Name(), Parameters: opConfig.Parameters}
	}
	return reversed, nil
}

// Recipe is a named, reusable pipeline.
type Recipe struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Pipeline    Pipeline `json:"pipeline"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// DetectionResult describes one line that looks like single-byte XOR
// ciphertext.
type DetectionResult struct {
	Encoding   string  `json:"encoding"`
	Confidence float64 `json:"confidence"` // 0.0 to 1.0
	Reasoning  string  `json:"reasoning"`
	Operation  string  `json:"operation"`
	Line       int     `json:"line"`
	Key        byte    `json:"key"`
	Score      int     `json:"score"`
	Plaintext  []byte  `json:"plaintext"`
}

// Detector ranks inputs by how likely they are to be a known cipher.
type Detector interface {
	Detect(ctx context.Context, input []byte) ([]DetectionResult, error)
	SupportedEncodings() []string
}

// BaseOperation provides the descriptive half of Operation.
type BaseOperation struct {
	NameValue        string
	TypeValue        OperationType
	DescriptionValue string
	ReverseOp        Operation
}

func (b *BaseOperation) Name() string { return b.NameValue }

func (b *BaseOperation) Type() OperationType { return b.TypeValue }

func (b *BaseOperation) Description() string { return b.DescriptionValue }

func (b *BaseOperation) Reverse() (Operation, bool) {
	if b.ReverseOp == nil {
		return nil, false
	}
	return b.ReverseOp, true
}
