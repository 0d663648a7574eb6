package cipher

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is a concurrency-safe set of operations keyed by name.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Operation)}
}

// Register adds op. Names must be non-empty and unique.
func (r *Registry) Register(op Operation) error {
	if op == nil {
		return fmt.Errorf("cannot register nil operation")
	}
	name := op.Name()
	if name == "" {
		return fmt.Errorf("operation name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ops[name]; exists {
		return fmt.Errorf("operation %s is already registered", name)
	}
	r.ops[name] = op
	return nil
}

// Get looks up an operation by name.
func (r *Registry) Get(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// List returns operations matching keep, sorted by name. A nil keep
// matches everything.
func (r *Registry) List(keep func(Operation) bool) []Operation {
	r.mu.RLock()
	ops := make([]Operation, 0, len(r.ops))
	for _, op := range r.ops {
		if keep == nil || keep(op) {
			ops = append(ops, op)
		}
	}
	r.mu.RUnlock()

	sort.Slice(ops, func(i, j int) bool { return ops[i].Name() < ops[j].Name() })
	return ops
}

// Unregister removes an operation.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ops, name)
}

var defaultRegistry = NewRegistry()

// RegisterOperation adds an operation to the default registry.
func RegisterOperation(op Operation) error { return defaultRegistry.Register(op) }

// GetOperation retrieves an operation from the default registry.
func GetOperation(name string) (Operation, bool) { return defaultRegistry.Get(name) }

// ListOperations returns every registered operation sorted by name.
func ListOperations() []Operation { return defaultRegistry.List(nil) }

// ListOperationsByType returns registered operations of one category.
func ListOperationsByType(opType OperationType) []Operation {
	return defaultRegistry.List(func(op Operation) bool { return op.Type() == opType })
}
