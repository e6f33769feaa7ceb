package schema

import (
	"fmt"
	"sync"

	"orvex/internal/domain"
)

// Registry holds the machine-readable JSON-Schemas plus their literal
// prompt descriptions, keyed by schema name.
type Registry struct {
	mu       sync.RWMutex
	schemas  map[string]map[string]any
	literals map[string]string
}

// NewRegistry creates a registry pre-loaded with order_v1.
func NewRegistry() *Registry {
	r := &Registry{
		schemas:  map[string]map[string]any{},
		literals: map[string]string{},
	}
	r.Register(OrderV1, buildOrderV1Schema(), orderV1Literal)
	return r
}

// Register adds or replaces a named schema.
func (r *Registry) Register(name string, jsonSchema map[string]any, literal string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[name] = jsonSchema
	r.literals[name] = literal
}

// JSONSchema returns the machine-readable schema for name.
func (r *Registry) JSONSchema(name string) (map[string]any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSchemaNotFound, name)
	}
	return s, nil
}

// Literal returns the prompt description for name.
func (r *Registry) Literal(name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.literals[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrSchemaNotFound, name)
	}
	return l, nil
}
