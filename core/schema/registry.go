package schema

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownType is returned when a schema lookup fails.
var ErrUnknownType = errors.New("unknown entity type")

// Registry holds the entity schemas of one application.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*EntitySchema
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*EntitySchema)}
}

// Register adds schemas to the registry. Registering two schemas with the same
// key, or a schema without key or id attribute, is an error.
func (r *Registry) Register(schemas ...*EntitySchema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range schemas {
		if s == nil || s.Key == "" {
			return fmt.Errorf("schema must have a key")
		}
		if s.IDAttribute == "" {
			return fmt.Errorf("schema %s: id attribute must not be empty", s.Key)
		}
		if existing, ok := r.schemas[s.Key]; ok && existing != s {
			return fmt.Errorf("schema %s already registered", s.Key)
		}
		r.schemas[s.Key] = s
	}
	return nil
}

// MustRegister is Register that panics on error. Meant for static wiring.
func (r *Registry) MustRegister(schemas ...*EntitySchema) *Registry {
	if err := r.Register(schemas...); err != nil {
		panic(err)
	}
	return r
}

// Get returns the schema for key.
func (r *Registry) Get(key string) (*EntitySchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[key]
	return s, ok
}

// Lookup is Get returning ErrUnknownType when key is not registered.
func (r *Registry) Lookup(key string) (*EntitySchema, error) {
	s, ok := r.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, key)
	}
	return s, nil
}

// Keys returns the registered type names in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.schemas))
	for k := range r.schemas {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks that every relation points to a registered schema with a
// non-nil item, so misconfiguration fails at startup rather than mid-sync.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, key := range sortedKeys(r.schemas) {
		s := r.schemas[key]
		for _, field := range s.RelationFields() {
			target, _ := s.Relations[field].Entity()
			if target == nil {
				errs = append(errs, fmt.Errorf("schema %s: relation %s has no target", key, field))
				continue
			}
			if registered, ok := r.schemas[target.Key]; !ok || registered != target {
				errs = append(errs, fmt.Errorf("schema %s: relation %s targets unregistered type %s", key, field, target.Key))
			}
		}
	}
	return errors.Join(errs...)
}

// Referrers returns, for the target type, every (schema, field) pair that references it.
func (r *Registry) Referrers(target string) []Reference {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var refs []Reference
	for _, key := range sortedKeys(r.schemas) {
		s := r.schemas[key]
		for _, field := range s.RelationFields() {
			t, many := s.Relations[field].Entity()
			if t != nil && t.Key == target {
				refs = append(refs, Reference{From: s, Field: field, Many: many})
			}
		}
	}
	return refs
}

// Reference is one relation edge in the schema graph.
type Reference struct {
	From  *EntitySchema
	Field string
	Many  bool
}

func sortedKeys(m map[string]*EntitySchema) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
