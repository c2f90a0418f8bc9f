// Schema is the serializable description of a state class: its fields, how
// they depend on each other and the order the compute graph evaluates them in.
// Validation checks key uniqueness, that every dependency names a declared
// field and that the evaluation order covers each graph key exactly once.

package primitives

import (
	"errors"
	"fmt"
)

// FieldKind classifies a schema field.
type FieldKind string

const (
	// Stored fields hold plain values.
	Stored FieldKind = "stored"
	// Derived fields are computed from other fields through a getter.
	Derived FieldKind = "computed"
	// Effect entries are free compute nodes. They hold no value.
	Effect FieldKind = "compute"
)

// FieldSchema describes one field or free compute node.
type FieldSchema struct {
	Key        string    `json:"key" yaml:"key" toml:"key"`
	Kind       FieldKind `json:"kind" yaml:"kind" toml:"kind"`
	Deps       []string  `json:"deps,omitempty" yaml:"deps,omitempty" toml:"deps,omitempty"`
	Mutates    []string  `json:"mutates,omitempty" yaml:"mutates,omitempty" toml:"mutates,omitempty"`
	Settable   bool      `json:"settable" yaml:"settable" toml:"settable"`
	Enumerable bool      `json:"enumerable" yaml:"enumerable" toml:"enumerable"`
	JSON       bool      `json:"json" yaml:"json" toml:"json"`
	Complexity int       `json:"complexity" yaml:"complexity" toml:"complexity"`
}

// Schema describes a state class.
type Schema struct {
	Version string        `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	Name    string        `json:"name" yaml:"name" toml:"name"`
	Fields  []FieldSchema `json:"fields" yaml:"fields" toml:"fields"`
	Order   []string      `json:"order" yaml:"order" toml:"order"`
}

// NewFieldSchema returns a FieldSchema with the given key and kind.
func NewFieldSchema(key string, kind FieldKind) FieldSchema {
	return FieldSchema{Key: key, Kind: kind, Settable: kind == Stored}
}

// WithDeps sets the dependency list (fluent).
func (f FieldSchema) WithDeps(deps ...string) FieldSchema {
	f.Deps = deps
	return f
}

// WithMutates sets the keys a setter or compute node may write (fluent).
func (f FieldSchema) WithMutates(keys ...string) FieldSchema {
	f.Mutates = keys
	return f
}

// Field looks up a field by key.
func (s *Schema) Field(key string) (FieldSchema, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldSchema{}, false
}

// Keys returns the value-holding keys (stored and computed) in declaration order.
func (s *Schema) Keys() []string {
	var keys []string
	for _, f := range s.Fields {
		if f.Kind != Effect {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// Validate checks the schema for internal consistency:
// - non-empty name and keys
// - unique keys and known kinds
// - deps and mutates reference declared value keys
// - Order is a permutation of the field keys
func (s *Schema) Validate() error {
	if s.Name == "" {
		return errors.New("schema name is required")
	}
	seen := make(map[string]FieldKind, len(s.Fields))
	for i, f := range s.Fields {
		if f.Key == "" {
			return fmt.Errorf("field %d: key is required", i)
		}
		if _, dup := seen[f.Key]; dup {
			return fmt.Errorf("duplicate field %q", f.Key)
		}
		switch f.Kind {
		case Stored, Derived, Effect:
		default:
			return fmt.Errorf("field %q: unknown kind %q", f.Key, f.Kind)
		}
		seen[f.Key] = f.Kind
	}
	for _, f := range s.Fields {
		for _, d := range append(append([]string{}, f.Deps...), f.Mutates...) {
			kind, ok := seen[d]
			if !ok {
				return fmt.Errorf("field %q references unknown key %q", f.Key, d)
			}
			if kind == Effect {
				return fmt.Errorf("field %q references compute node %q", f.Key, d)
			}
		}
	}
	if len(s.Order) != len(s.Fields) {
		return fmt.Errorf("order has %d keys, want %d", len(s.Order), len(s.Fields))
	}
	ordered := make(map[string]bool, len(s.Order))
	for _, k := range s.Order {
		if _, ok := seen[k]; !ok || ordered[k] {
			return fmt.Errorf("order: invalid or repeated key %q", k)
		}
		ordered[k] = true
	}
	return nil
}
