package smartstate

import (
	"fmt"
	"maps"
	"slices"

	"github.com/comalice/smartstate/internal/primitives"
)

// Schema is the serializable description of a class.
type Schema = primitives.Schema

// Hook runs once per wave for a key whose value changed.
// WillSet hooks receive the open draft; DidSet hooks receive the wave snapshot.
// Returning an error aborts the transaction.
type Hook func(s *State, next, prev any, props Props) error

// Visibility controls whether a key shows up in enumerations and JSON.
type Visibility int

const (
	// DefaultVisibility makes stored keys enumerable and computed keys hidden.
	DefaultVisibility Visibility = iota
	// Enumerable always lists the key.
	Enumerable
	// Hidden never lists the key.
	Hidden
)

// Property declares a stored field.
type Property struct {
	Key string

	// Normalize rewrites an incoming value. prev is the committed value, or
	// next itself when nothing was committed yet.
	Normalize func(next, prev any, draft Props) any
	// Valid rejects a value by returning false; the transaction fails with
	// an *InvalidValueError.
	Valid func(value any, draft Props) bool
	// Equals treats structurally equal values as unchanged.
	Equals func(a, b any) bool

	// Mutates lists the keys Set and Update may write.
	Mutates []string
	// Set writes derived keys into update when the value changes.
	Set func(update Props, value any, draft Props)
	// Update writes derived keys into update from the whole draft (next)
	// and the committed state (prev).
	Update func(update, next, prev Props)

	WillSet Hook
	DidSet  Hook

	// ToJSON replaces the value in snapshots. A computed key with ToJSON
	// is serialized even when not enumerable.
	ToJSON   func(value any) any
	OmitJSON bool

	Visibility Visibility
}

// Computed declares a field derived from Deps through Get. With a Set hook
// the field is writable and Mutates defaults to Deps.
type Computed struct {
	Property
	Deps []string
	Get  func(p Props) any
}

// Compute is a free-standing node that derives several keys at once.
// ID defaults to "compute#N".
type Compute struct {
	ID      string
	Deps    []string
	Mutates []string
	Update  func(update, next, prev Props)
}

// Definition is the input to Define and Extend.
type Definition struct {
	Name       string
	Properties []Property
	Computed   []Computed
	Computes   []Compute
}

type fieldSpec struct {
	Property
	computed bool
	deps     []string
	get      func(p Props) any
}

func (f *fieldSpec) settable() bool {
	return !f.computed || f.Set != nil
}

// changed reports whether a wave sees next as a new value. Equals, when
// set, hides structurally equal replacements such as NaN for NaN.
func (f *fieldSpec) changed(next, prev any) bool {
	if identical(next, prev) {
		return false
	}
	return f.Equals == nil || next == nil || prev == nil || !f.Equals(next, prev)
}

// nodeSpec is the immutable part of a compute node; per-instance memos live
// on State at the same index.
type nodeSpec struct {
	key     string
	field   *fieldSpec
	compute *Compute
}

// Class is an immutable state type: its declared keys, hooks and the
// prepared compute graph shared by every instance.
type Class struct {
	name     string
	parent   *Class
	stored   []string
	computed []string
	keys     []string
	fields   map[string]*fieldSpec
	computes []Compute

	graph     *primitives.ComputeGraph
	nodes     []nodeSpec
	nodeIndex map[string]int

	enumerable []string
	jsonKeys   []string
}

// Define builds a class from def.
func Define(def Definition) (*Class, error) {
	return build(nil, def)
}

// MustDefine is like Define but panics on error. Intended for package-level
// class variables.
func MustDefine(def Definition) *Class {
	c, err := Define(def)
	if err != nil {
		panic(err)
	}
	return c
}

// Extend derives a subclass. Inherited keys, hooks and graph edges are kept
// and new declarations are layered on top.
func (c *Class) Extend(def Definition) (*Class, error) {
	return build(c, def)
}

func build(parent *Class, def Definition) (*Class, error) {
	c := &Class{
		name:      def.Name,
		parent:    parent,
		fields:    map[string]*fieldSpec{},
		nodeIndex: map[string]int{},
	}
	if parent != nil {
		if c.name == "" {
			c.name = parent.name
		}
		c.stored = slices.Clone(parent.stored)
		c.computed = slices.Clone(parent.computed)
		c.computes = slices.Clone(parent.computes)
		maps.Copy(c.fields, parent.fields)
		c.graph = parent.graph.Clone()
	} else {
		c.graph = primitives.NewComputeGraph()
	}

	claim := func(key string) error {
		if key == "" {
			return &NameConflictError{Class: c.name}
		}
		if _, dup := c.fields[key]; dup || c.graph.HasKey(key) {
			return &NameConflictError{Class: c.name, Key: key}
		}
		return nil
	}

	var added []*fieldSpec
	for _, p := range def.Properties {
		if err := claim(p.Key); err != nil {
			return nil, err
		}
		f := &fieldSpec{Property: p}
		c.fields[p.Key] = f
		c.stored = append(c.stored, p.Key)
		added = append(added, f)
	}
	for _, cp := range def.Computed {
		if err := claim(cp.Key); err != nil {
			return nil, err
		}
		if cp.Get == nil {
			return nil, fmt.Errorf("smartstate: class %q: computed %q has no getter", c.name, cp.Key)
		}
		f := &fieldSpec{Property: cp.Property, computed: true, deps: slices.Clone(cp.Deps), get: cp.Get}
		if f.Set != nil && f.Mutates == nil {
			f.Mutates = slices.Clone(cp.Deps)
		}
		c.fields[cp.Key] = f
		c.computed = append(c.computed, cp.Key)
		added = append(added, f)
	}
	c.keys = append(slices.Clone(c.stored), c.computed...)

	for _, f := range added {
		if !f.computed {
			c.graph.AddKey(f.Key)
		}
	}
	for _, f := range added {
		if f.computed {
			c.graph.AddKey(f.Key)
		}
	}
	for _, f := range added {
		if err := c.checkKeys(f.Key, f.deps, f.Mutates); err != nil {
			return nil, err
		}
		if f.computed {
			c.graph.AddDependees(f.Key, f.deps...)
		}
		if f.Set != nil || f.Update != nil {
			c.graph.AddDependers(f.Key, f.Mutates...)
		}
	}

	for _, cp := range def.Computes {
		if cp.ID == "" {
			cp.ID = fmt.Sprintf("compute#%d", len(c.computes))
		}
		if err := claim(cp.ID); err != nil {
			return nil, err
		}
		if cp.Update == nil {
			return nil, fmt.Errorf("smartstate: class %q: compute %q has no update", c.name, cp.ID)
		}
		if err := c.checkKeys(cp.ID, cp.Deps, cp.Mutates); err != nil {
			return nil, err
		}
		cp.Deps, cp.Mutates = slices.Clone(cp.Deps), slices.Clone(cp.Mutates)
		c.computes = append(c.computes, cp)
		c.graph.AddKey(cp.ID)
		c.graph.AddDependees(cp.ID, cp.Deps...)
		c.graph.AddDependers(cp.ID, cp.Mutates...)
	}

	c.graph.PrepareByComplexity()

	computes := make(map[string]*Compute, len(c.computes))
	for i := range c.computes {
		computes[c.computes[i].ID] = &c.computes[i]
	}
	for i, key := range c.graph.Keys() {
		c.nodeIndex[key] = i
		c.nodes = append(c.nodes, nodeSpec{key: key, field: c.fields[key], compute: computes[key]})
	}

	for _, key := range c.keys {
		f := c.fields[key]
		enumerable := f.Visibility == Enumerable || (f.Visibility == DefaultVisibility && (!f.computed || f.ToJSON != nil))
		if enumerable {
			c.enumerable = append(c.enumerable, key)
		}
		if (enumerable || f.ToJSON != nil) && !f.OmitJSON {
			c.jsonKeys = append(c.jsonKeys, key)
		}
	}
	return c, nil
}

func (c *Class) checkKeys(owner string, lists ...[]string) error {
	for _, list := range lists {
		for _, k := range list {
			if _, ok := c.fields[k]; !ok {
				return fmt.Errorf("%w: %q referenced by %q in class %q", ErrUnknownKey, k, owner, c.name)
			}
		}
	}
	return nil
}

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// Parent returns the class this one extends, or nil.
func (c *Class) Parent() *Class { return c.parent }

// Keys returns stored keys followed by computed keys, in declaration order.
func (c *Class) Keys() []string { return slices.Clone(c.keys) }

// StoredKeys returns the stored keys in declaration order.
func (c *Class) StoredKeys() []string { return slices.Clone(c.stored) }

// ComputedKeys returns the computed keys in declaration order.
func (c *Class) ComputedKeys() []string { return slices.Clone(c.computed) }

// EnumerableKeys returns the keys listed by enumeration.
func (c *Class) EnumerableKeys() []string { return slices.Clone(c.enumerable) }

// JSONKeys returns the keys included in snapshots.
func (c *Class) JSONKeys() []string { return slices.Clone(c.jsonKeys) }

// Has reports whether key is a declared field.
func (c *Class) Has(key string) bool {
	_, ok := c.fields[key]
	return ok
}

// Settable reports whether key accepts direct writes.
func (c *Class) Settable(key string) bool {
	f, ok := c.fields[key]
	return ok && f.settable()
}

// Order returns every graph key, compute nodes included, in evaluation order.
func (c *Class) Order() []string { return c.graph.Keys() }

// Schema describes the class in serializable form.
func (c *Class) Schema() *Schema {
	s := &Schema{Name: c.name, Order: c.graph.Keys()}
	enumerable := make(map[string]bool, len(c.enumerable))
	for _, k := range c.enumerable {
		enumerable[k] = true
	}
	jsonKeys := make(map[string]bool, len(c.jsonKeys))
	for _, k := range c.jsonKeys {
		jsonKeys[k] = true
	}
	for _, key := range c.keys {
		f := c.fields[key]
		kind := primitives.Stored
		if f.computed {
			kind = primitives.Derived
		}
		fs := primitives.NewFieldSchema(key, kind).WithDeps(f.deps...).WithMutates(f.Mutates...)
		fs.Settable = f.settable()
		fs.Enumerable = enumerable[key]
		fs.JSON = jsonKeys[key]
		fs.Complexity = c.graph.ComplexityOf(key)
		s.Fields = append(s.Fields, fs)
	}
	for _, cp := range c.computes {
		fs := primitives.NewFieldSchema(cp.ID, primitives.Effect).WithDeps(cp.Deps...).WithMutates(cp.Mutates...)
		fs.Complexity = c.graph.ComplexityOf(cp.ID)
		s.Fields = append(s.Fields, fs)
	}
	s.Version = primitives.ComputeVersion(s)
	return s
}
