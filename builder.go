package smartstate

// ClassBuilder provides a fluent API for assembling a Definition.
//
//	b := NewClassBuilder("rect")
//	b.Property("left")
//	b.Property("width")
//	b.Computed("right", "left", "width").Get(func(p Props) any { ... })
//	rect, err := b.Build()
type ClassBuilder struct {
	name     string
	fields   []*FieldBuilder
	byKey    map[string]*FieldBuilder
	computes []*ComputeBuilder
}

// FieldBuilder configures one stored or computed field.
type FieldBuilder struct {
	b        *ClassBuilder
	computed bool
	def      Computed
}

// ComputeBuilder configures one free compute node.
type ComputeBuilder struct {
	def Compute
}

// NewClassBuilder creates a builder for a class called name.
func NewClassBuilder(name string) *ClassBuilder {
	return &ClassBuilder{name: name, byKey: map[string]*FieldBuilder{}}
}

// Property declares, or returns the existing builder for, a stored field.
func (b *ClassBuilder) Property(key string) *FieldBuilder {
	return b.field(key, false)
}

// Computed declares, or returns the existing builder for, a computed field
// reading deps.
func (b *ClassBuilder) Computed(key string, deps ...string) *FieldBuilder {
	fb := b.field(key, true)
	if len(deps) > 0 {
		fb.def.Deps = deps
	}
	return fb
}

func (b *ClassBuilder) field(key string, computed bool) *FieldBuilder {
	if fb, ok := b.byKey[key]; ok {
		fb.computed = fb.computed || computed
		return fb
	}
	fb := &FieldBuilder{b: b, computed: computed}
	fb.def.Key = key
	b.fields = append(b.fields, fb)
	b.byKey[key] = fb
	return fb
}

// Compute adds a free compute node. An empty id gets a generated one.
func (b *ClassBuilder) Compute(id string) *ComputeBuilder {
	cb := &ComputeBuilder{def: Compute{ID: id}}
	b.computes = append(b.computes, cb)
	return cb
}

// Definition returns the assembled declarations.
func (b *ClassBuilder) Definition() Definition {
	def := Definition{Name: b.name}
	for _, fb := range b.fields {
		if fb.computed {
			def.Computed = append(def.Computed, fb.def)
		} else {
			def.Properties = append(def.Properties, fb.def.Property)
		}
	}
	for _, cb := range b.computes {
		def.Computes = append(def.Computes, cb.def)
	}
	return def
}

// Build defines the class.
func (b *ClassBuilder) Build() (*Class, error) {
	return Define(b.Definition())
}

// Extend defines the class as a subclass of parent.
func (b *ClassBuilder) Extend(parent *Class) (*Class, error) {
	return parent.Extend(b.Definition())
}

// FieldBuilder fluent methods

// Get sets the getter of a computed field.
func (fb *FieldBuilder) Get(fn func(p Props) any) *FieldBuilder {
	fb.def.Get = fn
	return fb
}

// Deps replaces the dependency list of a computed field.
func (fb *FieldBuilder) Deps(keys ...string) *FieldBuilder {
	fb.def.Deps = keys
	return fb
}

// Normalize sets the normalize hook.
func (fb *FieldBuilder) Normalize(fn func(next, prev any, draft Props) any) *FieldBuilder {
	fb.def.Normalize = fn
	return fb
}

// Valid sets the validation hook.
func (fb *FieldBuilder) Valid(fn func(value any, draft Props) bool) *FieldBuilder {
	fb.def.Valid = fn
	return fb
}

// Equals sets the structural equality hook.
func (fb *FieldBuilder) Equals(fn func(a, b any) bool) *FieldBuilder {
	fb.def.Equals = fn
	return fb
}

// Mutates lists the keys Set and Update may write.
func (fb *FieldBuilder) Mutates(keys ...string) *FieldBuilder {
	fb.def.Mutates = keys
	return fb
}

// Set sets the setter. On a computed field it makes the field writable.
func (fb *FieldBuilder) Set(fn func(update Props, value any, draft Props)) *FieldBuilder {
	fb.def.Set = fn
	return fb
}

// Update sets the update hook.
func (fb *FieldBuilder) Update(fn func(update, next, prev Props)) *FieldBuilder {
	fb.def.Update = fn
	return fb
}

// WillSet sets the hook fired before DidSet hooks of a wave.
func (fb *FieldBuilder) WillSet(h Hook) *FieldBuilder {
	fb.def.WillSet = h
	return fb
}

// DidSet sets the hook fired after every WillSet of a wave.
func (fb *FieldBuilder) DidSet(h Hook) *FieldBuilder {
	fb.def.DidSet = h
	return fb
}

// ToJSON sets the snapshot serializer.
func (fb *FieldBuilder) ToJSON(fn func(value any) any) *FieldBuilder {
	fb.def.ToJSON = fn
	return fb
}

// OmitJSON excludes the field from snapshots.
func (fb *FieldBuilder) OmitJSON() *FieldBuilder {
	fb.def.OmitJSON = true
	return fb
}

// Visibility overrides the default enumerability.
func (fb *FieldBuilder) Visibility(v Visibility) *FieldBuilder {
	fb.def.Visibility = v
	return fb
}

// Class returns the owning builder, for chaining further fields.
func (fb *FieldBuilder) Class() *ClassBuilder {
	return fb.b
}

// ComputeBuilder fluent methods

// Deps sets the keys the node reads.
func (cb *ComputeBuilder) Deps(keys ...string) *ComputeBuilder {
	cb.def.Deps = keys
	return cb
}

// Mutates sets the keys the node writes.
func (cb *ComputeBuilder) Mutates(keys ...string) *ComputeBuilder {
	cb.def.Mutates = keys
	return cb
}

// Update sets the node body.
func (cb *ComputeBuilder) Update(fn func(update, next, prev Props)) *ComputeBuilder {
	cb.def.Update = fn
	return cb
}
