package smartstate

// Field is a typed handle on one key. It stands in for generated per-key
// accessors:
//
//	var Left = smartstate.NewField[float64]("left")
//	Left.Set(rect, 5)
//	right := Right.Get(rect)
type Field[T any] struct {
	Key string
}

// NewField returns a handle for key.
func NewField[T any](key string) Field[T] {
	return Field[T]{Key: key}
}

// From reads the field out of p. A missing or mistyped value yields the
// zero T. Useful inside Get, Set and Update hooks.
func (f Field[T]) From(p Props) T {
	v, _ := p[f.Key].(T)
	return v
}

// Lookup reads the field and reports whether it holds a T.
func (f Field[T]) Lookup(s *State) (T, bool) {
	v, ok := s.GetKey(f.Key).(T)
	return v, ok
}

// Get reads the field, returning the zero T when unset.
func (f Field[T]) Get(s *State) T {
	v, _ := f.Lookup(s)
	return v
}

// Set writes the field.
func (f Field[T]) Set(s *State, v T) error {
	return s.SetKey(f.Key, v)
}

// Update writes fn applied to the current value.
func (f Field[T]) Update(s *State, fn func(prev T) T) error {
	return s.SetKey(f.Key, fn(f.Get(s)))
}

// Put stores v into p. Useful for filling update records.
func (f Field[T]) Put(p Props, v T) {
	p[f.Key] = v
}

// On subscribes fn to changes of the field.
func (f Field[T]) On(s *State, fn func(next, prev T)) func() {
	return s.OnKey(f.Key, func(next, prev any, _, _ Props) {
		n, _ := next.(T)
		p, _ := prev.(T)
		fn(n, p)
	})
}
