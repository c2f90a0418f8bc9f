package smartstate

import (
	"errors"
	"fmt"
)

var (
	// ErrTooManyIterations is returned when a commit does not settle within
	// the configured number of waves, or when graph propagation runs away.
	ErrTooManyIterations = errors.New("smartstate: too many iterations")

	// ErrUnknownKey is returned when a key is not declared on the class.
	ErrUnknownKey = errors.New("smartstate: unknown key")

	// ErrReadOnlyKey is returned when writing a computed key without a setter.
	ErrReadOnlyKey = errors.New("smartstate: read-only key")
)

// InvalidValueError reports a value rejected by a field's Valid hook.
type InvalidValueError struct {
	Key   string
	Value any
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("smartstate: invalid value for %q: %v", e.Key, e.Value)
}

// NameConflictError reports a key declared twice or colliding with another
// declaration while building a class.
type NameConflictError struct {
	Class string
	Key   string
}

func (e *NameConflictError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("smartstate: class %q: empty key", e.Class)
	}
	return fmt.Sprintf("smartstate: class %q: name conflict on %q", e.Class, e.Key)
}
