package production

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/comalice/smartstate"
)

var (
	// ErrUnknownClass is returned when an envelope names an unregistered class.
	ErrUnknownClass = errors.New("unknown class")
	// ErrVersionMismatch is returned when an envelope was written by a
	// different shape of the class.
	ErrVersionMismatch = errors.New("class version mismatch")
)

// Registry maps class names to classes so snapshots can be restored without
// knowing their class up front.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]*smartstate.Class
}

// NewRegistry returns a registry holding classes.
func NewRegistry(classes ...*smartstate.Class) *Registry {
	r := &Registry{classes: map[string]*smartstate.Class{}}
	for _, c := range classes {
		r.Register(c)
	}
	return r
}

// Register adds c under its name, replacing any earlier class of that name.
func (r *Registry) Register(c *smartstate.Class) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[c.Name()] = c
}

// Lookup returns the class registered under name.
func (r *Registry) Lookup(name string) (*smartstate.Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[name]
	return c, ok
}

// Names returns the registered class names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.classes))
	for name := range r.classes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Restore builds a State from env using the class it names. An envelope
// without a version is accepted by any version of the class.
func (r *Registry) Restore(env Envelope, opts ...smartstate.Option) (*smartstate.State, error) {
	c, ok := r.Lookup(env.Class)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, env.Class)
	}
	if env.Version != "" {
		if want := c.Schema().Version; env.Version != want {
			return nil, fmt.Errorf("%w: %q has %s, snapshot has %s", ErrVersionMismatch, env.Class, want, env.Version)
		}
	}
	return smartstate.FromSnapshot(c, env.Snapshot(), opts...)
}

// Decode parses data and restores it in one step.
func (r *Registry) Decode(data []byte, f Format, opts ...smartstate.Option) (*smartstate.State, error) {
	env, err := Decode(data, f)
	if err != nil {
		return nil, err
	}
	return r.Restore(env, opts...)
}
