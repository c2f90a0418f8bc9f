package smartstate

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/rs/zerolog"

	"github.com/comalice/smartstate/internal/primitives"
)

// DefaultMaxIteration bounds the number of commit waves per transaction.
const DefaultMaxIteration = 10

// Option configures a State at construction.
type Option func(*State)

// WithConfig attaches an arbitrary configuration value, returned by Config
// and carried in snapshots.
func WithConfig(config any) Option {
	return func(s *State) {
		s.config = config
	}
}

// WithMaxIteration overrides DefaultMaxIteration. Values below 1 are ignored.
func WithMaxIteration(n int) Option {
	return func(s *State) {
		if n > 0 {
			s.maxIteration = n
		}
	}
}

// WithLogger sets the logger used for transaction tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(s *State) {
		s.log = l
	}
}

// State is one instance of a Class. It holds the committed values and runs
// every mutation as a transaction over a draft copy.
//
// A State is not safe for concurrent use. Hooks and watchers may call back
// into the same State; nested writes merge into the open transaction.
type State struct {
	class  *Class
	config any

	state Props
	draft Props
	depth int
	memos []memo

	watchers []*watcher
	cleanup  *CleanupMap

	maxIteration int
	log          zerolog.Logger
	destroyed    bool
}

// New creates an instance of class seeded with initial. Initial values for
// computed keys act as overrides, the same as a later Set.
func New(class *Class, initial Props, opts ...Option) (*State, error) {
	s := &State{
		class:        class,
		state:        Props{},
		memos:        make([]memo, len(class.nodes)),
		cleanup:      NewCleanupMap(),
		maxIteration: DefaultMaxIteration,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("class", class.name).Logger()

	for _, k := range initial.Keys() {
		if !class.Has(k) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKey, k)
		}
	}

	err := s.transact(func(draft Props) ([]string, error) {
		maps.Copy(draft, initial)
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Class returns the class s was created from.
func (s *State) Class() *Class { return s.class }

// Config returns the value passed with WithConfig.
func (s *State) Config() any { return s.config }

// Destroyed reports whether Destroy was called.
func (s *State) Destroyed() bool { return s.destroyed }

// current is the draft while a transaction is open, else the committed state.
func (s *State) current() Props {
	if s.draft != nil {
		return s.draft
	}
	return s.state
}

// GetState returns a copy of the current values, including the open draft
// when called from a hook.
func (s *State) GetState() Props {
	return s.current().Clone()
}

// Get returns the listed keys, or every declared key when none are given.
func (s *State) Get(keys ...string) Props {
	if len(keys) == 0 {
		keys = s.class.keys
	}
	cur := s.current()
	out := make(Props, len(keys))
	for _, k := range keys {
		out[k] = cur[k]
	}
	return out
}

// GetKey returns the current value of key.
func (s *State) GetKey(key string) any {
	return s.current()[key]
}

// Set writes several keys in one transaction. Keys are applied in class
// declaration order; values identical to the current ones are skipped.
func (s *State) Set(partial Props) error {
	if s.destroyed {
		return nil
	}
	keys := make([]string, 0, len(partial))
	for k := range partial {
		if err := s.checkWritable(k); err != nil {
			return err
		}
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return slices.Index(s.class.keys, a) - slices.Index(s.class.keys, b)
	})
	return s.transact(func(draft Props) ([]string, error) {
		var written []string
		for _, k := range keys {
			if v := partial[k]; !identical(v, draft[k]) {
				draft[k] = v
				written = append(written, k)
			}
		}
		return written, nil
	})
}

// SetKey writes a single key.
func (s *State) SetKey(key string, value any) error {
	if s.destroyed {
		return nil
	}
	if err := s.checkWritable(key); err != nil {
		return err
	}
	return s.transact(func(draft Props) ([]string, error) {
		if identical(value, draft[key]) {
			return nil, nil
		}
		draft[key] = value
		return []string{key}, nil
	})
}

// Update passes a copy of the current values to fn and sets what it returns.
func (s *State) Update(fn func(state Props) Props) error {
	if s.destroyed {
		return nil
	}
	return s.Set(fn(s.GetState()))
}

// UpdateKey sets key to fn(current value, current state).
func (s *State) UpdateKey(key string, fn func(prev any, state Props) any) error {
	if s.destroyed {
		return nil
	}
	return s.SetKey(key, fn(s.GetKey(key), s.GetState()))
}

func (s *State) checkWritable(key string) error {
	f, ok := s.class.fields[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if !f.settable() {
		return fmt.Errorf("%w: %q", ErrReadOnlyKey, key)
	}
	return nil
}

// transact runs write against the draft and propagates the written keys.
// The outermost call owns the draft: it commits on success and discards on
// failure. A nested call only restores the draft it found on entry.
// A nil written list from an outermost call still commits; the commit pass
// covers every key.
func (s *State) transact(write func(draft Props) ([]string, error)) (err error) {
	outer := s.depth == 0
	memos := slices.Clone(s.memos)
	var saved Props
	if outer {
		s.draft = s.state.Clone()
		s.log.Debug().Msg("transaction open")
	} else {
		saved = s.draft.Clone()
	}
	s.depth++

	defer func() {
		s.depth--
		r := recover()
		if r == nil && err == nil {
			return
		}
		copy(s.memos, memos)
		if outer {
			s.draft = nil
			s.log.Debug().Err(err).Msg("transaction discarded")
		} else {
			clear(s.draft)
			maps.Copy(s.draft, saved)
		}
		if r != nil {
			panic(r)
		}
	}()

	written, err := write(s.draft)
	if err != nil {
		return err
	}
	if len(written) > 0 {
		if err = s.run(written); err != nil {
			return err
		}
	}
	if outer {
		return s.commit()
	}
	return nil
}

// run propagates from seed, or across every key when seed is nil.
func (s *State) run(seed []string) error {
	c := s.class
	n := len(c.nodes) + 1
	err := c.graph.RunLimit(func(key string) (primitives.Next, error) {
		i := c.nodeIndex[key]
		return c.nodes[i].run(c, s.draft, s.state, &s.memos[i])
	}, seed, false, s.maxIteration*n*n)
	if errors.Is(err, primitives.ErrVisitLimit) {
		return fmt.Errorf("%w: propagation did not settle", ErrTooManyIterations)
	}
	return err
}

// commit drives the draft to a fixed point. Each wave runs every node,
// diffs the draft against the previous wave and dispatches hooks and
// watchers for the changed keys. The draft becomes the committed state once
// a full pass changes nothing.
func (s *State) commit() error {
	prev := s.state
	for iter := 0; ; iter++ {
		if iter >= s.maxIteration {
			s.log.Warn().Int("max_iteration", s.maxIteration).Msg("commit did not converge")
			return ErrTooManyIterations
		}
		if err := s.run(nil); err != nil {
			return err
		}

		var dirty []string
		for _, k := range s.class.keys {
			if s.class.fields[k].changed(s.draft[k], prev[k]) {
				dirty = append(dirty, k)
			}
		}
		if len(dirty) == 0 {
			break
		}
		s.log.Debug().Int("wave", iter).Strs("dirty", dirty).Msg("commit wave")

		snapshot := s.draft.Clone()
		for _, k := range dirty {
			if h := s.class.fields[k].WillSet; h != nil {
				if err := h(s, snapshot[k], prev[k], s.draft); err != nil {
					return fmt.Errorf("willSet %q: %w", k, err)
				}
			}
		}
		for _, k := range dirty {
			if h := s.class.fields[k].DidSet; h != nil {
				if err := h(s, snapshot[k], prev[k], snapshot); err != nil {
					return fmt.Errorf("didSet %q: %w", k, err)
				}
			}
		}
		s.notify(dirty, snapshot, prev)
		prev = snapshot
	}

	s.state = s.draft
	s.draft = nil
	s.log.Debug().Msg("transaction committed")
	return nil
}

// Reset drops watchers and, outside a transaction, any stale draft.
// Committed values are kept.
func (s *State) Reset() {
	if s.depth == 0 {
		s.draft = nil
	}
	s.ClearWatchers()
}

// Destroy runs registered cleanups, drops watchers and turns every later
// mutation into a no-op. Calling it again does nothing.
func (s *State) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.cleanup.Destroy()
	s.Reset()
}
