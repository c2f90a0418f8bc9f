// Package testutil provides helpers for testing code built on smartstate.
package testutil

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/comalice/smartstate"
)

// Call is one recorded watcher invocation.
type Call struct {
	Key       string
	NextValue any
	PrevValue any
	Next      smartstate.Props
	Prev      smartstate.Props
}

// Recorder collects watcher invocations. Pass rec.State to State.On and
// rec.Key to State.OnKey.
type Recorder struct {
	calls []Call
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// State records a multi-key watcher call.
func (r *Recorder) State(next, prev smartstate.Props) {
	r.calls = append(r.calls, Call{Next: next, Prev: prev})
}

// Key records a single-key watcher call.
func (r *Recorder) Key(next, prev any, nextState, prevState smartstate.Props) {
	r.calls = append(r.calls, Call{NextValue: next, PrevValue: prev, Next: nextState, Prev: prevState})
}

// KeyFor returns a single-key watcher that also records the key name.
func (r *Recorder) KeyFor(key string) smartstate.KeyWatcher {
	return func(next, prev any, nextState, prevState smartstate.Props) {
		r.calls = append(r.calls, Call{Key: key, NextValue: next, PrevValue: prev, Next: nextState, Prev: prevState})
	}
}

// Calls returns the recorded calls in order.
func (r *Recorder) Calls() []Call {
	return append([]Call(nil), r.calls...)
}

// Len returns the number of recorded calls.
func (r *Recorder) Len() int {
	return len(r.calls)
}

// Values returns the NextValue of every call.
func (r *Recorder) Values() []any {
	out := make([]any, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.NextValue)
	}
	return out
}

// Reset forgets all calls.
func (r *Recorder) Reset() {
	r.calls = nil
}

// Logger returns a debug-level zerolog logger that writes through t.Log.
func Logger(t testing.TB) zerolog.Logger {
	t.Helper()
	return zerolog.New(zerolog.ConsoleWriter{Out: zerolog.NewTestWriter(t), NoColor: true}).
		Level(zerolog.DebugLevel).
		With().Str("test", t.Name()).Logger()
}
