// Package smartstate is a reactive state container with computed fields.
//
// A Class declares stored fields, computed fields (derived from other keys
// through a getter, optionally writable through a setter) and free compute
// nodes that derive several keys at once. Define assembles the dependency
// graph once per class; every State created from it shares that graph and
// keeps its own per-node memo.
//
// Every mutation is a transaction: values are written into a draft, the
// compute graph propagates the change, and the commit loop re-runs the whole
// graph until a pass changes nothing. Each pass that does change something
// is a wave: WillSet hooks for the changed keys fire first, then DidSet
// hooks, then watchers. A failing Valid hook, a hook error or a panic rolls
// the draft back and leaves the committed state untouched.
//
// Cycles between fields are allowed. They settle through each node's memo;
// commits that never settle fail with ErrTooManyIterations.
package smartstate
