package smartstate

import (
	"fmt"

	"github.com/comalice/smartstate/internal/primitives"
)

// memo is the per-instance state of one compute node.
type memo struct {
	prev any
	set  bool
}

// run evaluates the node for key against the draft. committed is the last
// committed state. The result tells the graph which keys to visit next.
func (n *nodeSpec) run(c *Class, draft, committed Props, m *memo) (primitives.Next, error) {
	if n.compute != nil {
		update := Props{}
		n.compute.Update(update, draft, committed)
		return c.apply(n.key, draft, update)
	}

	f, key := n.field, n.key

	prev := committed[key]
	if m.set {
		prev = m.prev
	}

	var next any
	if f.get == nil || !identical(draft[key], prev) {
		next = draft[key]
	} else {
		next = f.get(draft)
		draft[key] = next
	}
	m.prev, m.set = next, true

	if identical(next, prev) {
		return primitives.Stop, nil
	}

	if f.Normalize != nil {
		base := prev
		if base == nil {
			base = next
		}
		next = f.Normalize(next, base, draft)
		draft[key] = next
		m.prev = next
		if identical(next, prev) {
			return primitives.Stop, nil
		}
	}

	if f.Valid != nil && !f.Valid(next, draft) {
		return primitives.Stop, &InvalidValueError{Key: key, Value: next}
	}

	if f.Equals != nil && prev != nil && f.Equals(next, prev) {
		draft[key] = prev
		m.prev = prev
		return primitives.Stop, nil
	}

	if f.Set == nil && f.Update == nil {
		return primitives.Dependers, nil
	}

	update := Props{}
	if f.Set != nil {
		f.Set(update, next, draft)
	}
	if f.Update != nil {
		f.Update(update, draft, committed)
	}
	return c.apply(key, draft, update)
}

// apply copies the entries of update that differ from the draft and reports
// the written keys in graph order.
func (c *Class) apply(owner string, draft, update Props) (primitives.Next, error) {
	if len(update) == 0 {
		return primitives.Stop, nil
	}
	keys := c.graph.SortKeys(update.Keys())
	written := keys[:0]
	for _, k := range keys {
		if _, ok := c.fields[k]; !ok {
			return primitives.Stop, fmt.Errorf("%w: %q written by %q", ErrUnknownKey, k, owner)
		}
		if v := update[k]; !identical(v, draft[k]) {
			draft[k] = v
			written = append(written, k)
		}
	}
	return primitives.Next{Keys: written}, nil
}
