package primitives

import (
	"errors"
	"slices"
)

// ErrVisitLimit is returned by RunLimit when the worklist keeps producing keys
// past its visit budget.
var ErrVisitLimit = errors.New("compute graph: visit limit exceeded")

// Next tells Run which keys to enqueue after a visit.
type Next struct {
	// All enqueues every current depender of the visited key.
	All bool
	// Keys enqueues exactly these keys. Ignored when All is set.
	Keys []string
}

// Stop is the zero Next: nothing is enqueued.
var Stop = Next{}

// Dependers is the Next that propagates to all dependers.
var Dependers = Next{All: true}

// Visit is called once per dequeued key.
type Visit func(key string) (Next, error)

// ComputeGraph is a DependencyGraph that can drive a breadth-first
// propagation over its keys.
type ComputeGraph struct {
	*DependencyGraph
}

// NewComputeGraph returns an empty compute graph.
func NewComputeGraph() *ComputeGraph {
	return &ComputeGraph{DependencyGraph: NewDependencyGraph()}
}

// Clone returns a deep copy.
func (g *ComputeGraph) Clone() *ComputeGraph {
	return &ComputeGraph{DependencyGraph: g.DependencyGraph.Clone()}
}

// Run seeds a FIFO with seed (sorted by index unless skipSort) or with every
// key when seed is nil, then visits keys until the queue drains. Keys may be
// visited many times. A visit error stops the run and is returned.
func (g *ComputeGraph) Run(visit Visit, seed []string, skipSort bool) error {
	return g.RunLimit(visit, seed, skipSort, 0)
}

// RunLimit is Run with a bound on the number of visits. A limit of zero or
// less means unbounded.
func (g *ComputeGraph) RunLimit(visit Visit, seed []string, skipSort bool, limit int) error {
	var queue []string
	switch {
	case seed == nil:
		queue = slices.Clone(g.keys)
	case skipSort:
		queue = slices.Clone(seed)
	default:
		queue = g.SortKeys(slices.Clone(seed))
	}

	visits := 0
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]

		visits++
		if limit > 0 && visits > limit {
			return ErrVisitLimit
		}

		next, err := visit(key)
		if err != nil {
			return err
		}
		if next.All {
			queue = append(queue, g.dependers[key]...)
		} else {
			queue = append(queue, next.Keys...)
		}
	}
	return nil
}
