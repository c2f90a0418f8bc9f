package primitives

import "slices"

// DependencyGraph tracks directed relations between string keys.
//
// A dependee is a key another key reads from; a depender is a key that must be
// re-evaluated when its dependee changes. Keys keep an index which defines the
// evaluation order once the graph is prepared.
type DependencyGraph struct {
	keys       []string
	index      map[string]int
	complexity map[string]int
	dependees  map[string][]string
	dependers  map[string][]string
}

// NewDependencyGraph returns an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		index:      map[string]int{},
		complexity: map[string]int{},
		dependees:  map[string][]string{},
		dependers:  map[string][]string{},
	}
}

// Clone returns a deep copy. Mutating the copy never affects the receiver.
func (g *DependencyGraph) Clone() *DependencyGraph {
	c := NewDependencyGraph()
	c.keys = slices.Clone(g.keys)
	for _, key := range g.keys {
		c.index[key] = g.index[key]
		c.dependees[key] = slices.Clone(g.dependees[key])
		c.dependers[key] = slices.Clone(g.dependers[key])
		if n, ok := g.complexity[key]; ok {
			c.complexity[key] = n
		}
	}
	return c
}

// HasKey reports whether key was registered.
func (g *DependencyGraph) HasKey(key string) bool {
	_, ok := g.index[key]
	return ok
}

// AddKey registers key with empty adjacency. Registering twice is a no-op.
func (g *DependencyGraph) AddKey(key string) {
	if g.HasKey(key) {
		return
	}
	g.index[key] = len(g.keys)
	g.keys = append(g.keys, key)
	g.dependees[key] = []string{}
	g.dependers[key] = []string{}
}

// AddDependers records that every key in dependers depends on dependee.
func (g *DependencyGraph) AddDependers(dependee string, dependers ...string) {
	g.AddKey(dependee)
	for _, d := range dependers {
		g.AddKey(d)
		g.dependers[dependee] = addItem(g.dependers[dependee], d)
		g.dependees[d] = addItem(g.dependees[d], dependee)
	}
}

// AddDependees records that depender depends on every key in dependees.
func (g *DependencyGraph) AddDependees(depender string, dependees ...string) {
	g.AddKey(depender)
	for _, d := range dependees {
		g.AddKey(d)
		g.dependees[depender] = addItem(g.dependees[depender], d)
		g.dependers[d] = addItem(g.dependers[d], depender)
	}
}

// SortKeys stable-sorts keys in place by their current index and returns them.
// Unknown keys sort as index 0.
func (g *DependencyGraph) SortKeys(keys []string) []string {
	slices.SortStableFunc(keys, func(a, b string) int {
		return g.index[a] - g.index[b]
	})
	return keys
}

// Complexity computes a heuristic cost for key: its dependee count plus the
// complexity of each dependee. A key already present in memo contributes 0,
// which is what terminates cycles.
func (g *DependencyGraph) Complexity(key string, memo map[string]int) int {
	if _, ok := memo[key]; ok {
		return 0
	}
	dependees := g.dependees[key]
	n := len(dependees)
	for _, d := range dependees {
		memo[key] = n
		n += g.Complexity(d, memo)
	}
	memo[key] = n
	return n
}

// Prepare orders keys so that independent keys come first and, among
// dependent keys, a dependee precedes its direct dependers. The pairwise rule
// is not a total order, so an insertion sort is used to keep the result
// deterministic.
func (g *DependencyGraph) Prepare() {
	keys := g.keys
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && g.comparePrepare(keys[j-1], keys[j]) > 0; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	g.reindex()
}

func (g *DependencyGraph) comparePrepare(a, b string) int {
	aDees, bDees := g.dependees[a], g.dependees[b]
	aDers, bDers := g.dependers[a], g.dependers[b]

	if len(aDees) == 0 {
		if len(bDees) > 0 {
			return -1
		}
		return len(aDers) - len(bDers)
	}
	if len(bDees) == 0 {
		return 1
	}
	if slices.Contains(aDers, b) {
		return -1
	}
	if slices.Contains(bDers, a) {
		return 1
	}
	if d := len(aDees) - len(bDees); d != 0 {
		return d
	}
	return len(aDers) - len(bDers)
}

// PrepareByComplexity computes every key's complexity, stable-sorts keys by
// ascending complexity and re-sorts all adjacency lists by the new index.
func (g *DependencyGraph) PrepareByComplexity() {
	for _, key := range g.keys {
		g.complexity[key] = g.Complexity(key, map[string]int{})
	}
	slices.SortStableFunc(g.keys, func(a, b string) int {
		return g.complexity[a] - g.complexity[b]
	})
	g.reindex()
}

func (g *DependencyGraph) reindex() {
	for i, key := range g.keys {
		g.index[key] = i
	}
	for _, key := range g.keys {
		g.SortKeys(g.dependees[key])
		g.SortKeys(g.dependers[key])
	}
}

// Keys returns a copy of the keys in evaluation order.
func (g *DependencyGraph) Keys() []string {
	return slices.Clone(g.keys)
}

// Len returns the number of registered keys.
func (g *DependencyGraph) Len() int {
	return len(g.keys)
}

// Index returns the evaluation position of key.
func (g *DependencyGraph) Index(key string) (int, bool) {
	i, ok := g.index[key]
	return i, ok
}

// Dependees returns a copy of the keys that key depends on.
func (g *DependencyGraph) Dependees(key string) []string {
	return slices.Clone(g.dependees[key])
}

// Dependers returns a copy of the keys depending on key.
func (g *DependencyGraph) Dependers(key string) []string {
	return slices.Clone(g.dependers[key])
}

// ComplexityOf returns the complexity recorded by the last PrepareByComplexity.
func (g *DependencyGraph) ComplexityOf(key string) int {
	return g.complexity[key]
}

func addItem(list []string, item string) []string {
	if slices.Contains(list, item) {
		return list
	}
	return append(list, item)
}
