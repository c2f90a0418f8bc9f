// Package primitives holds the graph data structures behind the state engine
// and the serializable Schema that describes a class.
//
// DependencyGraph records dependee/depender relations and orders keys;
// ComputeGraph adds the worklist propagation used by every transaction.
//
// Invariants:
// - keys are unique and each has an index equal to its position
// - adjacency lists never hold duplicates and only reference registered keys
// - after Prepare/PrepareByComplexity every adjacency list is sorted by index
package primitives
