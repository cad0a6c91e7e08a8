// Package search provides generic best-first search with multiple-path
// pruning and depth-first branch-and-bound over any Graph.
//
// Heuristics must never overestimate the remaining cost. The searchers do not
// check this; an inadmissible heuristic silently yields suboptimal plans.
package search

// Node is a search node. Nodes with equal keys are the same node for
// duplicate and cycle pruning.
type Node interface {
	Key() string
}

// Arc is one outgoing edge: the action taken, its cost and the node reached.
type Arc[N Node, A any] struct {
	Action A
	Cost   float64
	To     N
}

// Graph is a searchable state space.
type Graph[N Node, A any] interface {
	// Start returns the root node.
	Start() N
	// IsGoal reports whether n is terminal.
	IsGoal(n N) bool
	// Neighbors returns the outgoing arcs of n. A node without arcs is a dead end.
	Neighbors(n N) []Arc[N, A]
	// Heuristic estimates the remaining cost from n. It must be non-negative.
	Heuristic(n N) float64
}

// Stats counts the work a searcher has done so far.
type Stats struct {
	Expanded  int
	Generated int
	Pruned    int
	Frontier  int
}
