package search

import (
	"context"
	"math"
)

// Unbounded is the bound for a branch-and-bound search without a cost limit.
var Unbounded = math.Inf(1)

// BranchAndBound is depth-first branch-and-bound. A path whose g + h reaches
// the current bound is pruned; each goal path cheaper than the bound becomes
// the best plan and tightens the bound to its cost. The bound is exclusive, so
// an initial bound equal to the optimal cost finds nothing.
//
// No duplicate table is kept. Only cycles along the current path are skipped,
// so memory stays proportional to depth times branching while identical nodes
// reached by different paths may be expanded repeatedly.
type BranchAndBound[N Node, A any] struct {
	graph    Graph[N, A]
	settings settings
	bound    float64
	best     *Path[N, A]
	stats    Stats
}

// NewBranchAndBound creates a searcher over g with the given initial bound.
// The bound is taken literally: zero or a negative bound finds nothing. Pass
// Unbounded for no limit; NaN is treated as Unbounded.
func NewBranchAndBound[N Node, A any](g Graph[N, A], bound float64, opts ...Option) *BranchAndBound[N, A] {
	if math.IsNaN(bound) {
		bound = Unbounded
	}
	return &BranchAndBound[N, A]{
		graph:    g,
		settings: newSettings(opts),
		bound:    bound,
	}
}

// Search runs the traversal to completion and returns the best plan found
// under the bound. found is false when no plan is cheaper than the bound. If
// the context is cancelled or the expansion limit is hit, the best plan so far
// is returned together with the error.
func (b *BranchAndBound[N, A]) Search(ctx context.Context) (path *Path[N, A], found bool, err error) {
	stack := []*Path[N, A]{Root[N, A](b.graph.Start())}
	b.stats.Generated++

	ticks := 0
	for len(stack) > 0 {
		ticks++
		if err := b.settings.checkpoint(ctx, ticks, b.stats.Expanded); err != nil {
			return b.best, b.best != nil, err
		}

		p := stack[len(stack)-1]
		stack[len(stack)-1] = nil
		stack = stack[:len(stack)-1]

		node := p.End()
		if p.Cost()+b.graph.Heuristic(node) >= b.bound {
			b.stats.Pruned++
			continue
		}
		if b.graph.IsGoal(node) {
			b.best = p
			b.bound = p.Cost()
			if b.settings.onImprove != nil {
				b.settings.onImprove(p.Cost(), p.Len())
			}
			continue
		}

		b.stats.Expanded++
		arcs := b.graph.Neighbors(node)
		for i := len(arcs) - 1; i >= 0; i-- {
			if p.Contains(arcs[i].To.Key()) {
				b.stats.Pruned++
				continue
			}
			stack = append(stack, p.Extend(arcs[i]))
			b.stats.Generated++
		}
	}
	return b.best, b.best != nil, nil
}

// Bound is the current bound: the initial bound, or the cost of the best plan.
func (b *BranchAndBound[N, A]) Bound() float64 { return b.bound }

// Best returns the best plan found so far, if any.
func (b *BranchAndBound[N, A]) Best() (*Path[N, A], bool) {
	return b.best, b.best != nil
}

// Stats returns the work counters so far.
func (b *BranchAndBound[N, A]) Stats() Stats {
	return b.stats
}
