package search

import "context"

// MPP is best-first search with multiple-path pruning. The frontier is
// ordered by f = g + h with FIFO tie-breaking, and a visited table records the
// cheapest g at which each node was expanded; a path reaching an already
// expanded node at equal or higher cost is dropped.
//
// An MPP keeps its frontier and visited table between calls, so calling Next
// again resumes the search and yields the next-best plan. It is not safe for
// concurrent use.
type MPP[N Node, A any] struct {
	graph    Graph[N, A]
	settings settings
	frontier frontier[N, A]
	visited  map[string]float64
	stats    Stats
	ticks    int
	started  bool
}

// NewMPP creates a searcher over g. Nothing is explored until Next is called.
func NewMPP[N Node, A any](g Graph[N, A], opts ...Option) *MPP[N, A] {
	return &MPP[N, A]{
		graph:    g,
		settings: newSettings(opts),
		visited:  make(map[string]float64),
	}
}

// Next returns the next goal path in order of f. found is false once the
// frontier is exhausted, which is the expected outcome for an unsolvable
// problem and not an error. A context or expansion-limit error leaves the
// searcher intact so it can be resumed.
func (s *MPP[N, A]) Next(ctx context.Context) (path *Path[N, A], found bool, err error) {
	if !s.started {
		s.started = true
		start := s.graph.Start()
		s.frontier.push(Root[N, A](start), s.graph.Heuristic(start))
		s.stats.Generated++
	}

	for s.frontier.len() > 0 {
		s.ticks++
		if err := s.settings.checkpoint(ctx, s.ticks, s.stats.Expanded); err != nil {
			return nil, false, err
		}

		p, _ := s.frontier.pop()
		node := p.End()
		if s.graph.IsGoal(node) {
			return p, true, nil
		}

		key := node.Key()
		if best, seen := s.visited[key]; seen && best <= p.Cost() {
			s.stats.Pruned++
			continue
		}
		s.visited[key] = p.Cost()
		s.stats.Expanded++

		for _, arc := range s.graph.Neighbors(node) {
			next := p.Extend(arc)
			if best, seen := s.visited[arc.To.Key()]; seen && best <= next.Cost() {
				s.stats.Pruned++
				continue
			}
			s.frontier.push(next, next.Cost()+s.graph.Heuristic(arc.To))
			s.stats.Generated++
		}
	}
	return nil, false, nil
}

// Exhausted reports whether the frontier is empty after the search started.
func (s *MPP[N, A]) Exhausted() bool {
	return s.started && s.frontier.len() == 0
}

// Stats returns the work counters so far.
func (s *MPP[N, A]) Stats() Stats {
	st := s.stats
	st.Frontier = s.frontier.len()
	return st
}
