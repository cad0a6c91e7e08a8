package search

// Path is a parent-linked sequence of arcs from the start node. Extending a
// path shares its prefix, so frontiers hold many paths cheaply.
type Path[N Node, A any] struct {
	parent *Path[N, A]
	arc    Arc[N, A]
	node   N
	cost   float64
	depth  int
}

// Root returns the zero-length path at n.
func Root[N Node, A any](n N) *Path[N, A] {
	return &Path[N, A]{node: n}
}

// Extend returns p followed by arc.
func (p *Path[N, A]) Extend(arc Arc[N, A]) *Path[N, A] {
	return &Path[N, A]{
		parent: p,
		arc:    arc,
		node:   arc.To,
		cost:   p.cost + arc.Cost,
		depth:  p.depth + 1,
	}
}

// End is the last node of the path.
func (p *Path[N, A]) End() N { return p.node }

// Cost is the sum of arc costs.
func (p *Path[N, A]) Cost() float64 { return p.cost }

// Len is the number of arcs.
func (p *Path[N, A]) Len() int { return p.depth }

// Arcs returns the arcs from the start node onwards.
func (p *Path[N, A]) Arcs() []Arc[N, A] {
	arcs := make([]Arc[N, A], p.depth)
	for cur := p; cur.parent != nil; cur = cur.parent {
		arcs[cur.depth-1] = cur.arc
	}
	return arcs
}

// Actions returns the arc actions from the start node onwards.
func (p *Path[N, A]) Actions() []A {
	actions := make([]A, p.depth)
	for cur := p; cur.parent != nil; cur = cur.parent {
		actions[cur.depth-1] = cur.arc.Action
	}
	return actions
}

// Nodes returns every node on the path, start node first.
func (p *Path[N, A]) Nodes() []N {
	nodes := make([]N, p.depth+1)
	for cur := p; cur != nil; cur = cur.parent {
		nodes[cur.depth] = cur.node
	}
	return nodes
}

// Contains reports whether a node with key occurs on the path.
func (p *Path[N, A]) Contains(key string) bool {
	for cur := p; cur != nil; cur = cur.parent {
		if cur.node.Key() == key {
			return true
		}
	}
	return false
}
