package search

import "container/heap"

type entry[N Node, A any] struct {
	path *Path[N, A]
	f    float64
	seq  uint64
}

// entryHeap is a min-heap on f; equal f values pop in insertion order.
type entryHeap[N Node, A any] []entry[N, A]

func (h entryHeap[N, A]) Len() int { return len(h) }

func (h entryHeap[N, A]) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap[N, A]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap[N, A]) Push(x any) { *h = append(*h, x.(entry[N, A])) }

func (h *entryHeap[N, A]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = entry[N, A]{}
	*h = old[:n-1]
	return e
}

// frontier orders partial paths by f = g + h with a stable FIFO tie-break.
type frontier[N Node, A any] struct {
	items entryHeap[N, A]
	seq   uint64
}

func (f *frontier[N, A]) push(p *Path[N, A], priority float64) {
	f.seq++
	heap.Push(&f.items, entry[N, A]{path: p, f: priority, seq: f.seq})
}

func (f *frontier[N, A]) pop() (*Path[N, A], float64) {
	e := heap.Pop(&f.items).(entry[N, A])
	return e.path, e.f
}

func (f *frontier[N, A]) len() int { return f.items.Len() }
