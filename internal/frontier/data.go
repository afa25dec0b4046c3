package frontier

// entry is one queued item. seq is the admission order and breaks ties
// between equal priorities.
type entry[T any] struct {
	item     T
	priority int
	seq      uint64
}

// entryHeap implements heap.Interface. The root is the highest priority,
// earliest admitted entry.
type entryHeap[T any] []entry[T]

func (h entryHeap[T]) Len() int { return len(h) }

func (h entryHeap[T]) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap[T]) Push(x any) {
	*h = append(*h, x.(entry[T]))
}

func (h *entryHeap[T]) Pop() any {
	old := *h
	n := len(old)
	last := old[n-1]
	var zero entry[T]
	old[n-1] = zero
	*h = old[:n-1]
	return last
}
