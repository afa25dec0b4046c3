package frontier

import (
	"container/heap"
	"sync"
)

// PriorityQueue is a stable max-priority queue safe for concurrent use.
type PriorityQueue[T any] struct {
	mu      sync.Mutex
	entries entryHeap[T]
	nextSeq uint64
}

func NewPriorityQueue[T any]() *PriorityQueue[T] {
	return &PriorityQueue[T]{}
}

func (q *PriorityQueue[T]) Push(item T, priority int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(&q.entries, entry[T]{item: item, priority: priority, seq: q.nextSeq})
	q.nextSeq++
}

// Pop removes the highest priority item. It returns false when the queue
// is empty.
func (q *PriorityQueue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		var zero T
		return zero, false
	}
	e := heap.Pop(&q.entries).(entry[T])
	return e.item, true
}

func (q *PriorityQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
