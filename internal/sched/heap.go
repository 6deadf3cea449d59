// internal/sched/heap.go

package sched

import "container/heap"

// compare orders records by sort key, then by ID.
func compare(a, b *Record) int {
	switch {
	case a.SortKey < b.SortKey:
		return -1
	case a.SortKey > b.SortKey:
		return 1
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	default:
		return 0
	}
}

// recordHeap implements container/heap.Interface as a min-heap under compare.
//
// heap.Push sifts up while the parent compares greater. heap.Pop swaps the
// root with the last element and sifts it down, taking the right child only
// when it is strictly less than the left one.
type recordHeap []*Record

func (h recordHeap) Len() int           { return len(h) }
func (h recordHeap) Less(i, j int) bool { return compare(h[i], h[j]) < 0 }
func (h recordHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *recordHeap) Push(x any) {
	*h = append(*h, x.(*Record))
}

func (h *recordHeap) Pop() any {
	old := *h
	n := len(old)
	r := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return r
}

// Queue is a binary min-heap of task records ordered by (SortKey, ID).
// It knows nothing about time or scheduling, and is not safe for concurrent use.
type Queue struct {
	h recordHeap
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{h: make(recordHeap, 0, 16)}
}

// Push adds r to the queue. A nil record is ignored.
func (q *Queue) Push(r *Record) {
	if r == nil {
		return
	}
	heap.Push(&q.h, r)
}

// Peek returns the minimum record without removing it, or nil if empty.
func (q *Queue) Peek() *Record {
	if len(q.h) == 0 {
		return nil
	}
	return q.h[0]
}

// Pop removes and returns the minimum record, or nil if empty.
func (q *Queue) Pop() *Record {
	if len(q.h) == 0 {
		return nil
	}
	return heap.Pop(&q.h).(*Record)
}

// Len returns the number of records, tombstones included.
func (q *Queue) Len() int { return len(q.h) }

// Records returns a copy of the backing heap layout.
func (q *Queue) Records() []*Record {
	out := make([]*Record, len(q.h))
	copy(out, q.h)
	return out
}
