package scheduler

import (
	"container/heap"
	"sync"

	"genforge/internal/types"
)

// QueueMode selects how workers pick the next item. The work item carries a
// priority hint either way; only PriorityOrder acts on it.
type QueueMode int

const (
	// FIFO preserves the caller-supplied item order. This is the default
	// and the active mode in normal operation.
	FIFO QueueMode = iota
	// PriorityOrder re-sorts the queue by descending priority hint,
	// breaking ties by enqueue position. It applies only to ungated runs;
	// when Run is given an order, items are handed out FIFO so workers
	// never pick up a dependent ahead of its queued predecessor.
	PriorityOrder
)

// workQueue is the shared pool all workers pull from. Pop is safe for
// concurrent use; items are consumed exactly once.
type workQueue struct {
	mu    sync.Mutex
	fifo  []types.WorkItem
	prio  *itemHeap
	byPri bool
}

func newWorkQueue(mode QueueMode, items []types.WorkItem) *workQueue {
	q := &workQueue{byPri: mode == PriorityOrder}
	if q.byPri {
		h := make(itemHeap, len(items))
		for i, it := range items {
			h[i] = heapEntry{item: it, seq: i}
		}
		heap.Init(&h)
		q.prio = &h
		return q
	}
	q.fifo = append(q.fifo, items...)
	return q
}

func (q *workQueue) pop() (types.WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.byPri {
		if q.prio.Len() == 0 {
			return types.WorkItem{}, false
		}
		return heap.Pop(q.prio).(heapEntry).item, true
	}
	if len(q.fifo) == 0 {
		return types.WorkItem{}, false
	}
	it := q.fifo[0]
	q.fifo = q.fifo[1:]
	return it, true
}

type heapEntry struct {
	item types.WorkItem
	seq  int
}

type itemHeap []heapEntry

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].item.Priority != h[j].item.Priority {
		return h[i].item.Priority > h[j].item.Priority
	}
	return h[i].seq < h[j].seq
}
func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x any)   { *h = append(*h, x.(heapEntry)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}
