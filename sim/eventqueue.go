package sim

import (
	"container/heap"
	"sync"
)

// EventQueue is a thread-safe priority queue of events. Events pop in time
// order. At equal times primary events pop before secondary events, and
// events of the same kind pop in the order they were pushed.
type EventQueue struct {
	mu     sync.Mutex
	items  eventHeap
	pushed uint64
}

// NewEventQueue creates an empty EventQueue.
func NewEventQueue() *EventQueue {
	return &EventQueue{}
}

// Push adds an event.
func (q *EventQueue) Push(evt Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	heap.Push(&q.items, queueItem{
		evt:       evt,
		at:        evt.Time(),
		secondary: evt.IsSecondary(),
		seq:       q.pushed,
	})
	q.pushed++
}

// Pop removes the next event. It returns nil if the queue is empty.
func (q *EventQueue) Pop() Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}

	return heap.Pop(&q.items).(queueItem).evt
}

// Peek returns the next event without removing it, or nil.
func (q *EventQueue) Peek() Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}

	return q.items[0].evt
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

type queueItem struct {
	evt       Event
	at        VTimeInSec
	secondary bool
	seq       uint64
}

func (a queueItem) before(b queueItem) bool {
	switch {
	case a.at != b.at:
		return a.at < b.at
	case a.secondary != b.secondary:
		return !a.secondary
	default:
		return a.seq < b.seq
	}
}

type eventHeap []queueItem

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].before(h[j]) }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(queueItem))
}

func (h *eventHeap) Pop() any {
	old := *h
	last := old[len(old)-1]
	old[len(old)-1] = queueItem{}
	*h = old[:len(old)-1]

	return last
}
