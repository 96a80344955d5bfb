package sim

import "sync"

// Queue is the shared FIFO of boats awaiting a worker. It is filled once at
// setup and drained only through TryPop during the claim phase, which is the
// single point of cross-worker contention in a run.
type Queue struct {
	mu    sync.Mutex
	boats []*Boat
}

// NewQueue creates an empty queue with the given capacity hint.
func NewQueue(capacity int) *Queue {
	return &Queue{boats: make([]*Boat, 0, capacity)}
}

// Push appends a boat to the queue.
func (q *Queue) Push(b *Boat) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.boats = append(q.boats, b)
}

// TryPop removes and returns the oldest boat without blocking. The second
// return value is false when the queue is empty.
func (q *Queue) TryPop() (*Boat, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.boats) == 0 {
		return nil, false
	}
	b := q.boats[0]
	q.boats = q.boats[1:]
	return b, true
}

// Len returns the number of boats still queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.boats)
}
