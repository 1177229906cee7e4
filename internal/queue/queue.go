// Package queue holds the bounded FIFO behind the notification inbox.
package queue

import "sync"

const minCapacity = 16

// Queue is a thread-safe FIFO ring buffer. A positive limit caps it; pushes
// beyond the cap are rejected and counted.
type Queue[T any] struct {
	mu      sync.Mutex
	buf     []T
	head    int
	n       int
	limit   int
	dropped uint64
}

// New creates an empty queue holding at most limit items. A limit of zero
// or less means unbounded.
func New[T any](limit int) *Queue[T] {
	size := minCapacity
	if limit > 0 && limit < size {
		size = limit
	}
	return &Queue[T]{buf: make([]T, size), limit: limit}
}

// Push appends item. It returns false, leaving the queue unchanged, when the
// queue is at its limit.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.limit > 0 && q.n >= q.limit {
		q.dropped++
		return false
	}
	if q.n == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.n)%len(q.buf)] = item
	q.n++
	return true
}

func (q *Queue[T]) grow() {
	size := 2 * len(q.buf)
	if q.limit > 0 && size > q.limit {
		size = q.limit
	}
	q.buf = q.copyOut(make([]T, size))
	q.head = 0
}

// copyOut copies the queued items in order to the front of dst.
func (q *Queue[T]) copyOut(dst []T) []T {
	k := copy(dst, q.buf[q.head:min(q.head+q.n, len(q.buf))])
	copy(dst[k:], q.buf[:q.n-k])
	return dst
}

// Pop removes and returns the oldest item.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if q.n == 0 {
		return zero, false
	}
	item := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return item, true
}

// Empty reports whether the queue has no items.
func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

// Limit returns the capacity limit, zero if unbounded.
func (q *Queue[T]) Limit() int {
	return q.limit
}

// Dropped returns how many pushes were rejected since creation.
func (q *Queue[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Drain returns all items in arrival order and empties the queue. The
// returned slice is owned by the caller.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.copyOut(make([]T, q.n))
	clear(q.buf)
	q.head, q.n = 0, 0
	return out
}
