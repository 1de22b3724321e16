// Package queue provides the unbounded single-producer/single-consumer FIFO
// linking the recorder to its sink workers. Unbounded is deliberate: ingestion
// latency is favored over bounded memory, sessions being bursty but finite.
package queue

import "sync"

type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	closed bool
	failed bool
}

func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends v and reports whether it was accepted. It returns false once
// the queue is closed or the consumer has failed; it never blocks.
func (q *Queue[T]) Push(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || q.failed {
		return false
	}
	q.items = append(q.items, v)
	q.cond.Signal()
	return true
}

// Pop blocks until an item is available. ok is false once the queue is closed
// and drained, or after Fail.
func (q *Queue[T]) Pop() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed && !q.failed {
		q.cond.Wait()
	}
	if q.failed || len(q.items) == 0 {
		return v, false
	}
	var zero T
	v = q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}

// Close marks the producer side done; the consumer drains the backlog and then
// sees ok=false.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Fail is called by a consumer that hit an unrecoverable error: the backlog is
// dropped and every later Push is rejected, which is how the producer learns
// the worker is gone.
func (q *Queue[T]) Fail() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failed = true
	q.items = nil
	q.cond.Broadcast()
}

// Len reports the current backlog size.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
