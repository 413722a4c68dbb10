package pipeline

import "sync/atomic"

// WorkQueue hands out work items to concurrent workers via a single
// monotonic counter, the Go equivalent of the original's
// AtomicUsize-backed work_queue::WorkQueue.
type WorkQueue[T any] struct {
	work []T
	next uint64
}

// NewWorkQueue wraps work for concurrent consumption. work is not
// copied; callers must not mutate it afterward.
func NewWorkQueue[T any](work []T) *WorkQueue[T] {
	return &WorkQueue[T]{work: work}
}

// Next claims the next item, returning its index, the item, and true;
// ok is false once every item has been claimed.
func (q *WorkQueue[T]) Next() (int, T, bool) {
	cur := atomic.AddUint64(&q.next, 1) - 1
	if cur >= uint64(len(q.work)) {
		var zero T
		return 0, zero, false
	}
	return int(cur), q.work[cur], true
}

// Len returns the total number of items in the queue.
func (q *WorkQueue[T]) Len() int {
	return len(q.work)
}

// Stop marks the queue as exhausted: every subsequent Next call returns
// ok=false, even if items remain unclaimed.
func (q *WorkQueue[T]) Stop() {
	atomic.StoreUint64(&q.next, uint64(len(q.work)))
}

// IsStopped reports whether every item has been claimed or Stop was
// called.
func (q *WorkQueue[T]) IsStopped() bool {
	return atomic.LoadUint64(&q.next) >= uint64(len(q.work))
}
