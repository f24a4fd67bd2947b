// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package worker implements the fixed-capacity producer/consumer queue
// and thread pool described in spec.md §4.13, grounded on
// original_source/src/engine/boundedbuffer.h. There is no corpus
// dependency for bounded MPMC queueing (see DESIGN.md), so this package
// is standard-library (sync.Mutex + sync.Cond), matching gofem's own
// practice of dropping to bare-stdlib concurrency primitives around its
// mpi.* calls.
package worker

import (
	"sync"

	"github.com/cpmech/gosl/chk"
)

// BoundedQueue is a capacity-N multi-producer multi-consumer queue.
// Push blocks while the queue is full; Pop blocks while the queue is
// empty until Finish is called, after which Pop drains any remaining
// items and then returns ok=false.
type BoundedQueue[T any] struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond
	items    []T
	capacity int
	finished bool
}

// NewBoundedQueue returns an empty queue of the given capacity.
func NewBoundedQueue[T any](capacity int) *BoundedQueue[T] {
	q := &BoundedQueue[T]{capacity: capacity}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Push adds item, blocking while the queue is at capacity. Pushing
// after Finish has been called is a programmer error and panics, same
// as writing to a closed channel.
func (q *BoundedQueue[T]) Push(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) >= q.capacity && !q.finished {
		q.notFull.Wait()
	}
	if q.finished {
		chk.Panic("worker: push on finished BoundedQueue")
	}
	q.items = append(q.items, item)
	q.notEmpty.Signal()
}

// PushBatch pushes every item in batch, in order.
func (q *BoundedQueue[T]) PushBatch(batch []T) {
	for _, item := range batch {
		q.Push(item)
	}
}

// Pop removes and returns the oldest item, blocking while the queue is
// empty and not finished. ok is false only once the queue is both
// finished and drained.
func (q *BoundedQueue[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.finished {
		q.notEmpty.Wait()
	}
	if len(q.items) == 0 {
		return item, false
	}
	item = q.items[0]
	q.items = q.items[1:]
	q.notFull.Signal()
	return item, true
}

// PopUpTo pops at most n items without blocking past the first
// available item; it blocks until at least one item is available or
// the queue is finished and empty. Returns the items popped.
func (q *BoundedQueue[T]) PopUpTo(n int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.finished {
		q.notEmpty.Wait()
	}
	if n > len(q.items) {
		n = len(q.items)
	}
	out := make([]T, n)
	copy(out, q.items[:n])
	q.items = q.items[n:]
	q.notFull.Broadcast()
	return out
}

// PopAll drains every currently queued item without blocking.
func (q *BoundedQueue[T]) PopAll() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	q.notFull.Broadcast()
	return out
}

// Len returns the current queue length.
func (q *BoundedQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Finish releases every blocked Push and Pop waiter. Idempotent: a
// producer may call Finish multiple times.
func (q *BoundedQueue[T]) Finish() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.finished = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}
