// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package worker

import (
	"runtime"
	"sync"
)

// Pool is a fixed thread-count worker pool, sized to hardware
// concurrency by default (spec.md §4.13).
type Pool struct {
	n int
}

// NewPool returns a pool with n workers, or runtime.NumCPU() workers
// when n <= 0.
func NewPool(n int) *Pool {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return &Pool{n: n}
}

// Size returns the configured worker count.
func (p *Pool) Size() int { return p.n }

// Run starts p.Size() goroutines that pop batches of items from in,
// apply fn to each, and push results to out. Run blocks until in is
// both Finish()-ed and drained by every worker, at which point it
// calls out.Finish() exactly once (idempotent regardless) and returns.
//
// Ordering: per spec.md §4.13, results may be pushed to out in any
// order across workers; callers must depend only on the "all done"
// signal (out.Finish() plus Pop returning ok=false), never on arrival
// order.
func Run[T, R any](p *Pool, in *BoundedQueue[T], fn func(T) R, out *BoundedQueue[R]) {
	const batch = 16
	var wg sync.WaitGroup
	wg.Add(p.n)
	for w := 0; w < p.n; w++ {
		go func() {
			defer wg.Done()
			for {
				items := in.PopUpTo(batch)
				if len(items) == 0 {
					if in.Len() == 0 {
						return
					}
					continue
				}
				for _, item := range items {
					out.Push(fn(item))
				}
			}
		}()
	}
	wg.Wait()
	out.Finish()
}

// RunVoid is Run's side-effecting variant: fn mutates shared but
// disjoint state (e.g. writing into distinct BlockGrid3D tiles) and
// returns nothing; RunVoid returns once every worker has drained in.
func RunVoid[T any](p *Pool, in *BoundedQueue[T], fn func(T)) {
	var wg sync.WaitGroup
	wg.Add(p.n)
	for w := 0; w < p.n; w++ {
		go func() {
			defer wg.Done()
			for {
				items := in.PopUpTo(16)
				if len(items) == 0 {
					if in.Len() == 0 {
						return
					}
					continue
				}
				for _, item := range items {
					fn(item)
				}
			}
		}()
	}
	wg.Wait()
}
