// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package worker

import (
	"sort"
	"testing"
)

func TestQueuePushPop(t *testing.T) {
	q := NewBoundedQueue[int](2)
	q.Push(1)
	q.Push(2)
	done := make(chan struct{})
	go func() {
		q.Push(3) // blocks until a slot frees
		close(done)
	}()
	v, ok := q.Pop()
	if !ok || v != 1 {
		t.Fatalf("got (%v,%v), want (1,true)", v, ok)
	}
	<-done
	rest := q.PopAll()
	if len(rest) != 2 {
		t.Fatalf("expected 2 remaining items, got %d", len(rest))
	}
}

func TestQueueFinishDrainsThenEmpty(t *testing.T) {
	q := NewBoundedQueue[int](10)
	q.PushBatch([]int{1, 2, 3})
	q.Finish()
	q.Finish() // idempotent
	var got []int
	for {
		v, ok := q.Pop()
		if !ok {
			break
		}
		got = append(got, v)
	}
	if len(got) != 3 {
		t.Fatalf("expected to drain 3 items after finish, got %d", len(got))
	}
}

func TestPoolRunProcessesEveryItem(t *testing.T) {
	pool := NewPool(4)
	in := NewBoundedQueue[int](100)
	out := NewBoundedQueue[int](100)
	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}
	in.PushBatch(items)
	in.Finish()
	Run(pool, in, func(x int) int { return x * 2 }, out)

	got := out.PopAll()
	sort.Ints(got)
	if len(got) != 100 {
		t.Fatalf("expected 100 results, got %d", len(got))
	}
	for i, v := range got {
		if v != i*2 {
			t.Fatalf("result[%d] = %d, want %d", i, v, i*2)
		}
	}
}
