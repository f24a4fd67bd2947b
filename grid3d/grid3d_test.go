// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package grid3d

import "testing"

func TestDenseGetSet(t *testing.T) {
	g := NewDense[float64](4, 3, 2)
	g.Set(1, 2, 1, 5.0)
	if got := g.Get(1, 2, 1); got != 5.0 {
		t.Fatalf("got %v, want 5.0", got)
	}
	if got := g.Get(100, 0, 0); got != 0 {
		t.Fatalf("expected zero-value sentinel, got %v", got)
	}
}

func TestDenseCheckedOutOfBounds(t *testing.T) {
	g := NewDense[float64](2, 2, 2)
	_, err := g.GetChecked(5, 0, 0)
	if err == nil {
		t.Fatal("expected OutOfBounds error")
	}
	if _, ok := err.(OutOfBounds); !ok {
		t.Fatalf("expected OutOfBounds, got %T", err)
	}
}

func TestDenseSentinel(t *testing.T) {
	g := NewDense[float64](2, 2, 2)
	g.SetSentinel(-1)
	v, err := g.GetChecked(9, 9, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != -1 {
		t.Fatalf("got %v, want sentinel -1", v)
	}
}

func TestFeather26(t *testing.T) {
	mask := NewDense[bool](5, 5, 5)
	mask.Set(2, 2, 2, true)
	out := Feather26(mask)
	for dk := -1; dk <= 1; dk++ {
		for dj := -1; dj <= 1; dj++ {
			for di := -1; di <= 1; di++ {
				if !out.Get(2+di, 2+dj, 2+dk) {
					t.Fatalf("expected (%d,%d,%d) set after feathering", 2+di, 2+dj, 2+dk)
				}
			}
		}
	}
	if out.Get(0, 0, 0) {
		t.Fatal("far cell should not be set")
	}
}

func TestBlockGrid3DDisjointness(t *testing.T) {
	g := NewBlockGrid3D[float64](20, 20, 20, 8, 0)
	g.Set(1, 1, 1, 1)
	g.Set(15, 15, 15, 2)
	g.Set(9, 1, 1, 3)
	blocks := g.ActiveBlocks()
	if len(blocks) != 3 {
		t.Fatalf("expected 3 active blocks, got %d", len(blocks))
	}
	seen := make(map[*float64]bool)
	for _, b := range blocks {
		ptr := &b.Data[0]
		if seen[ptr] {
			t.Fatal("two blocks alias the same backing array")
		}
		seen[ptr] = true
	}
	if g.Get(1, 1, 1) != 1 || g.Get(15, 15, 15) != 2 || g.Get(9, 1, 1) != 3 {
		t.Fatal("round-trip through block storage failed")
	}
	if g.Get(0, 0, 0) != 0 {
		t.Fatal("inactive cell should read Background")
	}
}

func TestBlockDims(t *testing.T) {
	bi, bj, bk := BlockDims(17, 16, 1, 8)
	if bi != 3 || bj != 2 || bk != 1 {
		t.Fatalf("got (%d,%d,%d)", bi, bj, bk)
	}
}
