// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package grid3d implements the dense and sparsely-active 3-D array
// container types shared by the MAC field and level set packages,
// grounded on original_source/src/engine/array3d.h and blockarray3d.h.
package grid3d

import (
	"fmt"

	"github.com/cpmech/gosl/chk"
)

// OutOfBounds is returned by bounds-checked accessors when no
// out-of-range sentinel has been configured, matching spec.md §7's
// OutOfBounds error taxonomy entry.
type OutOfBounds struct {
	I, J, K          int
	Isize, Jsize, Ksize int
}

func (e OutOfBounds) Error() string {
	return fmt.Sprintf("grid3d: index (%d,%d,%d) out of bounds for grid (%d,%d,%d)",
		e.I, e.J, e.K, e.Isize, e.Jsize, e.Ksize)
}

// Dense is a row-major dense 3-D array with width-first indexing:
// flat = i + W*(j + H*k). T may be any type.
type Dense[T any] struct {
	isize, jsize, ksize int
	data                []T

	hasSentinel bool
	sentinel    T
}

// NewDense allocates a zero-valued dense grid of the given dimensions.
func NewDense[T any](isize, jsize, ksize int) *Dense[T] {
	return &Dense[T]{
		isize: isize, jsize: jsize, ksize: ksize,
		data: make([]T, isize*jsize*ksize),
	}
}

// SetSentinel configures an out-of-range sentinel value; after calling
// this, Get and GetChecked never return OutOfBounds and instead return
// the sentinel for any index outside the grid.
func (g *Dense[T]) SetSentinel(v T) {
	g.hasSentinel = true
	g.sentinel = v
}

// Dims returns (isize, jsize, ksize).
func (g *Dense[T]) Dims() (int, int, int) { return g.isize, g.jsize, g.ksize }

// InBounds reports whether (i,j,k) addresses a real cell.
func (g *Dense[T]) InBounds(i, j, k int) bool {
	return i >= 0 && i < g.isize && j >= 0 && j < g.jsize && k >= 0 && k < g.ksize
}

func (g *Dense[T]) flat(i, j, k int) int { return i + g.isize*(j+g.jsize*k) }

// Get returns the element at (i,j,k), or the configured sentinel (zero
// value if none was set) when out of bounds.
func (g *Dense[T]) Get(i, j, k int) T {
	if !g.InBounds(i, j, k) {
		return g.sentinel
	}
	return g.data[g.flat(i, j, k)]
}

// GetChecked returns OutOfBounds when (i,j,k) is out of range and no
// sentinel has been configured.
func (g *Dense[T]) GetChecked(i, j, k int) (T, error) {
	if !g.InBounds(i, j, k) {
		if g.hasSentinel {
			return g.sentinel, nil
		}
		var zero T
		return zero, OutOfBounds{i, j, k, g.isize, g.jsize, g.ksize}
	}
	return g.data[g.flat(i, j, k)], nil
}

// Set assigns the element at (i,j,k). Out-of-range indices are a no-op
// when a sentinel is configured (mirrors the original engine's silent
// release-mode behavior) and otherwise panic, since Set has no error
// return in the hot path; callers that need a checked Set should call
// InBounds first.
func (g *Dense[T]) Set(i, j, k int, v T) {
	if !g.InBounds(i, j, k) {
		if g.hasSentinel {
			return
		}
		chk.Panic("%v", OutOfBounds{i, j, k, g.isize, g.jsize, g.ksize})
	}
	g.data[g.flat(i, j, k)] = v
}

// Fill assigns v to every cell.
func (g *Dense[T]) Fill(v T) {
	for i := range g.data {
		g.data[i] = v
	}
}

// Raw exposes the backing slice for bulk operations (e.g. worker-pool
// block copies). Callers must not retain it beyond the grid's lifetime
// in a way that outlives reslicing.
func (g *Dense[T]) Raw() []T { return g.data }

// Clone returns a deep copy.
func (g *Dense[T]) Clone() *Dense[T] {
	out := &Dense[T]{isize: g.isize, jsize: g.jsize, ksize: g.ksize,
		hasSentinel: g.hasSentinel, sentinel: g.sentinel}
	out.data = make([]T, len(g.data))
	copy(out.data, g.data)
	return out
}

// Adder is implemented by types whose Dense can accumulate via AddAt,
// used by scatter kernels (transfer.VelocityAdvector, ScalarFieldAdder).
type Adder interface {
	~float32 | ~float64
}

// AddAt accumulates v into the element at (i,j,k), a no-op if out of
// bounds (whether or not a sentinel is configured).
func AddAt[T Adder](g *Dense[T], i, j, k int, v T) {
	if !g.InBounds(i, j, k) {
		return
	}
	g.data[g.flat(i, j, k)] += v
}

// Feather26 grows a boolean active mask by one cell in every direction
// using 26-connectivity, so that kernels rasterizing into neighboring
// blocks still find backing storage (spec.md §4.1).
func Feather26(mask *Dense[bool]) *Dense[bool] {
	isize, jsize, ksize := mask.Dims()
	out := NewDense[bool](isize, jsize, ksize)
	for k := 0; k < ksize; k++ {
		for j := 0; j < jsize; j++ {
			for i := 0; i < isize; i++ {
				if !mask.Get(i, j, k) {
					continue
				}
				for dk := -1; dk <= 1; dk++ {
					for dj := -1; dj <= 1; dj++ {
						for di := -1; di <= 1; di++ {
							ni, nj, nk := i+di, j+dj, k+dk
							if mask.InBounds(ni, nj, nk) {
								out.Set(ni, nj, nk, true)
							}
						}
					}
				}
			}
		}
	}
	return out
}
