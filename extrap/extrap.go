// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package extrap implements the n-layer nearest-valid extrapolation
// used by both the MAC face-velocity field and cell-centered scalar
// grids (spec.md §4.2, §4.11). It is a breadth-first sweep recorded by
// two ping-pong valid grids: a voxel becomes valid on layer k+1 if at
// least one 6-neighbor was valid on layer k, and its value becomes the
// arithmetic mean of the valid 6-neighbors at that layer.
package extrap

import "github.com/cpmech/goflip/grid3d"

var neighbors6 = [6][3]int{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

// Scalar extends a cell-centered scalar grid in place for the given
// number of layers, consuming and updating valid to reflect the newly
// validated cells.
func Scalar(grid *grid3d.Dense[float32], valid *grid3d.Dense[bool], layers int) {
	isize, jsize, ksize := grid.Dims()
	cur := valid
	for layer := 0; layer < layers; layer++ {
		next := cur.Clone()
		changed := false
		for k := 0; k < ksize; k++ {
			for j := 0; j < jsize; j++ {
				for i := 0; i < isize; i++ {
					if cur.Get(i, j, k) {
						continue
					}
					sum, n := 0.0, 0
					for _, d := range neighbors6 {
						ni, nj, nk := i+d[0], j+d[1], k+d[2]
						if cur.InBounds(ni, nj, nk) && cur.Get(ni, nj, nk) {
							sum += float64(grid.Get(ni, nj, nk))
							n++
						}
					}
					if n > 0 {
						grid.Set(i, j, k, float32(sum/float64(n)))
						next.Set(i, j, k, true)
						changed = true
					}
				}
			}
		}
		cur = next
		if !changed {
			break
		}
	}
	// propagate final validity back into the caller's mask
	isize2, jsize2, ksize2 := valid.Dims()
	for k := 0; k < ksize2; k++ {
		for j := 0; j < jsize2; j++ {
			for i := 0; i < isize2; i++ {
				valid.Set(i, j, k, cur.Get(i, j, k))
			}
		}
	}
}
