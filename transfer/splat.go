// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transfer

import (
	"github.com/cpmech/goflip/blocksort"
	"github.com/cpmech/goflip/grid3d"
	"github.com/cpmech/goflip/vmath"
	"github.com/cpmech/goflip/worker"
)

// blockSide is the block side length, in lattice cells, that splat
// partitions a destination grid into for block-parallel scatter
// (spec.md §4.5's "block grid of side-length B·dx", B=blockSide).
const blockSide = 4

// posFunc maps a destination lattice index to its world-space
// position (mac.Field.FaceIndexToPosition for a face grid, or a
// cell-center formula for a scalar grid).
type posFunc func(i, j, k int) vmath.Vec3

// splat rasterizes one scalar payload per particle (values[i] for
// points[i]) onto outValue using Kernel, dispatched block-parallel
// over pool, then normalizes by accumulated weight and marks
// outValid. This is the shared engine behind VelocityAdvector (called
// once per staggered component) and ScalarFieldAdder (spec.md
// §4.6/§4.7): "the worker pool, kernel, normalization, and block
// assembly steps are identical."
func splat(pool *worker.Pool, points []vmath.Vec3, values []float64, r, dx float64,
	outValue *grid3d.Dense[float32], outValid *grid3d.Dense[bool], pos posFunc) {

	isize, jsize, ksize := outValue.Dims()
	outValue.Fill(0)
	weight := grid3d.NewDense[float32](isize, jsize, ksize)
	bi, bj, _ := blocksort.BlockDims(isize, jsize, ksize, blockSide)

	res := blocksort.Sort(points, vmath.Vec3{}, r, dx, isize, jsize, ksize, blockSide, pool.Size())

	in := worker.NewBoundedQueue[int](res.NumBlocks + 1)
	for b := 0; b < res.NumBlocks; b++ {
		if res.BlockToSortedOffset[b+1] > res.BlockToSortedOffset[b] {
			in.Push(b)
		}
	}
	in.Finish()

	worker.RunVoid(pool, in, func(b int) {
		biI := b % bi
		bjI := (b / bi) % bj
		bkI := b / (bi * bj)
		iLo, iHi := biI*blockSide, clampHi((biI+1)*blockSide, isize)
		jLo, jHi := bjI*blockSide, clampHi((bjI+1)*blockSide, jsize)
		kLo, kHi := bkI*blockSide, clampHi((bkI+1)*blockSide, ksize)

		lo, hi := res.BlockToSortedOffset[b], res.BlockToSortedOffset[b+1]
		for idx := lo; idx < hi; idx++ {
			pt := res.SortedPoints[idx]
			p := pt.Position
			v := values[pt.Origin]
			for k := kLo; k < kHi; k++ {
				for j := jLo; j < jHi; j++ {
					for i := iLo; i < iHi; i++ {
						d2 := pos(i, j, k).Sub(p).LengthSq()
						w := Kernel(d2, r)
						if w <= 0 {
							continue
						}
						outValue.Set(i, j, k, outValue.Get(i, j, k)+float32(w*v))
						weight.Set(i, j, k, weight.Get(i, j, k)+float32(w))
					}
				}
			}
		}
	})

	const eps = 1e-10
	valueRaw, weightRaw, validRaw := outValue.Raw(), weight.Raw(), outValid.Raw()
	for i := range valueRaw {
		if weightRaw[i] > eps {
			valueRaw[i] /= weightRaw[i]
			validRaw[i] = true
		} else {
			valueRaw[i] = 0
			validRaw[i] = false
		}
	}
}

func clampHi(v, max int) int {
	if v > max {
		return max
	}
	return v
}
