// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package blocksort spatially sorts particles into block-cells so that
// per-block kernels (transfer.VelocityAdvector, transfer.ScalarFieldAdder)
// can run embarrassingly parallel over disjoint blocks (spec.md §4.5).
package blocksort

import (
	"math"
	"sync"

	"github.com/cpmech/goflip/vmath"
)

// Point is one sorted-array entry: a particle position, the origin
// index into the caller's particle array (for round-tripping a
// scatter back into particle order), and the block id it was sorted
// into.
type Point struct {
	Position vmath.Vec3
	Origin   int
	BlockID  int
}

// Result is the output of Sort: a particle array reordered (and, for
// spanning particles, duplicated) by block, plus the offset table
// needed to find a block's particle range in SortedPoints.
type Result struct {
	SortedPoints       []Point
	BlockToSortedOffset []int // length numBlocks+1, sentinel end at [numBlocks]
	NumBlocks           int
}

// BlockDims mirrors grid3d.BlockDims without importing grid3d, since
// blocksort only needs block-space extents, not storage. Exported so
// callers (e.g. transfer) can map a block id back to its index range
// without recomputing it.
func BlockDims(isize, jsize, ksize, b int) (int, int, int) {
	ceil := func(n, d int) int { return (n + d - 1) / d }
	return ceil(isize, b), ceil(jsize, b), ceil(ksize, b)
}

// Sort spatially sorts positions (offset by off before bucketing, so
// staggered face grids can be sorted directly per spec.md §4.6)
// into blocks of side b*dx covering a logical (isize,jsize,ksize)
// grid. A particle of influence radius r is "simple" (falls in
// exactly one block) when its radius doesn't reach across a block
// boundary; otherwise it's "spanning" and is duplicated into every
// block its support overlaps, per spec.md §4.5. nthreads goroutines
// split the particle list for the counting pass.
func Sort(positions []vmath.Vec3, off vmath.Vec3, r, dx float64, isize, jsize, ksize, b, nthreads int) Result {
	bi, bj, bk := BlockDims(isize, jsize, ksize, b)
	numBlocks := bi * bj * bk
	n := len(positions)
	if nthreads <= 0 {
		nthreads = 1
	}

	blockSide := float64(b) * dx

	type classified struct {
		origin  int
		simple  bool
		blockID int   // valid when simple
		blocks  []int // valid when spanning
	}

	chunks := make([][]classified, nthreads)
	counts := make([][]int, nthreads)
	chunkSize := (n + nthreads - 1) / nthreads
	if chunkSize == 0 {
		chunkSize = 1
	}

	var wg sync.WaitGroup
	for t := 0; t < nthreads; t++ {
		lo := t * chunkSize
		hi := lo + chunkSize
		if lo > n {
			lo = n
		}
		if hi > n {
			hi = n
		}
		wg.Add(1)
		go func(t, lo, hi int) {
			defer wg.Done()
			local := make([]classified, 0, hi-lo)
			localCount := make([]int, numBlocks)
			for idx := lo; idx < hi; idx++ {
				p := positions[idx].Add(off)
				ids := overlappingBlocks(p, r, blockSide, bi, bj, bk)
				if len(ids) == 1 {
					localCount[ids[0]]++
					local = append(local, classified{origin: idx, simple: true, blockID: ids[0]})
				} else {
					for _, id := range ids {
						localCount[id]++
					}
					local = append(local, classified{origin: idx, simple: false, blocks: ids})
				}
			}
			chunks[t] = local
			counts[t] = localCount
		}(t, lo, hi)
	}
	wg.Wait()

	globalCount := make([]int, numBlocks)
	for t := 0; t < nthreads; t++ {
		for b := 0; b < numBlocks; b++ {
			globalCount[b] += counts[t][b]
		}
	}

	offsets := make([]int, numBlocks+1)
	for b := 0; b < numBlocks; b++ {
		offsets[b+1] = offsets[b] + globalCount[b]
	}

	cursor := make([]int, numBlocks)
	copy(cursor, offsets[:numBlocks])

	total := offsets[numBlocks]
	sorted := make([]Point, total)
	for t := 0; t < nthreads; t++ {
		for _, c := range chunks[t] {
			p := positions[c.origin]
			if c.simple {
				idx := cursor[c.blockID]
				cursor[c.blockID]++
				sorted[idx] = Point{Position: p, Origin: c.origin, BlockID: c.blockID}
				continue
			}
			for _, id := range c.blocks {
				idx := cursor[id]
				cursor[id]++
				sorted[idx] = Point{Position: p, Origin: c.origin, BlockID: id}
			}
		}
	}

	return Result{SortedPoints: sorted, BlockToSortedOffset: offsets, NumBlocks: numBlocks}
}

// overlappingBlocks returns the block ids (flattened bi+bj*bi_dim+bk*bi_dim*bj_dim)
// whose cube (of side blockSide, origin at block-index*blockSide) lies
// within r of the shifted position p. A particle is "simple" when
// exactly one block id is returned.
func overlappingBlocks(p vmath.Vec3, r, blockSide float64, bi, bj, bk int) []int {
	loI := int(math.Floor((p.X - r) / blockSide))
	hiI := int(math.Floor((p.X + r) / blockSide))
	loJ := int(math.Floor((p.Y - r) / blockSide))
	hiJ := int(math.Floor((p.Y + r) / blockSide))
	loK := int(math.Floor((p.Z - r) / blockSide))
	hiK := int(math.Floor((p.Z + r) / blockSide))

	var ids []int
	for k := loK; k <= hiK; k++ {
		if k < 0 || k >= bk {
			continue
		}
		for j := loJ; j <= hiJ; j++ {
			if j < 0 || j >= bj {
				continue
			}
			for i := loI; i <= hiI; i++ {
				if i < 0 || i >= bi {
					continue
				}
				ids = append(ids, i+bi*(j+bj*k))
			}
		}
	}
	return ids
}

// Unsort restores the original particle-order sequence by scattering
// sorted values (one per kept SortedPoints entry, e.g. updated
// positions) back to a slice indexed by Origin. Spanning-particle
// duplicates all carry the same Origin, so the caller's combine
// function resolves which of the duplicate's values wins (e.g. "last
// write" or a reduction). Entries are visited in ascending
// BlockToSortedOffset order: the first entry for an Origin is stored
// as is, and combine is called for each later entry with that Origin.
func Unsort[T any](res Result, sortedValues []T, out []T, combine func(prev, next T) T) {
	seen := make([]bool, len(out))
	for idx, pt := range res.SortedPoints {
		v := sortedValues[idx]
		if !seen[pt.Origin] {
			out[pt.Origin] = v
			seen[pt.Origin] = true
		} else {
			out[pt.Origin] = combine(out[pt.Origin], v)
		}
	}
}
