// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package grid3d

// BlockDims returns the number of blocks of side B needed to cover a
// logical (isize,jsize,ksize) grid, per spec.md §4.1.
func BlockDims(isize, jsize, ksize, b int) (int, int, int) {
	ceil := func(n, d int) int { return (n + d - 1) / d }
	return ceil(isize, b), ceil(jsize, b), ceil(ksize, b)
}

// Block is a contiguous B³ tile of backing storage for one active
// block, handed out disjointly by ActiveBlocks for parallel work.
type Block[T any] struct {
	ID    int
	Index [3]int // (bi, bj, bk)
	Data  []T    // length B*B*B, row-major i + B*(j + B*k)
}

// BlockGrid3D is a logical (isize,jsize,ksize) grid carved into cubic
// blocks of side B, where only explicitly-activated blocks carry
// storage; every read of an inactive block returns Background.
type BlockGrid3D[T any] struct {
	isize, jsize, ksize int
	b                   int
	bi, bj, bk          int // block-space dims

	blockID    []int // dense bi+bj*..+bk*.. -> block id, or -1
	blocks     []Block[T]
	Background T
}

// NewBlockGrid3D constructs an all-inactive block grid. Blocks are
// activated with Activate/ActivateCell, or implicitly by Set; Get on an
// inactive block always returns Background.
func NewBlockGrid3D[T any](isize, jsize, ksize, b int, background T) *BlockGrid3D[T] {
	bi, bj, bk := BlockDims(isize, jsize, ksize, b)
	g := &BlockGrid3D[T]{
		isize: isize, jsize: jsize, ksize: ksize, b: b,
		bi: bi, bj: bj, bk: bk,
		blockID:    make([]int, bi*bj*bk),
		Background: background,
	}
	for i := range g.blockID {
		g.blockID[i] = -1
	}
	return g
}

// B returns the block side length.
func (g *BlockGrid3D[T]) B() int { return g.b }

// Dims returns the logical grid dimensions.
func (g *BlockGrid3D[T]) Dims() (int, int, int) { return g.isize, g.jsize, g.ksize }

// BlockIndexDims returns the block-space dimensions (bi,bj,bk).
func (g *BlockGrid3D[T]) BlockIndexDims() (int, int, int) { return g.bi, g.bj, g.bk }

func (g *BlockGrid3D[T]) blockFlat(bi, bj, bk int) int { return bi + g.bi*(bj+g.bj*bk) }

// IsActive reports whether the block containing logical index (i,j,k)
// has backing storage.
func (g *BlockGrid3D[T]) IsActive(i, j, k int) bool {
	bi, bj, bk, ok := g.blockOf(i, j, k)
	if !ok {
		return false
	}
	return g.blockID[g.blockFlat(bi, bj, bk)] != -1
}

func (g *BlockGrid3D[T]) blockOf(i, j, k int) (bi, bj, bk int, ok bool) {
	if i < 0 || i >= g.isize || j < 0 || j >= g.jsize || k < 0 || k >= g.ksize {
		return 0, 0, 0, false
	}
	return i / g.b, j / g.b, k / g.b, true
}

// Activate ensures the block at block-index (bi,bj,bk) has backing
// storage, allocating a fresh B³ tile filled with Background if it was
// not already active. Returns the block id.
func (g *BlockGrid3D[T]) Activate(bi, bj, bk int) int {
	flat := g.blockFlat(bi, bj, bk)
	if id := g.blockID[flat]; id != -1 {
		return id
	}
	id := len(g.blocks)
	data := make([]T, g.b*g.b*g.b)
	for i := range data {
		data[i] = g.Background
	}
	g.blocks = append(g.blocks, Block[T]{ID: id, Index: [3]int{bi, bj, bk}, Data: data})
	g.blockID[flat] = id
	return id
}

// ActivateCell activates the block containing logical index (i,j,k).
func (g *BlockGrid3D[T]) ActivateCell(i, j, k int) {
	bi, bj, bk, ok := g.blockOf(i, j, k)
	if ok {
		g.Activate(bi, bj, bk)
	}
}

// Get returns the value at logical (i,j,k), or Background if the
// containing block is inactive or the index is out of range.
func (g *BlockGrid3D[T]) Get(i, j, k int) T {
	bi, bj, bk, ok := g.blockOf(i, j, k)
	if !ok {
		return g.Background
	}
	id := g.blockID[g.blockFlat(bi, bj, bk)]
	if id == -1 {
		return g.Background
	}
	off := g.inBlockOffset(i, j, k, bi, bj, bk)
	return g.blocks[id].Data[off]
}

// Set assigns the value at logical (i,j,k), activating the containing
// block first if necessary.
func (g *BlockGrid3D[T]) Set(i, j, k int, v T) {
	bi, bj, bk, ok := g.blockOf(i, j, k)
	if !ok {
		return
	}
	id := g.Activate(bi, bj, bk)
	off := g.inBlockOffset(i, j, k, bi, bj, bk)
	g.blocks[id].Data[off] = v
}

func (g *BlockGrid3D[T]) inBlockOffset(i, j, k, bi, bj, bk int) int {
	li, lj, lk := i-bi*g.b, j-bj*g.b, k-bk*g.b
	return li + g.b*(lj+g.b*lk)
}

// NumActiveBlocks returns the number of currently-active blocks.
func (g *BlockGrid3D[T]) NumActiveBlocks() int { return len(g.blocks) }

// ActiveBlocks returns every active block's data as disjoint slices,
// safe to hand to separate worker-pool goroutines concurrently: no two
// returned Data slices alias the same backing array, satisfying
// spec.md §8's block-grid disjointness invariant.
func (g *BlockGrid3D[T]) ActiveBlocks() []Block[T] {
	return g.blocks
}

// ActivateFromMask activates every block containing at least one true
// cell of mask (dims isize,jsize,ksize matching this grid's logical
// dims), used to pre-seed storage before a scatter kernel runs.
func (g *BlockGrid3D[T]) ActivateFromMask(mask *Dense[bool]) {
	isize, jsize, ksize := mask.Dims()
	for k := 0; k < ksize; k++ {
		for j := 0; j < jsize; j++ {
			for i := 0; i < isize; i++ {
				if mask.Get(i, j, k) {
					g.ActivateCell(i, j, k)
				}
			}
		}
	}
}
