// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blocksort

import (
	"testing"

	"github.com/cpmech/goflip/vmath"
)

func TestSortRoundTrip(t *testing.T) {
	dx := 0.1
	isize, jsize, ksize, b := 16, 16, 16, 4
	// positions sit half a cell off the block faces (multiples of 4*dx=0.4),
	// and the tiny radius keeps every particle "simple"
	r := 0.01

	positions := make([]vmath.Vec3, 200)
	for i := range positions {
		positions[i] = vmath.Vec3{
			X: dx * (float64(3+2*i%13) + 0.5),
			Y: dx * (float64(1+3*i%11) + 0.5),
			Z: dx * (float64(2+5*i%9) + 0.5),
		}
	}

	res := Sort(positions, vmath.Vec3{}, r, dx, isize, jsize, ksize, b, 4)

	if len(res.SortedPoints) != len(positions) {
		t.Fatalf("expected no duplication for simple particles, got %d sorted points for %d particles", len(res.SortedPoints), len(positions))
	}

	restored := make([]vmath.Vec3, len(positions))
	sortedValues := make([]vmath.Vec3, len(res.SortedPoints))
	for i, p := range res.SortedPoints {
		sortedValues[i] = p.Position
	}
	Unsort(res, sortedValues, restored, func(prev, next vmath.Vec3) vmath.Vec3 { return next })

	for i := range positions {
		if restored[i] != positions[i] {
			t.Fatalf("round-trip mismatch at %d: got %v, want %v", i, restored[i], positions[i])
		}
	}
}

func TestSortBlockOffsetsMonotone(t *testing.T) {
	dx := 0.1
	res := Sort(
		[]vmath.Vec3{{X: 0.05, Y: 0.05, Z: 0.05}, {X: 1.05, Y: 1.05, Z: 1.05}},
		vmath.Vec3{}, 0.01, dx, 16, 16, 16, 4, 2,
	)
	for b := 0; b < res.NumBlocks; b++ {
		if res.BlockToSortedOffset[b+1] < res.BlockToSortedOffset[b] {
			t.Fatalf("offsets not monotone at block %d", b)
		}
	}
	if res.BlockToSortedOffset[res.NumBlocks] != len(res.SortedPoints) {
		t.Fatalf("final offset should equal total sorted count")
	}
}

func TestSortSpanningParticleDuplicates(t *testing.T) {
	dx := 0.1
	blockSide := 4 * dx // b=4
	// place a particle exactly on a block boundary with a radius large
	// enough to straddle into the neighboring block.
	res := Sort(
		[]vmath.Vec3{{X: blockSide, Y: blockSide / 2, Z: blockSide / 2}},
		vmath.Vec3{}, dx, dx, 16, 16, 16, 4, 1,
	)
	if len(res.SortedPoints) < 2 {
		t.Fatalf("expected spanning particle to duplicate into >=2 blocks, got %d", len(res.SortedPoints))
	}
	for _, p := range res.SortedPoints {
		if p.Origin != 0 {
			t.Fatalf("all duplicates should share origin 0, got %d", p.Origin)
		}
	}
}
