// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solve

import (
	"math"
	"testing"

	"github.com/cpmech/goflip/grid3d"
	"github.com/cpmech/goflip/levelset"
	"github.com/cpmech/goflip/mac"
)

func allOpenMeshLevelSet(isize, jsize, ksize int, dx float64) *levelset.MeshLevelSet {
	ls := levelset.NewMeshLevelSet(isize, jsize, ksize, dx)
	ls.Phi.Fill(1) // positive everywhere: no solid anywhere
	ls.WeightU.Fill(1)
	ls.WeightV.Fill(1)
	ls.WeightW.Fill(1)
	return ls
}

func allLiquidParticleLevelSet(isize, jsize, ksize int, dx float64) *levelset.ParticleLevelSet {
	ls := levelset.NewParticleLevelSet(isize, jsize, ksize, dx)
	ls.Phi.Fill(-1) // negative everywhere: all liquid
	return ls
}

func divergenceAt(field *mac.Field, weights *levelset.MeshLevelSet, i, j, k int) float64 {
	dx := field.Dx
	return (float64(field.U.Get(i+1, j, k))*float64(weights.WeightU.Get(i+1, j, k)) -
		float64(field.U.Get(i, j, k))*float64(weights.WeightU.Get(i, j, k)) +
		float64(field.V.Get(i, j+1, k))*float64(weights.WeightV.Get(i, j+1, k)) -
		float64(field.V.Get(i, j, k))*float64(weights.WeightV.Get(i, j, k)) +
		float64(field.W.Get(i, j, k+1))*float64(weights.WeightW.Get(i, j, k+1)) -
		float64(field.W.Get(i, j, k))*float64(weights.WeightW.Get(i, j, k))) / dx
}

func TestPressureSolverReducesDivergence(t *testing.T) {
	dx := 0.1
	isize, jsize, ksize := 8, 8, 8
	field := mac.NewField(isize, jsize, ksize, dx)
	// a divergent source in the middle of the domain: U ramps up with i
	for k := 0; k < ksize; k++ {
		for j := 0; j < jsize; j++ {
			for i := 0; i <= isize; i++ {
				field.U.Set(i, j, k, float32(i)*0.1)
			}
		}
	}

	liquid := allLiquidParticleLevelSet(isize, jsize, ksize, dx)
	solid := allOpenMeshLevelSet(isize, jsize, ksize, dx)

	maxDivBefore := 0.0
	for k := 1; k < ksize-1; k++ {
		for j := 1; j < jsize-1; j++ {
			for i := 1; i < isize-1; i++ {
				d := math.Abs(divergenceAt(field, solid, i, j, k))
				if d > maxDivBefore {
					maxDivBefore = d
				}
			}
		}
	}
	if maxDivBefore == 0 {
		t.Fatal("test setup should start with nonzero divergence")
	}

	solver := NewPressureSolver(1000)
	dt := 0.01
	result := solver.Project(field, liquid, solid, dt)
	if result.Status == Diverged {
		t.Fatalf("pressure solve diverged: %+v", result)
	}

	maxDivAfter := 0.0
	for k := 1; k < ksize-1; k++ {
		for j := 1; j < jsize-1; j++ {
			for i := 1; i < isize-1; i++ {
				d := math.Abs(divergenceAt(field, solid, i, j, k))
				if d > maxDivAfter {
					maxDivAfter = d
				}
			}
		}
	}
	if maxDivAfter >= maxDivBefore {
		t.Fatalf("expected divergence to shrink: before=%v after=%v", maxDivBefore, maxDivAfter)
	}
}

func TestViscositySolverNoOpWhenZeroViscosity(t *testing.T) {
	dx := 0.1
	isize, jsize, ksize := 6, 6, 6
	field := mac.NewField(isize, jsize, ksize, dx)
	for i := range field.U.Raw() {
		field.U.Raw()[i] = 1
	}
	solid := allOpenMeshLevelSet(isize, jsize, ksize, dx)
	nu := grid3d.NewDense[float64](isize, jsize, ksize) // all zero

	before := append([]float32(nil), field.U.Raw()...)
	v := NewViscositySolver(1000)
	result := v.Solve(field, solid, nu, 0.01)
	if result.Status == Diverged {
		t.Fatalf("expected no divergence with zero viscosity, got %+v", result)
	}
	for i, want := range before {
		if math.Abs(float64(field.U.Raw()[i]-want)) > 1e-4 {
			t.Fatalf("zero viscosity should leave velocities unchanged at %d: got %v want %v", i, field.U.Raw()[i], want)
		}
	}
}
