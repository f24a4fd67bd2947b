// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solve

import (
	"github.com/cpmech/goflip/grid3d"
	"github.com/cpmech/goflip/levelset"
	"github.com/cpmech/goflip/mac"
)

// PressureSolver enforces ∇·u = 0 in the liquid by solving the
// variational weighted Poisson system of spec.md §4.9 and applying
// the resulting pressure gradient to the MAC face velocities.
type PressureSolver struct {
	Density       float64
	MinTheta      float64
	Tol           float64
	AcceptableTol float64
	MaxIterations int
}

// NewPressureSolver returns a solver with the tolerances named in
// spec.md §4.9 (tol=1e-9, acceptable_tol=1.0, max_iterations=1000).
func NewPressureSolver(density float64) *PressureSolver {
	return &PressureSolver{
		Density: density, MinTheta: 0.01,
		Tol: 1e-9, AcceptableTol: 1.0, MaxIterations: 1000,
	}
}

// Project solves for pressure and updates field's face velocities in
// place, returning the solve's Result. Only faces bordering at least
// one liquid cell are modified; faces entirely within solid or air
// are left untouched.
func (p *PressureSolver) Project(field *mac.Field, liquid *levelset.ParticleLevelSet, solid *levelset.MeshLevelSet, dt float64) Result {
	st := p.buildStencil(field, liquid, solid, dt)
	pressure, result := st.Solve(p.Tol, p.AcceptableTol, p.MaxIterations)
	p.applyGradient(field, liquid, solid, pressure, dt)
	return result
}

func isLiquidCell(liquid *levelset.ParticleLevelSet, i, j, k int) bool {
	return liquid.Phi.Get(i, j, k) < 0
}

// theta is the ghost-fluid interpolation fraction between a liquid
// cell (phiLiquid<0) and its air neighbor (phiAir>=0), clamped away
// from zero to avoid a singular coefficient (spec.md §4.9).
func theta(phiLiquid, phiAir, minTheta float64) float64 {
	denom := phiLiquid - phiAir
	if denom == 0 {
		return minTheta
	}
	t := phiLiquid / denom
	if t < minTheta {
		t = minTheta
	}
	return t
}

// coupleFace folds one face's weighted Poisson coefficient into the
// stencil's diagonal (and, when both neighbors are liquid, the shared
// off-diagonal), applying the ghost-fluid theta scaling when one side
// is air (spec.md §4.9's discretization).
func coupleFace(st *Stencil, liquid *levelset.ParticleLevelSet, minTheta, scale float64, w float64,
	li, lj, lk, ri, rj, rk int, aplus *grid3d.Dense[float64], hasLeft, hasRight bool) {
	if w <= 0 {
		return
	}
	leftLiquid := hasLeft && isLiquidCell(liquid, li, lj, lk)
	rightLiquid := hasRight && isLiquidCell(liquid, ri, rj, rk)

	switch {
	case hasLeft && hasRight && leftLiquid && rightLiquid:
		st.Adiag.Set(li, lj, lk, st.Adiag.Get(li, lj, lk)+scale*w)
		st.Adiag.Set(ri, rj, rk, st.Adiag.Get(ri, rj, rk)+scale*w)
		aplus.Set(li, lj, lk, aplus.Get(li, lj, lk)-scale*w)
	case leftLiquid && !rightLiquid:
		phiL := float64(liquid.Phi.Get(li, lj, lk))
		if hasRight {
			phiR := float64(liquid.Phi.Get(ri, rj, rk))
			t := theta(phiL, phiR, minTheta)
			st.Adiag.Set(li, lj, lk, st.Adiag.Get(li, lj, lk)+scale*w/t)
		} else {
			st.Adiag.Set(li, lj, lk, st.Adiag.Get(li, lj, lk)+scale*w)
		}
	case rightLiquid && !leftLiquid:
		phiR := float64(liquid.Phi.Get(ri, rj, rk))
		if hasLeft {
			phiL := float64(liquid.Phi.Get(li, lj, lk))
			t := theta(phiR, phiL, minTheta)
			st.Adiag.Set(ri, rj, rk, st.Adiag.Get(ri, rj, rk)+scale*w/t)
		} else {
			st.Adiag.Set(ri, rj, rk, st.Adiag.Get(ri, rj, rk)+scale*w)
		}
	}
}

func (p *PressureSolver) buildStencil(field *mac.Field, liquid *levelset.ParticleLevelSet, solid *levelset.MeshLevelSet, dt float64) *Stencil {
	isize, jsize, ksize := liquid.Isize, liquid.Jsize, liquid.Ksize
	dx := field.Dx
	st := NewStencil(isize, jsize, ksize)
	scale := dt / (p.Density * dx * dx)

	for k := 0; k < ksize; k++ {
		for j := 0; j < jsize; j++ {
			for i := 0; i < isize; i++ {
				st.Active.Set(i, j, k, isLiquidCell(liquid, i, j, k))
			}
		}
	}

	for k := 0; k < ksize; k++ {
		for j := 0; j < jsize; j++ {
			for i := 0; i <= isize; i++ {
				w := float64(solid.WeightU.Get(i, j, k))
				coupleFace(st, liquid, p.MinTheta, scale, w, i-1, j, k, i, j, k, st.Aplusi, i-1 >= 0, i < isize)
			}
		}
	}
	for k := 0; k < ksize; k++ {
		for j := 0; j <= jsize; j++ {
			for i := 0; i < isize; i++ {
				w := float64(solid.WeightV.Get(i, j, k))
				coupleFace(st, liquid, p.MinTheta, scale, w, i, j-1, k, i, j, k, st.Aplusj, j-1 >= 0, j < jsize)
			}
		}
	}
	for k := 0; k <= ksize; k++ {
		for j := 0; j < jsize; j++ {
			for i := 0; i < isize; i++ {
				w := float64(solid.WeightW.Get(i, j, k))
				coupleFace(st, liquid, p.MinTheta, scale, w, i, j, k-1, i, j, k, st.Aplusk, k-1 >= 0, k < ksize)
			}
		}
	}

	for k := 0; k < ksize; k++ {
		for j := 0; j < jsize; j++ {
			for i := 0; i < isize; i++ {
				if !isLiquidCell(liquid, i, j, k) {
					continue
				}
				div := float64(field.U.Get(i+1, j, k))*float64(solid.WeightU.Get(i+1, j, k)) -
					float64(field.U.Get(i, j, k))*float64(solid.WeightU.Get(i, j, k)) +
					float64(field.V.Get(i, j+1, k))*float64(solid.WeightV.Get(i, j+1, k)) -
					float64(field.V.Get(i, j, k))*float64(solid.WeightV.Get(i, j, k)) +
					float64(field.W.Get(i, j, k+1))*float64(solid.WeightW.Get(i, j, k+1)) -
					float64(field.W.Get(i, j, k))*float64(solid.WeightW.Get(i, j, k))
				st.Rhs.Set(i, j, k, -div/dx)
			}
		}
	}

	return st
}

// applyGradient updates face velocities per spec.md §4.9's gradient
// application step, restricted to faces where at least one adjacent
// cell is liquid.
func (p *PressureSolver) applyGradient(field *mac.Field, liquid *levelset.ParticleLevelSet, solid *levelset.MeshLevelSet, pressure *grid3d.Dense[float64], dt float64) {
	dx := field.Dx
	isize, jsize, ksize := liquid.Isize, liquid.Jsize, liquid.Ksize

	apply := func(i0, j0, k0, i1, j1, k1 int, face *grid3d.Dense[float32], weight *grid3d.Dense[float32], wi, wj, wk int) {
		if i0 < 0 || j0 < 0 || k0 < 0 || i0 >= isize || j0 >= jsize || k0 >= ksize {
			return
		}
		if i1 < 0 || j1 < 0 || k1 < 0 || i1 >= isize || j1 >= jsize || k1 >= ksize {
			return
		}
		l0, l1 := isLiquidCell(liquid, i0, j0, k0), isLiquidCell(liquid, i1, j1, k1)
		if !l0 && !l1 {
			return
		}
		w := float64(weight.Get(wi, wj, wk))
		if w <= 0 {
			return
		}
		p0 := sampledPressure(pressure, liquid, i0, j0, k0)
		p1 := sampledPressure(pressure, liquid, i1, j1, k1)
		cur := float64(face.Get(wi, wj, wk))
		delta := dt * w * (p1 - p0) / (p.Density * dx)
		face.Set(wi, wj, wk, float32(cur-delta))
	}

	for k := 0; k < ksize; k++ {
		for j := 0; j < jsize; j++ {
			for i := 1; i < isize; i++ {
				apply(i-1, j, k, i, j, k, field.U, solid.WeightU, i, j, k)
			}
		}
	}
	for k := 0; k < ksize; k++ {
		for j := 1; j < jsize; j++ {
			for i := 0; i < isize; i++ {
				apply(i, j-1, k, i, j, k, field.V, solid.WeightV, i, j, k)
			}
		}
	}
	for k := 1; k < ksize; k++ {
		for j := 0; j < jsize; j++ {
			for i := 0; i < isize; i++ {
				apply(i, j, k-1, i, j, k, field.W, solid.WeightW, i, j, k)
			}
		}
	}
}

func sampledPressure(pressure *grid3d.Dense[float64], liquid *levelset.ParticleLevelSet, i, j, k int) float64 {
	if isLiquidCell(liquid, i, j, k) {
		return pressure.Get(i, j, k)
	}
	return 0
}
