// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solve

import (
	"github.com/cpmech/goflip/grid3d"
	"github.com/cpmech/goflip/levelset"
	"github.com/cpmech/goflip/mac"
)

// ViscositySolver implicitly diffuses face velocities with the
// viscosity field, sharing the pressure solve's MICCG driver on a
// second symmetric positive-definite system (spec.md §4.10). Disabled
// globally when Nu is zero everywhere.
type ViscositySolver struct {
	Density       float64
	Tol           float64
	AcceptableTol float64
	MaxIterations int
}

// NewViscositySolver returns a solver with the pressure solve's
// tolerances (spec.md §4.10: "solved with the same MICCG driver").
func NewViscositySolver(density float64) *ViscositySolver {
	return &ViscositySolver{Density: density, Tol: 1e-9, AcceptableTol: 1.0, MaxIterations: 1000}
}

// Solve diffuses field's face velocities in place with
// (I - dt·ν·∇²)u = u*, solved independently per staggered component
// over the region where the component's face weight is nonzero
// (liquid or liquid-adjacent faces); the weight selects the active
// faces and does not scale the coefficients. nu is a cell-centered
// viscosity field: each face sample reads the cell on its low side
// along the component's axis, and each coupling between two face
// samples uses the mean of their two values.
func (v *ViscositySolver) Solve(field *mac.Field, solid *levelset.MeshLevelSet, nu *grid3d.Dense[float64], dt float64) Result {
	worst := Result{Status: Converged}
	for _, c := range []struct {
		face   *grid3d.Dense[float32]
		weight *grid3d.Dense[float32]
		axis   int // 0=i,1=j,2=k shift relative to a cell-centered nu sample
	}{
		{field.U, solid.WeightU, 0},
		{field.V, solid.WeightV, 1},
		{field.W, solid.WeightW, 2},
	} {
		r := v.solveComponent(c.face, c.weight, nu, field.Dx, dt, c.axis)
		if r.Status == Diverged {
			return r
		}
		if r.Status == Acceptable {
			worst = r
		}
	}
	return worst
}

func (v *ViscositySolver) solveComponent(face, weight *grid3d.Dense[float32], nu *grid3d.Dense[float64], dx, dt float64, axis int) Result {
	isize, jsize, ksize := face.Dims()
	st := NewStencil(isize, jsize, ksize)
	scale := dt / (dx * dx)

	nuIsize, nuJsize, nuKsize := nu.Dims()
	nuAt := func(i, j, k int) float64 {
		if i < 0 {
			i = 0
		}
		if j < 0 {
			j = 0
		}
		if k < 0 {
			k = 0
		}
		if i >= nuIsize {
			i = nuIsize - 1
		}
		if j >= nuJsize {
			j = nuJsize - 1
		}
		if k >= nuKsize {
			k = nuKsize - 1
		}
		return nu.Get(i, j, k)
	}
	// cellNu samples the viscosity field at the liquid cell that the
	// face sample (i,j,k) sits on the low side of, so U/V/W each read
	// consistent, symmetric coefficients from the same cell-centered
	// grid (spec.md §4.10's "coefficients mix face weights and the
	// viscosity field").
	cellNu := func(i, j, k int) float64 {
		switch axis {
		case 0:
			return nuAt(i-1, j, k)
		case 1:
			return nuAt(i, j-1, k)
		default:
			return nuAt(i, j, k-1)
		}
	}

	for k := 0; k < ksize; k++ {
		for j := 0; j < jsize; j++ {
			for i := 0; i < isize; i++ {
				active := weight.Get(i, j, k) > 0
				st.Active.Set(i, j, k, active)
				st.Adiag.Set(i, j, k, 1)
				st.Rhs.Set(i, j, k, float64(face.Get(i, j, k)))
			}
		}
	}

	coupleEdge := func(i0, j0, k0, i1, j1, k1 int, aplus *grid3d.Dense[float64]) {
		if !st.Active.Get(i0, j0, k0) || !st.Active.Get(i1, j1, k1) {
			return
		}
		coeff := scale * 0.5 * (cellNu(i0, j0, k0) + cellNu(i1, j1, k1))
		st.Adiag.Set(i0, j0, k0, st.Adiag.Get(i0, j0, k0)+coeff)
		st.Adiag.Set(i1, j1, k1, st.Adiag.Get(i1, j1, k1)+coeff)
		aplus.Set(i0, j0, k0, aplus.Get(i0, j0, k0)-coeff)
	}

	for k := 0; k < ksize; k++ {
		for j := 0; j < jsize; j++ {
			for i := 0; i < isize-1; i++ {
				coupleEdge(i, j, k, i+1, j, k, st.Aplusi)
			}
		}
	}
	for k := 0; k < ksize; k++ {
		for j := 0; j < jsize-1; j++ {
			for i := 0; i < isize; i++ {
				coupleEdge(i, j, k, i, j+1, k, st.Aplusj)
			}
		}
	}
	for k := 0; k < ksize-1; k++ {
		for j := 0; j < jsize; j++ {
			for i := 0; i < isize; i++ {
				coupleEdge(i, j, k, i, j, k+1, st.Aplusk)
			}
		}
	}

	solved, result := st.Solve(v.Tol, v.AcceptableTol, v.MaxIterations)
	raw, solvedRaw, activeRaw := face.Raw(), solved.Raw(), st.Active.Raw()
	for idx := range raw {
		if activeRaw[idx] {
			raw[idx] = float32(solvedRaw[idx])
		}
	}
	return result
}
