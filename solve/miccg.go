// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package solve implements the variational pressure and viscosity
// solves (spec.md §4.9/§4.10) on top of a shared Modified Incomplete
// Cholesky preconditioned Conjugate Gradient (MICCG(0)) driver. The
// matrix is never assembled as an explicit sparse structure — at 7
// nonzeros per row, stored per-cell stencil arrays (Adiag/Aplusi/
// Aplusj/Aplusk) are both the natural representation and what a
// matrix-free CG needs, so this sticks to grid3d.Dense rather than
// gosl/la.Triplet's COO format (see DESIGN.md).
package solve

import (
	"math"

	"github.com/cpmech/goflip/grid3d"
)

// Status is the outcome of a MICCG solve, per spec.md §4.9.
type Status int

const (
	Converged Status = iota
	Acceptable
	Diverged
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case Acceptable:
		return "acceptable"
	default:
		return "diverged"
	}
}

// Result reports a solve's termination status, final iteration count,
// and residual, per spec.md §4.9's "Return a converged/acceptable/
// diverged status and the residual and iteration count."
type Result struct {
	Status     Status
	Iterations int
	Residual   float64
}

// Stencil is a symmetric positive (semi-)definite 7-point operator
// over an (isize,jsize,ksize) cell grid, restricted to Active cells:
// inactive cells are held fixed at zero and never enter the solve.
// Aplusi[i,j,k] couples cell (i,j,k) to (i+1,j,k) (and symmetrically
// (i+1,j,k) to (i,j,k)); Aplusj/Aplusk analogous along j/k.
type Stencil struct {
	Isize, Jsize, Ksize int
	Adiag               *grid3d.Dense[float64]
	Aplusi              *grid3d.Dense[float64]
	Aplusj              *grid3d.Dense[float64]
	Aplusk              *grid3d.Dense[float64]
	Rhs                 *grid3d.Dense[float64]
	Active              *grid3d.Dense[bool]
}

// NewStencil allocates an all-zero, all-inactive stencil.
func NewStencil(isize, jsize, ksize int) *Stencil {
	return &Stencil{
		Isize: isize, Jsize: jsize, Ksize: ksize,
		Adiag:  grid3d.NewDense[float64](isize, jsize, ksize),
		Aplusi: grid3d.NewDense[float64](isize, jsize, ksize),
		Aplusj: grid3d.NewDense[float64](isize, jsize, ksize),
		Aplusk: grid3d.NewDense[float64](isize, jsize, ksize),
		Rhs:    grid3d.NewDense[float64](isize, jsize, ksize),
		Active: grid3d.NewDense[bool](isize, jsize, ksize),
	}
}

// Solve runs MICCG(0) to convergence, acceptance, or max_iterations,
// returning the solution grid (zero outside Active) and a Result.
func (s *Stencil) Solve(tol, acceptableTol float64, maxIterations int) (*grid3d.Dense[float64], Result) {
	isize, jsize, ksize := s.Isize, s.Jsize, s.Ksize
	x := grid3d.NewDense[float64](isize, jsize, ksize)
	r := s.Rhs.Clone()

	maxAbs := maxActiveAbs(r, s.Active)
	if maxAbs <= tol {
		return x, Result{Status: Converged, Iterations: 0, Residual: maxAbs}
	}

	precon := s.buildPreconditioner()
	z := s.applyPreconditioner(r, precon)
	search := z.Clone()
	sigma := dotActive(z, r, s.Active)

	result := Result{Status: Diverged, Residual: maxAbs}
	for iter := 1; iter <= maxIterations; iter++ {
		q := s.applyMatrix(search)
		denom := dotActive(search, q, s.Active)
		if math.Abs(denom) < 1e-300 {
			break
		}
		alpha := sigma / denom
		addScaledInto(x, search, alpha, s.Active)
		addScaledInto(r, q, -alpha, s.Active)

		maxAbs = maxActiveAbs(r, s.Active)
		result.Iterations = iter
		result.Residual = maxAbs
		if maxAbs <= tol {
			result.Status = Converged
			return x, result
		}

		z = s.applyPreconditioner(r, precon)
		sigmaNew := dotActive(z, r, s.Active)
		beta := sigmaNew / sigma
		combineInto(search, z, beta, s.Active)
		sigma = sigmaNew
	}

	if maxAbs <= acceptableTol {
		result.Status = Acceptable
	} else {
		result.Status = Diverged
	}
	return x, result
}

// applyMatrix computes Ax for the implicit 7-point stencil.
func (s *Stencil) applyMatrix(x *grid3d.Dense[float64]) *grid3d.Dense[float64] {
	isize, jsize, ksize := s.Isize, s.Jsize, s.Ksize
	out := grid3d.NewDense[float64](isize, jsize, ksize)
	for k := 0; k < ksize; k++ {
		for j := 0; j < jsize; j++ {
			for i := 0; i < isize; i++ {
				if !s.Active.Get(i, j, k) {
					continue
				}
				v := s.Adiag.Get(i, j, k) * x.Get(i, j, k)
				if i+1 < isize {
					v += s.Aplusi.Get(i, j, k) * x.Get(i+1, j, k)
				}
				if i-1 >= 0 {
					v += s.Aplusi.Get(i-1, j, k) * x.Get(i-1, j, k)
				}
				if j+1 < jsize {
					v += s.Aplusj.Get(i, j, k) * x.Get(i, j+1, k)
				}
				if j-1 >= 0 {
					v += s.Aplusj.Get(i, j-1, k) * x.Get(i, j-1, k)
				}
				if k+1 < ksize {
					v += s.Aplusk.Get(i, j, k) * x.Get(i, j, k+1)
				}
				if k-1 >= 0 {
					v += s.Aplusk.Get(i, j, k-1) * x.Get(i, j, k-1)
				}
				out.Set(i, j, k, v)
			}
		}
	}
	return out
}

// buildPreconditioner computes the MIC(0) diagonal scaling E per
// Bridson's "Fluid Simulation for Computer Games" §4.3, sweeping
// cells in ascending (k,j,i) order so every dependency has already
// been computed.
func (s *Stencil) buildPreconditioner() *grid3d.Dense[float64] {
	const tuning = 0.97
	const safety = 0.25
	isize, jsize, ksize := s.Isize, s.Jsize, s.Ksize
	precon := grid3d.NewDense[float64](isize, jsize, ksize)

	get := func(g *grid3d.Dense[float64], i, j, k int) float64 {
		if i < 0 || j < 0 || k < 0 || i >= isize || j >= jsize || k >= ksize {
			return 0
		}
		return g.Get(i, j, k)
	}

	for k := 0; k < ksize; k++ {
		for j := 0; j < jsize; j++ {
			for i := 0; i < isize; i++ {
				if !s.Active.Get(i, j, k) {
					continue
				}
				ai := get(s.Aplusi, i-1, j, k)
				pi := get(precon, i-1, j, k)
				aj := get(s.Aplusj, i, j-1, k)
				pj := get(precon, i, j-1, k)
				ak := get(s.Aplusk, i, j, k-1)
				pk := get(precon, i, j, k-1)

				e := s.Adiag.Get(i, j, k) - ai*ai*pi*pi - aj*aj*pj*pj - ak*ak*pk*pk -
					tuning*(ai*(get(s.Aplusj, i-1, j, k)+get(s.Aplusk, i-1, j, k))*pi*pi+
						aj*(get(s.Aplusi, i, j-1, k)+get(s.Aplusk, i, j-1, k))*pj*pj+
						ak*(get(s.Aplusi, i, j, k-1)+get(s.Aplusj, i, j, k-1))*pk*pk)

				if e < safety*s.Adiag.Get(i, j, k) {
					e = s.Adiag.Get(i, j, k)
				}
				if e <= 0 {
					precon.Set(i, j, k, 0)
					continue
				}
				precon.Set(i, j, k, 1/math.Sqrt(e))
			}
		}
	}
	return precon
}

// applyPreconditioner solves (L)(L^T)z = r via the standard two-pass
// MIC(0) forward/backward substitution.
func (s *Stencil) applyPreconditioner(r, precon *grid3d.Dense[float64]) *grid3d.Dense[float64] {
	isize, jsize, ksize := s.Isize, s.Jsize, s.Ksize
	q := grid3d.NewDense[float64](isize, jsize, ksize)

	getQ := func(i, j, k int) float64 {
		if i < 0 || j < 0 || k < 0 || i >= isize || j >= jsize || k >= ksize {
			return 0
		}
		return q.Get(i, j, k)
	}
	getA := func(g *grid3d.Dense[float64], i, j, k int) float64 {
		if i < 0 || j < 0 || k < 0 || i >= isize || j >= jsize || k >= ksize {
			return 0
		}
		return g.Get(i, j, k)
	}
	getP := func(i, j, k int) float64 {
		if i < 0 || j < 0 || k < 0 || i >= isize || j >= jsize || k >= ksize {
			return 0
		}
		return precon.Get(i, j, k)
	}

	for k := 0; k < ksize; k++ {
		for j := 0; j < jsize; j++ {
			for i := 0; i < isize; i++ {
				if !s.Active.Get(i, j, k) {
					continue
				}
				t := r.Get(i, j, k) -
					getA(s.Aplusi, i-1, j, k)*getP(i-1, j, k)*getQ(i-1, j, k) -
					getA(s.Aplusj, i, j-1, k)*getP(i, j-1, k)*getQ(i, j-1, k) -
					getA(s.Aplusk, i, j, k-1)*getP(i, j, k-1)*getQ(i, j, k-1)
				q.Set(i, j, k, t*precon.Get(i, j, k))
			}
		}
	}

	z := grid3d.NewDense[float64](isize, jsize, ksize)
	getZ := func(i, j, k int) float64 {
		if i < 0 || j < 0 || k < 0 || i >= isize || j >= jsize || k >= ksize {
			return 0
		}
		return z.Get(i, j, k)
	}
	for k := ksize - 1; k >= 0; k-- {
		for j := jsize - 1; j >= 0; j-- {
			for i := isize - 1; i >= 0; i-- {
				if !s.Active.Get(i, j, k) {
					continue
				}
				t := q.Get(i, j, k) -
					getA(s.Aplusi, i, j, k)*precon.Get(i, j, k)*getZ(i+1, j, k) -
					getA(s.Aplusj, i, j, k)*precon.Get(i, j, k)*getZ(i, j+1, k) -
					getA(s.Aplusk, i, j, k)*precon.Get(i, j, k)*getZ(i, j, k+1)
				z.Set(i, j, k, t*precon.Get(i, j, k))
			}
		}
	}
	return z
}

func dotActive(a, b *grid3d.Dense[float64], active *grid3d.Dense[bool]) float64 {
	ar, br, mr := a.Raw(), b.Raw(), active.Raw()
	sum := 0.0
	for i := range ar {
		if mr[i] {
			sum += ar[i] * br[i]
		}
	}
	return sum
}

func maxActiveAbs(a *grid3d.Dense[float64], active *grid3d.Dense[bool]) float64 {
	ar, mr := a.Raw(), active.Raw()
	max := 0.0
	for i := range ar {
		if !mr[i] {
			continue
		}
		v := math.Abs(ar[i])
		if v > max {
			max = v
		}
	}
	return max
}

func addScaledInto(dst, src *grid3d.Dense[float64], scale float64, active *grid3d.Dense[bool]) {
	dr, sr, mr := dst.Raw(), src.Raw(), active.Raw()
	for i := range dr {
		if mr[i] {
			dr[i] += scale * sr[i]
		}
	}
}

func combineInto(dst, z *grid3d.Dense[float64], beta float64, active *grid3d.Dense[bool]) {
	dr, zr, mr := dst.Raw(), z.Raw(), active.Raw()
	for i := range dr {
		if mr[i] {
			dr[i] = zr[i] + beta*dr[i]
		}
	}
}
