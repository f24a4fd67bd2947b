// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package levelset

import (
	"math"

	"github.com/cpmech/goflip/extrap"
	"github.com/cpmech/goflip/grid3d"
	"github.com/cpmech/goflip/vmath"
)

// ParticleRadius returns the marker-particle radius used by the liquid
// level set, r = 1.01·√3·dx/2 (spec.md §3).
func ParticleRadius(dx float64) float64 {
	return 1.01 * math.Sqrt(3) * dx / 2
}

// ParticleLevelSet is a dense signed distance grid on cell centers,
// built by rasterizing marker-particle spheres (spec.md §4.4).
type ParticleLevelSet struct {
	Isize, Jsize, Ksize int
	Dx                  float64
	Phi                 *grid3d.Dense[float32]
	MaxDistance         float64
}

// NewParticleLevelSet allocates an all-air (φ=+MaxDistance) liquid
// level set over a (isize,jsize,ksize) cell grid. MaxDistance defaults
// to a few cells beyond the particle radius, matching the "clamped to
// a computed max-distance band" behavior of spec.md §3.
func NewParticleLevelSet(isize, jsize, ksize int, dx float64) *ParticleLevelSet {
	maxDist := 3 * dx
	ls := &ParticleLevelSet{Isize: isize, Jsize: jsize, Ksize: ksize, Dx: dx, MaxDistance: maxDist}
	ls.Phi = grid3d.NewDense[float32](isize, jsize, ksize)
	ls.Phi.Fill(float32(maxDist))
	return ls
}

func (ls *ParticleLevelSet) cellCenter(i, j, k int) vmath.Vec3 {
	dx := ls.Dx
	return vmath.Vec3{X: (float64(i) + 0.5) * dx, Y: (float64(j) + 0.5) * dx, Z: (float64(k) + 0.5) * dx}
}

// Build rasterizes every particle's sphere of radius
// r=ParticleRadius(dx) into the cell grid, φ_cell ← min(φ_cell, |c−p|−r),
// clamped to ±MaxDistance. The cell grid is split into nthreads
// non-overlapping "direction stripes" along i; each goroutine scans
// every particle and mutates only its own slab of cells, per spec.md
// §4.4's parallelization note.
func (ls *ParticleLevelSet) Build(positions []vmath.Vec3, nthreads int) {
	ls.Phi.Fill(float32(ls.MaxDistance))
	if nthreads <= 0 {
		nthreads = 1
	}
	r := ParticleRadius(ls.Dx)
	stripe := (ls.Isize + nthreads - 1) / nthreads
	done := make(chan struct{}, nthreads)
	for t := 0; t < nthreads; t++ {
		iLo := t * stripe
		iHi := iLo + stripe
		if iHi > ls.Isize {
			iHi = ls.Isize
		}
		go func(iLo, iHi int) {
			ls.rasterizeStripe(positions, r, iLo, iHi)
			done <- struct{}{}
		}(iLo, iHi)
	}
	for t := 0; t < nthreads; t++ {
		<-done
	}
}

func (ls *ParticleLevelSet) rasterizeStripe(positions []vmath.Vec3, r float64, iLo, iHi int) {
	dx := ls.Dx
	cellsReach := int(math.Ceil((r + dx) / dx))
	for _, p := range positions {
		ci := int(math.Floor(p.X / dx))
		cj := int(math.Floor(p.Y / dx))
		ck := int(math.Floor(p.Z / dx))
		for k := ck - cellsReach; k <= ck+cellsReach; k++ {
			for j := cj - cellsReach; j <= cj+cellsReach; j++ {
				for i := max(ci-cellsReach, iLo); i <= min(ci+cellsReach, iHi-1); i++ {
					if !ls.Phi.InBounds(i, j, k) {
						continue
					}
					c := ls.cellCenter(i, j, k)
					d := c.Sub(p).Length() - r
					if d < ls.MaxDistance*-1 {
						d = -ls.MaxDistance
					}
					cur := float64(ls.Phi.Get(i, j, k))
					if d < cur {
						ls.Phi.Set(i, j, k, float32(d))
					}
				}
			}
		}
	}
	clampBand(ls.Phi, ls.MaxDistance, iLo, iHi)
}

func clampBand(phi *grid3d.Dense[float32], band float64, iLo, iHi int) {
	_, jsize, ksize := phi.Dims()
	for k := 0; k < ksize; k++ {
		for j := 0; j < jsize; j++ {
			for i := iLo; i < iHi; i++ {
				v := float64(phi.Get(i, j, k))
				if v > band {
					phi.Set(i, j, k, float32(band))
				} else if v < -band {
					phi.Set(i, j, k, float32(-band))
				}
			}
		}
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// TrilinearInterpolate samples the liquid signed distance at p.
func (ls *ParticleLevelSet) TrilinearInterpolate(p vmath.Vec3) float64 {
	return trilinearSampleCellCentered(ls.Phi, p, ls.Dx)
}

func trilinearSampleCellCentered(g *grid3d.Dense[float32], p vmath.Vec3, dx float64) float64 {
	gx, gy, gz := p.X/dx-0.5, p.Y/dx-0.5, p.Z/dx-0.5
	i0, j0, k0 := int(math.Floor(gx)), int(math.Floor(gy)), int(math.Floor(gz))
	tx, ty, tz := gx-float64(i0), gy-float64(j0), gz-float64(k0)

	get := func(di, dj, dk int) float64 { return float64(g.Get(i0+di, j0+dj, k0+dk)) }
	c00 := get(0, 0, 0)*(1-tx) + get(1, 0, 0)*tx
	c10 := get(0, 1, 0)*(1-tx) + get(1, 1, 0)*tx
	c01 := get(0, 0, 1)*(1-tx) + get(1, 0, 1)*tx
	c11 := get(0, 1, 1)*(1-tx) + get(1, 1, 1)*tx
	c0 := c00*(1-ty) + c10*ty
	c1 := c01*(1-ty) + c11*ty
	return c0*(1-tz) + c1*tz
}

// ExtrapolateIntoSolid rewrites ls.Phi for every cell inside the solid
// (solid.Phi < 0, sampled at the cell center) to the value of the
// nearest cell with solid.Phi >= 0, so the pressure solver sees liquid
// continuing into thin obstacle interiors and particles never leak
// through them (spec.md §4.4).
func (ls *ParticleLevelSet) ExtrapolateIntoSolid(solid *MeshLevelSet) {
	valid := grid3d.NewDense[bool](ls.Isize, ls.Jsize, ls.Ksize)
	for k := 0; k < ls.Ksize; k++ {
		for j := 0; j < ls.Jsize; j++ {
			for i := 0; i < ls.Isize; i++ {
				c := ls.cellCenter(i, j, k)
				if solid.TrilinearInterpolate(c) >= 0 {
					valid.Set(i, j, k, true)
				}
			}
		}
	}
	layers := maxInt3(ls.Isize, ls.Jsize, ls.Ksize)
	extrap.Scalar(ls.Phi, valid, layers)
}

func maxInt3(a, b, c int) int {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
