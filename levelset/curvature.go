// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package levelset

import (
	"math"

	"github.com/cpmech/goflip/extrap"
	"github.com/cpmech/goflip/grid3d"
)

// CurvatureGrid fills out with the mean curvature of surface, computed
// from the gradient and Hessian of a smoothed copy of surface within an
// exact band of 2·dx of the zero level set, then smoothed
// smoothIterations times with averaging weight smoothWeight, and
// extrapolated extrapolationLayers layers outward (spec.md §4.4). This
// feeds the out-of-scope secondary-particle (foam/bubble/spray) model.
func CurvatureGrid(surface *ParticleLevelSet, out *grid3d.Dense[float32], smoothIterations int, smoothWeight float64, extrapolationLayers int) {
	isize, jsize, ksize := surface.Phi.Dims()
	dx := surface.Dx
	band := 2 * dx

	smoothed := surface.Phi.Clone()
	for iter := 0; iter < smoothIterations; iter++ {
		next := smoothed.Clone()
		for k := 0; k < ksize; k++ {
			for j := 0; j < jsize; j++ {
				for i := 0; i < isize; i++ {
					if abs32(smoothed.Get(i, j, k)) > float32(band) {
						continue
					}
					avg := averageNeighbors6(smoothed, i, j, k)
					cur := float64(smoothed.Get(i, j, k))
					next.Set(i, j, k, float32((1-smoothWeight)*cur+smoothWeight*avg))
				}
			}
		}
		smoothed = next
	}

	valid := grid3d.NewDense[bool](isize, jsize, ksize)
	for k := 0; k < ksize; k++ {
		for j := 0; j < jsize; j++ {
			for i := 0; i < isize; i++ {
				if abs32(smoothed.Get(i, j, k)) > float32(band) {
					continue
				}
				out.Set(i, j, k, float32(meanCurvature(smoothed, i, j, k, dx)))
				valid.Set(i, j, k, true)
			}
		}
	}
	extrap.Scalar(out, valid, extrapolationLayers)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func averageNeighbors6(g *grid3d.Dense[float32], i, j, k int) float64 {
	sum := 0.0
	n := 0
	for _, d := range [6][3]int{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}} {
		ni, nj, nk := i+d[0], j+d[1], k+d[2]
		if g.InBounds(ni, nj, nk) {
			sum += float64(g.Get(ni, nj, nk))
			n++
		}
	}
	if n == 0 {
		return float64(g.Get(i, j, k))
	}
	return sum / float64(n)
}

// meanCurvature evaluates κ = ½∇・(∇φ/|∇φ|) with central differences,
// i.e. the mean of the two principal curvatures of the level set.
func meanCurvature(phi *grid3d.Dense[float32], i, j, k int, dx float64) float64 {
	fx := (float64(phi.Get(i+1, j, k)) - float64(phi.Get(i-1, j, k))) / (2 * dx)
	fy := (float64(phi.Get(i, j+1, k)) - float64(phi.Get(i, j-1, k))) / (2 * dx)
	fz := (float64(phi.Get(i, j, k+1)) - float64(phi.Get(i, j, k-1))) / (2 * dx)

	fxx := (float64(phi.Get(i+1, j, k)) - 2*float64(phi.Get(i, j, k)) + float64(phi.Get(i-1, j, k))) / (dx * dx)
	fyy := (float64(phi.Get(i, j+1, k)) - 2*float64(phi.Get(i, j, k)) + float64(phi.Get(i, j-1, k))) / (dx * dx)
	fzz := (float64(phi.Get(i, j, k+1)) - 2*float64(phi.Get(i, j, k)) + float64(phi.Get(i, j, k-1))) / (dx * dx)

	fxy := (float64(phi.Get(i+1, j+1, k)) - float64(phi.Get(i+1, j-1, k)) - float64(phi.Get(i-1, j+1, k)) + float64(phi.Get(i-1, j-1, k))) / (4 * dx * dx)
	fxz := (float64(phi.Get(i+1, j, k+1)) - float64(phi.Get(i+1, j, k-1)) - float64(phi.Get(i-1, j, k+1)) + float64(phi.Get(i-1, j, k-1))) / (4 * dx * dx)
	fyz := (float64(phi.Get(i, j+1, k+1)) - float64(phi.Get(i, j+1, k-1)) - float64(phi.Get(i, j-1, k+1)) + float64(phi.Get(i, j-1, k-1))) / (4 * dx * dx)

	grad2 := fx*fx + fy*fy + fz*fz
	const eps = 1e-9
	if grad2 < eps {
		return 0
	}
	num := fx*fx*(fyy+fzz) + fy*fy*(fxx+fzz) + fz*fz*(fxx+fyy) -
		2*(fx*fy*fxy+fx*fz*fxz+fy*fz*fyz)
	denom := 2 * grad2 * math.Sqrt(grad2)
	return num / denom
}
