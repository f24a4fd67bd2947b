// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package levelset implements the two signed-distance representations
// of spec.md §4.3/§4.4: MeshLevelSet for solids and sources, built from
// a triangle mesh, and ParticleLevelSet for the liquid, built by
// rasterizing marker-particle spheres.
package levelset

import (
	"math"

	"github.com/cpmech/goflip/grid3d"
	"github.com/cpmech/goflip/trimesh"
	"github.com/cpmech/goflip/vmath"
	"github.com/cpmech/goflip/worker"
)

// MeshLevelSet is a dense signed-distance grid on cell nodes
// ((isize+1)×(jsize+1)×(ksize+1)) plus the per-face area-fraction
// weight grids consumed by the variational pressure/viscosity solves.
type MeshLevelSet struct {
	Isize, Jsize, Ksize int
	Dx                  float64

	Phi *grid3d.Dense[float32] // node-centered signed distance, negative inside

	// WeightU/V/W are the fraction of each staggered face center lying
	// outside the solid (φ>0), in [0,1].
	WeightU, WeightV, WeightW *grid3d.Dense[float32]

	// Velocity is an optional per-node velocity for rigid/animated
	// solids, same dims as Phi. Nil when the mesh carries no velocity.
	Velocity []vmath.Vec3

	// ExactBand is the number of cells around each island's padded AABB
	// within which Phi holds an exact closest-point distance; outside
	// it, Phi is produced by fast sweeping.
	ExactBand int
}

const maxDistanceBand = 1e9

// NewMeshLevelSet allocates a solid-level (φ = +∞ equivalent) level set
// over a (isize,jsize,ksize) cell grid.
func NewMeshLevelSet(isize, jsize, ksize int, dx float64) *MeshLevelSet {
	ls := &MeshLevelSet{
		Isize: isize, Jsize: jsize, Ksize: ksize, Dx: dx,
		Phi:       grid3d.NewDense[float32](isize+1, jsize+1, ksize+1),
		WeightU:   grid3d.NewDense[float32](isize+1, jsize, ksize),
		WeightV:   grid3d.NewDense[float32](isize, jsize+1, ksize),
		WeightW:   grid3d.NewDense[float32](isize, jsize, ksize+1),
		ExactBand: 3,
	}
	ls.Phi.Fill(maxDistanceBand)
	ls.WeightU.Fill(1)
	ls.WeightV.Fill(1)
	ls.WeightW.Fill(1)
	return ls
}

func (ls *MeshLevelSet) nodePos(i, j, k int) vmath.Vec3 {
	dx := ls.Dx
	return vmath.Vec3{X: float64(i) * dx, Y: float64(j) * dx, Z: float64(k) * dx}
}

// Build constructs the signed distance field from mesh, following
// spec.md §4.3's five-step algorithm. When pool is non-nil and the
// mesh splits into at least threshold islands, each island's build runs
// as a bounded-queue task on pool; otherwise islands are processed
// serially on the calling goroutine (spec.md §9's Open Question,
// threshold default 25, see sim.Config.MeshUnionParallelThreshold).
func (ls *MeshLevelSet) Build(mesh *trimesh.Mesh, pool *worker.Pool, threshold int) {
	islands := mesh.Islands()
	if len(islands) == 0 {
		return
	}
	if pool != nil && len(islands) >= threshold {
		ls.buildParallel(islands, pool)
		return
	}
	for _, isl := range islands {
		other := NewMeshLevelSet(ls.Isize, ls.Jsize, ls.Ksize, ls.Dx)
		other.buildIsland(isl)
		ls.Union(other)
	}
}

func (ls *MeshLevelSet) buildParallel(islands []*trimesh.Mesh, pool *worker.Pool) {
	in := worker.NewBoundedQueue[*trimesh.Mesh](len(islands))
	out := worker.NewBoundedQueue[*MeshLevelSet](len(islands))
	in.PushBatch(islands)
	in.Finish()
	worker.Run(pool, in, func(isl *trimesh.Mesh) *MeshLevelSet {
		built := NewMeshLevelSet(ls.Isize, ls.Jsize, ls.Ksize, ls.Dx)
		built.buildIsland(isl)
		return built
	}, out)
	for {
		r, ok := out.Pop()
		if !ok {
			break
		}
		ls.Union(r)
	}
}

// buildIsland computes an exact-band signed distance for a single
// connected island and fast-sweeps the remainder of this level set's
// node grid.
func (ls *MeshLevelSet) buildIsland(island *trimesh.Mesh) {
	box := island.AABB().Pad(float64(ls.ExactBand) * ls.Dx)
	q := trimesh.NewClosestPointQuery(island)

	imin := clampInt(int(math.Floor(box.Min.X/ls.Dx)), 0, ls.Isize)
	imax := clampInt(int(math.Ceil(box.Max.X/ls.Dx)), 0, ls.Isize)
	jmin := clampInt(int(math.Floor(box.Min.Y/ls.Dx)), 0, ls.Jsize)
	jmax := clampInt(int(math.Ceil(box.Max.Y/ls.Dx)), 0, ls.Jsize)
	kmin := clampInt(int(math.Floor(box.Min.Z/ls.Dx)), 0, ls.Ksize)
	kmax := clampInt(int(math.Ceil(box.Max.Z/ls.Dx)), 0, ls.Ksize)

	known := grid3d.NewDense[bool](ls.Isize+1, ls.Jsize+1, ls.Ksize+1)
	for k := kmin; k <= kmax; k++ {
		for j := jmin; j <= jmax; j++ {
			for i := imin; i <= imax; i++ {
				p := ls.nodePos(i, j, k)
				d := q.ClosestDistance(p)
				if q.InsideByParity(p) {
					d = -d
				}
				ls.Phi.Set(i, j, k, float32(d))
				known.Set(i, j, k, true)
			}
		}
	}
	fastSweep(ls.Phi, known, ls.Dx, 3)
	ls.computeFaceWeights()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// fastSweep propagates distances outward from the known region using a
// three-pass (spec.md §4.3 step 5) Gauss-Seidel sweep in alternating
// index orders, the standard fast-sweeping method for the Eikonal
// equation |∇φ|=1.
func fastSweep(phi *grid3d.Dense[float32], known *grid3d.Dense[bool], dx float64, passes int) {
	isize, jsize, ksize := phi.Dims()
	orders := [][3]int{{1, 1, 1}, {-1, -1, -1}, {1, -1, 1}, {-1, 1, -1}}
	for p := 0; p < passes; p++ {
		for _, o := range orders {
			sweepOnce(phi, known, dx, isize, jsize, ksize, o)
		}
	}
}

func sweepOnce(phi *grid3d.Dense[float32], known *grid3d.Dense[bool], dx float64, isize, jsize, ksize int, order [3]int) {
	iter := func(n, dir int) []int {
		out := make([]int, n)
		if dir > 0 {
			for i := 0; i < n; i++ {
				out[i] = i
			}
		} else {
			for i := 0; i < n; i++ {
				out[i] = n - 1 - i
			}
		}
		return out
	}
	for _, k := range iter(ksize, order[2]) {
		for _, j := range iter(jsize, order[1]) {
			for _, i := range iter(isize, order[0]) {
				if known.Get(i, j, k) {
					continue
				}
				sign := float32(1)
				if phi.Get(i, j, k) < 0 {
					sign = -1
				}
				a := minNeighborAbs(phi, i-1, j, k, i+1, j, k)
				b := minNeighborAbs(phi, i, j-1, k, i, j+1, k)
				c := minNeighborAbs(phi, i, j, k-1, i, j, k+1)
				val := eikonalUpdate(a, b, c, dx)
				if val < math.Inf(1) {
					cur := math.Abs(float64(phi.Get(i, j, k)))
					if val < cur {
						phi.Set(i, j, k, sign*float32(val))
					}
				}
			}
		}
	}
}

func minNeighborAbs(phi *grid3d.Dense[float32], i0, j0, k0, i1, j1, k1 int) float64 {
	a, b := math.Inf(1), math.Inf(1)
	if phi.InBounds(i0, j0, k0) {
		a = math.Abs(float64(phi.Get(i0, j0, k0)))
	}
	if phi.InBounds(i1, j1, k1) {
		b = math.Abs(float64(phi.Get(i1, j1, k1)))
	}
	return math.Min(a, b)
}

// eikonalUpdate solves the local quadratic for |∇φ|=1 given the three
// axis-minimum neighbor magnitudes a,b,c and spacing dx.
func eikonalUpdate(a, b, c, dx float64) float64 {
	vals := []float64{a, b, c}
	// sort ascending
	if vals[0] > vals[1] {
		vals[0], vals[1] = vals[1], vals[0]
	}
	if vals[1] > vals[2] {
		vals[1], vals[2] = vals[2], vals[1]
	}
	if vals[0] > vals[1] {
		vals[0], vals[1] = vals[1], vals[0]
	}
	x := vals[0] + dx
	if x <= vals[1] {
		return x
	}
	x = quadratic2(vals[0], vals[1], dx)
	if x <= vals[2] {
		return x
	}
	return quadratic3(vals[0], vals[1], vals[2], dx)
}

func quadratic2(a, b, dx float64) float64 {
	// (x-a)^2 + (x-b)^2 = dx^2
	A, B, C := 2.0, -2*(a+b), a*a+b*b-dx*dx
	disc := B*B - 4*A*C
	if disc < 0 {
		return math.Min(a, b) + dx
	}
	return (-B + math.Sqrt(disc)) / (2 * A)
}

func quadratic3(a, b, c, dx float64) float64 {
	A, B, C := 3.0, -2*(a+b+c), a*a+b*b+c*c-dx*dx
	disc := B*B - 4*A*C
	if disc < 0 {
		return math.Max(a, math.Max(b, c)) + dx
	}
	return (-B + math.Sqrt(disc)) / (2 * A)
}

// TrilinearInterpolate samples the signed distance at world point p.
func (ls *MeshLevelSet) TrilinearInterpolate(p vmath.Vec3) float64 {
	return trilinearSampleNode(ls.Phi, p, ls.Dx)
}

func trilinearSampleNode(g *grid3d.Dense[float32], p vmath.Vec3, dx float64) float64 {
	gx, gy, gz := p.X/dx, p.Y/dx, p.Z/dx
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

// Union merges other into ls by taking the per-node minimum; where
// either carries velocity, the velocity from the smaller φ wins.
func (ls *MeshLevelSet) Union(other *MeshLevelSet) {
	isize, jsize, ksize := ls.Phi.Dims()
	hasVel := ls.Velocity != nil || other.Velocity != nil
	if hasVel && ls.Velocity == nil {
		ls.Velocity = make([]vmath.Vec3, isize*jsize*ksize)
	}
	for k := 0; k < ksize; k++ {
		for j := 0; j < jsize; j++ {
			for i := 0; i < isize; i++ {
				a := ls.Phi.Get(i, j, k)
				b := other.Phi.Get(i, j, k)
				if b < a {
					ls.Phi.Set(i, j, k, b)
					if hasVel && other.Velocity != nil {
						idx := i + isize*(j+jsize*k)
						ls.Velocity[idx] = other.Velocity[idx%len(other.Velocity)]
					}
				}
			}
		}
	}
	ls.unionFaceWeights(other)
}

func (ls *MeshLevelSet) unionFaceWeights(other *MeshLevelSet) {
	minInto(ls.WeightU, other.WeightU)
	minInto(ls.WeightV, other.WeightV)
	minInto(ls.WeightW, other.WeightW)
}

func minInto(a, b *grid3d.Dense[float32]) {
	araw, braw := a.Raw(), b.Raw()
	for i := range araw {
		if braw[i] < araw[i] {
			araw[i] = braw[i]
		}
	}
}

// computeFaceWeights derives WeightU/V/W from the node φ grid: the
// fraction of each staggered face center that lies outside the solid
// (φ>0), per spec.md §4.3 step 6.
func (ls *MeshLevelSet) computeFaceWeights() {
	fill := func(w *grid3d.Dense[float32], corners func(i, j, k int) (p00, p10, p01, p11 float32)) {
		isize, jsize, ksize := w.Dims()
		for k := 0; k < ksize; k++ {
			for j := 0; j < jsize; j++ {
				for i := 0; i < isize; i++ {
					p00, p10, p01, p11 := corners(i, j, k)
					w.Set(i, j, k, faceFraction4(p00, p10, p01, p11))
				}
			}
		}
	}
	fill(ls.WeightU, func(i, j, k int) (float32, float32, float32, float32) {
		return ls.Phi.Get(i, j, k), ls.Phi.Get(i, j+1, k), ls.Phi.Get(i, j, k+1), ls.Phi.Get(i, j+1, k+1)
	})
	fill(ls.WeightV, func(i, j, k int) (float32, float32, float32, float32) {
		return ls.Phi.Get(i, j, k), ls.Phi.Get(i+1, j, k), ls.Phi.Get(i, j, k+1), ls.Phi.Get(i+1, j, k+1)
	})
	fill(ls.WeightW, func(i, j, k int) (float32, float32, float32, float32) {
		return ls.Phi.Get(i, j, k), ls.Phi.Get(i+1, j, k), ls.Phi.Get(i, j+1, k), ls.Phi.Get(i+1, j+1, k)
	})
}

// fractionInside returns the fraction of the segment between two
// samples phi0,phi1 that lies outside the solid (phi>0), the standard
// Bridson ghost-fluid edge fraction used throughout variational
// pressure/viscosity solves.
func fractionInside(phi0, phi1 float64) float64 {
	out0, out1 := phi0 > 0, phi1 > 0
	if out0 && out1 {
		return 1
	}
	if !out0 && !out1 {
		return 0
	}
	if out0 {
		return phi0 / (phi0 - phi1)
	}
	return phi1 / (phi1 - phi0)
}

// faceFraction4 averages the fraction-inside along two parallel edges
// of a face (p00–p10 and p01–p11) to approximate the open-area fraction
// from the four corner nodal φ values.
func faceFraction4(p00, p10, p01, p11 float32) float32 {
	f1 := fractionInside(float64(p00), float64(p10))
	f2 := fractionInside(float64(p01), float64(p11))
	v := (f1 + f2) / 2
	return float32(vmath.Clamp(v, 0, 1))
}
