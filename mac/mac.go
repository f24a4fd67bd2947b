// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mac implements the staggered MAC (Marker-And-Cell) face
// velocity field, grounded on
// original_source/src/engine/macvelocityfield.h.
package mac

import (
	"github.com/cpmech/goflip/grid3d"
	"github.com/cpmech/goflip/vmath"
)

// Field holds the three staggered face-velocity grids u, v, w plus the
// out-of-range default returned by SampleLinear outside the valid
// indexing region (spec.md §3).
type Field struct {
	Isize, Jsize, Ksize int
	Dx                  float64

	U, V, W *grid3d.Dense[float32]

	// OutOfRangeVelocity is returned by SampleLinear for any query
	// point whose containing index lies entirely outside the valid
	// staggered range, mirroring setOutOfRangeVector in the original
	// engine. Defaults to the zero vector.
	OutOfRangeVelocity vmath.Vec3
}

// NewField allocates a zeroed MAC field for a grid of (isize,jsize,ksize)
// cells of side dx.
func NewField(isize, jsize, ksize int, dx float64) *Field {
	return &Field{
		Isize: isize, Jsize: jsize, Ksize: ksize, Dx: dx,
		U: grid3d.NewDense[float32](isize+1, jsize, ksize),
		V: grid3d.NewDense[float32](isize, jsize+1, ksize),
		W: grid3d.NewDense[float32](isize, jsize, ksize+1),
	}
}

// ValidMask records, per staggered face, whether the scatter wrote a
// physically meaningful value there this substep (spec.md §4.2).
type ValidMask struct {
	U, V, W *grid3d.Dense[bool]
}

// NewValidMask allocates an all-false mask matching a field's staggered
// dimensions.
func NewValidMask(isize, jsize, ksize int) *ValidMask {
	return &ValidMask{
		U: grid3d.NewDense[bool](isize+1, jsize, ksize),
		V: grid3d.NewDense[bool](isize, jsize+1, ksize),
		W: grid3d.NewDense[bool](isize, jsize, ksize+1),
	}
}

// Reset clears every face back to invalid, as done at the start of
// every scatter substep.
func (m *ValidMask) Reset() {
	m.U.Fill(false)
	m.V.Fill(false)
	m.W.Fill(false)
}

// Set assigns field equal to other, component-wise (a deep copy).
func (f *Field) Set(other *Field) {
	f.U = other.U.Clone()
	f.V = other.V.Clone()
	f.W = other.W.Clone()
}

// Clone returns a deep copy of f, used by the scheduler at substep
// step 5 to save a pre-projection MAC field for the FLIP delta.
func (f *Field) Clone() *Field {
	return &Field{
		Isize: f.Isize, Jsize: f.Jsize, Ksize: f.Ksize, Dx: f.Dx,
		U: f.U.Clone(), V: f.V.Clone(), W: f.W.Clone(),
		OutOfRangeVelocity: f.OutOfRangeVelocity,
	}
}

// Add adds other into f in place, component-wise.
func (f *Field) Add(other *Field) {
	addInto(f.U, other.U)
	addInto(f.V, other.V)
	addInto(f.W, other.W)
}

// Sub returns f - other as a new Field, without mutating either.
// Saving a MAC field and subtracting it from itself yields all zeros
// (spec.md §8 round-trip law); the scheduler uses Sub(field, saved) for
// the FLIP delta.
func Sub(a, b *Field) *Field {
	out := &Field{Isize: a.Isize, Jsize: a.Jsize, Ksize: a.Ksize, Dx: a.Dx}
	out.U = subInto(a.U, b.U)
	out.V = subInto(a.V, b.V)
	out.W = subInto(a.W, b.W)
	return out
}

func addInto(a, b *grid3d.Dense[float32]) {
	araw, braw := a.Raw(), b.Raw()
	for i := range araw {
		araw[i] += braw[i]
	}
}

func subInto(a, b *grid3d.Dense[float32]) *grid3d.Dense[float32] {
	isize, jsize, ksize := a.Dims()
	out := grid3d.NewDense[float32](isize, jsize, ksize)
	araw, braw, oraw := a.Raw(), b.Raw(), out.Raw()
	for i := range araw {
		oraw[i] = araw[i] - braw[i]
	}
	return out
}

// FaceIndexToPosition maps a staggered face index to its world-space
// position, per spec.md §3's staggering convention.
func (f *Field) FaceIndexToPosition(i, j, k int, dir Direction) vmath.Vec3 {
	dx := f.Dx
	switch dir {
	case U:
		return vmath.Vec3{X: float64(i) * dx, Y: (float64(j) + 0.5) * dx, Z: (float64(k) + 0.5) * dx}
	case V:
		return vmath.Vec3{X: (float64(i) + 0.5) * dx, Y: float64(j) * dx, Z: (float64(k) + 0.5) * dx}
	default:
		return vmath.Vec3{X: (float64(i) + 0.5) * dx, Y: (float64(j) + 0.5) * dx, Z: float64(k) * dx}
	}
}

// Direction identifies a staggered face normal direction.
type Direction int

const (
	U Direction = iota
	V
	W
)

// SampleLinear trilinearly interpolates the velocity vector at world
// point p, sampling each component from its own shifted staggered
// lattice. Points entirely outside the valid indexing region return
// OutOfRangeVelocity.
func (f *Field) SampleLinear(p vmath.Vec3) vmath.Vec3 {
	if !f.inRange(p) {
		return f.OutOfRangeVelocity
	}
	return vmath.Vec3{
		X: sampleComponent(f.U, p, f.Dx, -0.0, -0.5, -0.5),
		Y: sampleComponent(f.V, p, f.Dx, -0.5, -0.0, -0.5),
		Z: sampleComponent(f.W, p, f.Dx, -0.5, -0.5, -0.0),
	}
}

func (f *Field) inRange(p vmath.Vec3) bool {
	lo := -f.Dx
	hiX := (float64(f.Isize) + 1) * f.Dx
	hiY := (float64(f.Jsize) + 1) * f.Dx
	hiZ := (float64(f.Ksize) + 1) * f.Dx
	return p.X >= lo && p.X <= hiX && p.Y >= lo && p.Y <= hiY && p.Z >= lo && p.Z <= hiZ
}

// sampleComponent trilinearly interpolates one staggered scalar lattice
// whose origin is shifted by (shiftX,shiftY,shiftZ) cells relative to
// the cell-center lattice.
func sampleComponent(g *grid3d.Dense[float32], p vmath.Vec3, dx float64, shiftX, shiftY, shiftZ float64) float64 {
	gx := p.X/dx + shiftX
	gy := p.Y/dx + shiftY
	gz := p.Z/dx + shiftZ

	i0 := floorInt(gx)
	j0 := floorInt(gy)
	k0 := floorInt(gz)
	tx := gx - float64(i0)
	ty := gy - float64(j0)
	tz := gz - float64(k0)

	c000 := float64(g.Get(i0, j0, k0))
	c100 := float64(g.Get(i0+1, j0, k0))
	c010 := float64(g.Get(i0, j0+1, k0))
	c110 := float64(g.Get(i0+1, j0+1, k0))
	c001 := float64(g.Get(i0, j0, k0+1))
	c101 := float64(g.Get(i0+1, j0, k0+1))
	c011 := float64(g.Get(i0, j0+1, k0+1))
	c111 := float64(g.Get(i0+1, j0+1, k0+1))

	c00 := c000*(1-tx) + c100*tx
	c10 := c010*(1-tx) + c110*tx
	c01 := c001*(1-tx) + c101*tx
	c11 := c011*(1-tx) + c111*tx

	c0 := c00*(1-ty) + c10*ty
	c1 := c01*(1-ty) + c11*ty

	return c0*(1-tz) + c1*tz
}

func floorInt(v float64) int {
	i := int(v)
	if v < 0 && float64(i) != v {
		i--
	}
	return i
}
