// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vmath

import "math"

// AABB is an axis-aligned bounding box, grounded on
// original_source/src/engine/aabb.h/.cpp.
type AABB struct {
	Min, Max Vec3
}

// NewAABB returns the box spanning min..max.
func NewAABB(min, max Vec3) AABB { return AABB{Min: min, Max: max} }

// EmptyAABB returns a degenerate box ready to be grown by Expand.
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{Min: Vec3{inf, inf, inf}, Max: Vec3{-inf, -inf, -inf}}
}

// Expand grows the box to include p.
func (b *AABB) Expand(p Vec3) {
	b.Min.X = math.Min(b.Min.X, p.X)
	b.Min.Y = math.Min(b.Min.Y, p.Y)
	b.Min.Z = math.Min(b.Min.Z, p.Z)
	b.Max.X = math.Max(b.Max.X, p.X)
	b.Max.Y = math.Max(b.Max.Y, p.Y)
	b.Max.Z = math.Max(b.Max.Z, p.Z)
}

// Pad returns the box grown by d in every direction.
func (b AABB) Pad(d float64) AABB {
	v := Vec3{d, d, d}
	return AABB{Min: b.Min.Sub(v), Max: b.Max.Add(v)}
}

// Contains reports whether p lies within the box (inclusive).
func (b AABB) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Shrink returns the box shrunk by eps on every side, clamped so it never
// inverts. Used to enforce the MarkerParticle containment invariant of
// spec.md §3 (boundary epsilon).
func (b AABB) Shrink(eps float64) AABB {
	v := Vec3{eps, eps, eps}
	out := AABB{Min: b.Min.Add(v), Max: b.Max.Sub(v)}
	if out.Min.X > out.Max.X {
		mid := (b.Min.X + b.Max.X) / 2
		out.Min.X, out.Max.X = mid, mid
	}
	if out.Min.Y > out.Max.Y {
		mid := (b.Min.Y + b.Max.Y) / 2
		out.Min.Y, out.Max.Y = mid, mid
	}
	if out.Min.Z > out.Max.Z {
		mid := (b.Min.Z + b.Max.Z) / 2
		out.Min.Z, out.Max.Z = mid, mid
	}
	return out
}

// Clamp returns p projected into the box.
func (b AABB) Clamp(p Vec3) Vec3 {
	return Vec3{
		clamp(p.X, b.Min.X, b.Max.X),
		clamp(p.Y, b.Min.Y, b.Max.Y),
		clamp(p.Z, b.Min.Z, b.Max.Z),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp clamps v to [lo,hi]. Exported for reuse outside AABB.
func Clamp(v, lo, hi float64) float64 { return clamp(v, lo, hi) }
