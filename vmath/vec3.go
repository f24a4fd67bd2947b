// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vmath implements the small vector, matrix and bounding-box
// primitives shared by every other package: marker particle positions
// and velocities, mesh vertices, grid origins.
package vmath

import "math"

// Vec3 is a 3-component double-precision vector.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns a+b.
func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }

// Sub returns a-b.
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

// Scale returns a*s.
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }

// Dot returns the dot product a・b.
func (a Vec3) Dot(b Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

// Cross returns a×b, using the same right-hand convention as
// gosl/utl.Cross3d (which operates on []float64, not a struct type —
// see DESIGN.md's vmath entry for why Vec3 stays on stdlib math here).
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

// Length returns |a|.
func (a Vec3) Length() float64 { return math.Sqrt(a.Dot(a)) }

// LengthSq returns |a|².
func (a Vec3) LengthSq() float64 { return a.Dot(a) }

// Normalize returns a/|a|, or the zero vector if a is (near) zero.
func (a Vec3) Normalize() Vec3 {
	l := a.Length()
	if l < 1e-12 {
		return Vec3{}
	}
	return a.Scale(1 / l)
}

// IsFinite reports whether every component is finite (not NaN or ±Inf).
// Used by advect.ParticleAdvector to implement spec.md §7's NumericIssue
// recovery: a non-finite sample is replaced by the zero vector.
func (a Vec3) IsFinite() bool {
	return !math.IsNaN(a.X) && !math.IsInf(a.X, 0) &&
		!math.IsNaN(a.Y) && !math.IsInf(a.Y, 0) &&
		!math.IsNaN(a.Z) && !math.IsInf(a.Z, 0)
}

// Lerp linearly interpolates between a and b by t ∈ [0,1].
func Lerp(a, b Vec3, t float64) Vec3 {
	return a.Scale(1 - t).Add(b.Scale(t))
}

// GridIndex is an integer (i,j,k) cell or face index.
type GridIndex struct {
	I, J, K int
}
