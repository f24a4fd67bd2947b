// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transfer

import (
	"github.com/cpmech/goflip/mac"
	"github.com/cpmech/goflip/vmath"
)

// VelocityAdvector splats marker-particle velocities onto a MAC field
// component-by-component, one call to Accelerator.SplatScalar per
// staggered face grid (spec.md §4.6).
type VelocityAdvector struct {
	Accelerator Accelerator
	Radius      float64 // particle-to-grid radius, ≈ dx
}

// NewVelocityAdvector builds an advector splatting with the given
// accelerator and particle-to-grid radius.
func NewVelocityAdvector(accel Accelerator, radius float64) *VelocityAdvector {
	return &VelocityAdvector{Accelerator: accel, Radius: radius}
}

// Splat scatters positions/velocities into field, overwriting field's
// U/V/W grids and marking valid wherever the accumulated kernel
// weight was nonzero. A face outside every particle's support is left
// at zero and marked invalid, to be filled by extrap.Scalar
// downstream (spec.md §4.2).
func (v *VelocityAdvector) Splat(field *mac.Field, valid *mac.ValidMask, positions []vmath.Vec3, velocities []vmath.Vec3) {
	dx := field.Dx
	valid.Reset()

	xs := make([]float64, len(velocities))
	ys := make([]float64, len(velocities))
	zs := make([]float64, len(velocities))
	for i, vel := range velocities {
		xs[i], ys[i], zs[i] = vel.X, vel.Y, vel.Z
	}

	v.Accelerator.SplatScalar(positions, xs, v.Radius, dx, field.U, valid.U, faceU(field))
	v.Accelerator.SplatScalar(positions, ys, v.Radius, dx, field.V, valid.V, faceV(field))
	v.Accelerator.SplatScalar(positions, zs, v.Radius, dx, field.W, valid.W, faceW(field))
}

func faceU(f *mac.Field) func(i, j, k int) vmath.Vec3 {
	return func(i, j, k int) vmath.Vec3 { return f.FaceIndexToPosition(i, j, k, mac.U) }
}

func faceV(f *mac.Field) func(i, j, k int) vmath.Vec3 {
	return func(i, j, k int) vmath.Vec3 { return f.FaceIndexToPosition(i, j, k, mac.V) }
}

func faceW(f *mac.Field) func(i, j, k int) vmath.Vec3 {
	return func(i, j, k int) vmath.Vec3 { return f.FaceIndexToPosition(i, j, k, mac.W) }
}
