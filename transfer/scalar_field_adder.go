// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transfer

import (
	"github.com/cpmech/goflip/grid3d"
	"github.com/cpmech/goflip/vmath"
)

// ScalarFieldAdder splats a per-particle scalar attribute (e.g. an
// advected density or temperature) onto a cell-centered grid. Same
// structure as VelocityAdvector but for one scalar component instead
// of three staggered ones (spec.md §4.7).
type ScalarFieldAdder struct {
	Accelerator Accelerator
	Radius      float64
	Dx          float64
}

// NewScalarFieldAdder builds an adder splatting with the given
// accelerator, particle-to-grid radius, and cell size.
func NewScalarFieldAdder(accel Accelerator, radius, dx float64) *ScalarFieldAdder {
	return &ScalarFieldAdder{Accelerator: accel, Radius: radius, Dx: dx}
}

// Splat scatters positions/values into out (a cell-centered grid),
// marking valid wherever accumulated kernel weight was nonzero.
func (s *ScalarFieldAdder) Splat(positions []vmath.Vec3, values []float64, out *grid3d.Dense[float32], valid *grid3d.Dense[bool]) {
	dx := s.Dx
	pos := func(i, j, k int) vmath.Vec3 {
		return vmath.Vec3{X: (float64(i) + 0.5) * dx, Y: (float64(j) + 0.5) * dx, Z: (float64(k) + 0.5) * dx}
	}
	s.Accelerator.SplatScalar(positions, values, s.Radius, dx, out, valid, pos)
}
