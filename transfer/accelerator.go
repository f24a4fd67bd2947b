// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transfer

import (
	"github.com/cpmech/goflip/grid3d"
	"github.com/cpmech/goflip/mac"
	"github.com/cpmech/goflip/vmath"
	"github.com/cpmech/goflip/worker"
)

// Accelerator is the pluggable backend behind ScalarFieldAdder and
// VelocityAdvector, mirroring the CPU/OpenCL split in the original
// engine's clscalarfield.h: "an optional accelerator backend may
// dispatch the per-block compute to a compute device; when disabled
// or unavailable, the CPU path is used" (spec.md §4.7).
type Accelerator interface {
	// SplatScalar rasterizes values[i] at points[i] onto outValue
	// with Kernel(_, radius), marking outValid wherever accumulated
	// weight exceeds the normalize epsilon.
	SplatScalar(points []vmath.Vec3, values []float64, radius, dx float64, outValue *grid3d.Dense[float32], outValid *grid3d.Dense[bool], pos func(i, j, k int) vmath.Vec3)

	// SampleMany trilinearly samples field.SampleLinear at every
	// point, batched so a device backend can dispatch them together.
	SampleMany(field *mac.Field, points []vmath.Vec3) []vmath.Vec3
}

// CPUAccelerator is the always-available Accelerator backed by the
// worker pool; no compute-device backend is implemented in this
// module (preferred_accelerator_device always resolves to it, see
// sim.Config).
type CPUAccelerator struct {
	Pool *worker.Pool
}

// NewCPUAccelerator returns a CPUAccelerator using pool for its
// block-parallel dispatch.
func NewCPUAccelerator(pool *worker.Pool) *CPUAccelerator {
	return &CPUAccelerator{Pool: pool}
}

func (a *CPUAccelerator) SplatScalar(points []vmath.Vec3, values []float64, radius, dx float64, outValue *grid3d.Dense[float32], outValid *grid3d.Dense[bool], pos func(i, j, k int) vmath.Vec3) {
	splat(a.Pool, points, values, radius, dx, outValue, outValid, pos)
}

func (a *CPUAccelerator) SampleMany(field *mac.Field, points []vmath.Vec3) []vmath.Vec3 {
	out := make([]vmath.Vec3, len(points))
	for i, p := range points {
		out[i] = field.SampleLinear(p)
	}
	return out
}
