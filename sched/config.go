// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sched

// Config holds the substep-loop parameters of spec.md §3/§4.12 that
// sched.Scheduler consumes directly; sim.Config carries the full
// public option set and translates into this narrower struct when
// constructing a Scheduler.
type Config struct {
	Density float64

	CFLNumber        float64
	MinSubsteps      int
	MaxSubsteps      int
	PicFlipRatio     float64
	BoundaryFriction float64
	SolidBufferWidth float64 // in units of dx

	ParticleRadius float64 // splat radius, ≈ dx

	ExtremeVelocityEnabled bool
	ExtremeVelocityMaxPct  float64
	ExtremeVelocityMaxAbs  float64

	ComputeCurvature             bool
	CurvatureSmoothingIterations int
	CurvatureSmoothingValue      float64
	CurvatureExtrapolationLayers int

	AdaptiveObstacleTimeStepping bool

	MeshUnionParallelThreshold int

	BoundaryEpsilon float64 // fraction of dx, marker containment shrink
}

// DefaultConfig returns the spec.md §3 default substep parameters for
// a grid of cell size dx.
func DefaultConfig(dx float64) Config {
	return Config{
		Density:                      1000,
		CFLNumber:                    5,
		MinSubsteps:                  1,
		MaxSubsteps:                  6,
		PicFlipRatio:                 0.05,
		BoundaryFriction:             0,
		SolidBufferWidth:             0.1,
		ParticleRadius:               dx,
		ExtremeVelocityEnabled:       false,
		ExtremeVelocityMaxPct:        0.001,
		ExtremeVelocityMaxAbs:        0,
		ComputeCurvature:             false,
		CurvatureSmoothingIterations: 2,
		CurvatureSmoothingValue:      0.25,
		CurvatureExtrapolationLayers: 2,
		AdaptiveObstacleTimeStepping: false,
		MeshUnionParallelThreshold:   25,
		BoundaryEpsilon:              1e-5,
	}
}
