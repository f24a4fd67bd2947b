// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sched implements the per-substep orchestration loop of
// spec.md §4.12, grounded on gofem's fem.Main.Run stage loop and
// fem.Solver.Run(tf, dtFunc, dtoFunc, ...) contract: this package's
// Scheduler.StepFrame is the direct analog with substeps instead of
// load/time stages.
package sched

import (
	"github.com/cpmech/goflip/grid3d"
	"github.com/cpmech/goflip/levelset"
	"github.com/cpmech/goflip/mac"
	"github.com/cpmech/goflip/trimesh"
	"github.com/cpmech/goflip/vmath"
)

// MarkerParticle is one liquid marker, per spec.md §3.
type MarkerParticle struct {
	Position vmath.Vec3
	Velocity vmath.Vec3
}

// Obstacle is a (possibly animated) solid mesh contributing to the
// solid level set. Displace, when non-nil, maps a rest-pose vertex and
// the current simulation time to its displaced position, per spec.md
// §3's "optional per-frame vertex displacements"; a nil Displace is a
// static obstacle.
type Obstacle struct {
	RestMesh *trimesh.Mesh
	Displace func(rest vmath.Vec3, time float64) vmath.Vec3
	Velocity func(rest vmath.Vec3, time float64) vmath.Vec3
}

// WorldMesh returns the obstacle's mesh at time t, displaced in place
// on a copy of its rest pose.
func (o *Obstacle) WorldMesh(t float64) *trimesh.Mesh {
	if o.Displace == nil {
		return o.RestMesh
	}
	verts := make([]vmath.Vec3, len(o.RestMesh.Verts))
	for i, v := range o.RestMesh.Verts {
		verts[i] = o.Displace(v, t)
	}
	return trimesh.NewMesh(verts, o.RestMesh.Tris)
}

// SourceKind distinguishes inflow (adds particles) from outflow
// (removes particles) mesh sources (spec.md §4.12 step 14).
type SourceKind int

const (
	Inflow SourceKind = iota
	Outflow
)

// Source is a mesh region that emits or removes marker particles every
// substep.
type Source struct {
	Mesh     *trimesh.Mesh
	Kind     SourceKind
	Velocity vmath.Vec3 // added to newly emitted particles, Inflow only
	Rate     float64    // particles per second per cell, Inflow only
}

// BodyForce is one contribution to the per-substep gravity/external
// force sum (spec.md §4.12 step 7). TimeVarying, when non-nil, is
// added on top of Constant evaluated at the current simulation time,
// mirroring ele/solid's fun.Func-typed load fields.
type BodyForce struct {
	Constant    vmath.Vec3
	TimeVarying func(time float64) vmath.Vec3
}

// State owns every grid and particle array the scheduler mutates
// across a run — the "DomainState exclusively owns all grids,
// particles, and obstacle/source handles" ownership rule of spec.md §3,
// factored out of sim.DomainState so sched has no import-cycle on the
// higher-level public contract package.
type State struct {
	Isize, Jsize, Ksize int
	Dx                  float64
	Time                float64

	Field      *mac.Field
	SavedField *mac.Field
	Valid      *mac.ValidMask

	Solid     *levelset.MeshLevelSet
	SolidNext *levelset.MeshLevelSet
	Liquid    *levelset.ParticleLevelSet
	Viscosity *grid3d.Dense[float64]
	Curvature *grid3d.Dense[float32]

	Particles  []MarkerParticle
	Obstacles  []*Obstacle
	Sources    []*Source
	BodyForces []BodyForce

	sourceAccum []float64 // fractional-particle carry-over per inflow source
}

// NewState allocates a zero-initialized simulation state for a grid of
// (isize,jsize,ksize) cells of side dx, matching spec.md §4.14's
// "DomainState::new zero-initializes everything."
func NewState(isize, jsize, ksize int, dx float64) *State {
	return &State{
		Isize: isize, Jsize: jsize, Ksize: ksize, Dx: dx,
		Field:      mac.NewField(isize, jsize, ksize, dx),
		SavedField: mac.NewField(isize, jsize, ksize, dx),
		Valid:      mac.NewValidMask(isize, jsize, ksize),
		Solid:      levelset.NewMeshLevelSet(isize, jsize, ksize, dx),
		SolidNext:  levelset.NewMeshLevelSet(isize, jsize, ksize, dx),
		Liquid:     levelset.NewParticleLevelSet(isize, jsize, ksize, dx),
		Viscosity:  grid3d.NewDense[float64](isize, jsize, ksize),
		Curvature:  grid3d.NewDense[float32](isize, jsize, ksize),
	}
}

// MaxParticleSpeed returns the fastest current marker-particle speed,
// used by the CFL-adaptive substep size of spec.md §4.12.
func (s *State) MaxParticleSpeed() float64 {
	max := 0.0
	for _, p := range s.Particles {
		v := p.Velocity.Length()
		if v > max {
			max = v
		}
	}
	return max
}

// MaxObstacleSpeed samples every animated obstacle's vertex velocity
// function at the current time and returns the largest magnitude, or 0
// if no obstacle carries a Velocity function.
func (s *State) MaxObstacleSpeed(time float64) float64 {
	max := 0.0
	for _, o := range s.Obstacles {
		if o.Velocity == nil {
			continue
		}
		for _, v := range o.RestMesh.Verts {
			speed := o.Velocity(v, time).Length()
			if speed > max {
				max = speed
			}
		}
	}
	return max
}
