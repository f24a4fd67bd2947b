// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package advect implements RK1-4 particle advection through a MAC
// velocity field (spec.md §4.8), grounded on
// original_source/src/engine/particleadvector.cpp. The integrator
// call shape — a pure function of (position, dt) returning a
// velocity — mirrors the functional right-hand-side signature
// gofem's ana.ColumnFluidPressure passes to gosl/ode.ODE.Init, though
// ParticleAdvector itself is a fixed-stage RK driven by the
// scheduler's own dt rather than an adaptive IVP solve, so it rolls
// its own small driver instead of pulling in ode.ODE (see DESIGN.md).
package advect

import (
	"github.com/cpmech/goflip/mac"
	"github.com/cpmech/goflip/vmath"
)

// Scheme selects the RK order used by ParticleAdvector.Advect.
type Scheme int

const (
	RK1 Scheme = iota
	RK2
	RK3 // Ralston's method
	RK4
)

// ParticleAdvector integrates marker-particle positions through a MAC
// field with a fixed-stage Runge-Kutta scheme.
type ParticleAdvector struct {
	Scheme Scheme
}

// NewParticleAdvector returns an advector using the given scheme.
func NewParticleAdvector(scheme Scheme) *ParticleAdvector {
	return &ParticleAdvector{Scheme: scheme}
}

// sample trilinearly samples field at p, substituting the zero vector
// for any non-finite component (spec.md §4.8's "numerical validation").
func sample(field *mac.Field, p vmath.Vec3) vmath.Vec3 {
	v := field.SampleLinear(p)
	if !v.IsFinite() {
		return vmath.Vec3{}
	}
	return v
}

// Advect returns the position of a single particle at p after dt
// seconds through field, per the selected scheme.
func (a *ParticleAdvector) Advect(field *mac.Field, p vmath.Vec3, dt float64) vmath.Vec3 {
	switch a.Scheme {
	case RK1:
		k1 := sample(field, p)
		return p.Add(k1.Scale(dt))
	case RK2:
		k1 := sample(field, p)
		k2 := sample(field, p.Add(k1.Scale(0.5*dt)))
		return p.Add(k2.Scale(dt))
	case RK3:
		k1 := sample(field, p)
		k2 := sample(field, p.Add(k1.Scale(0.5*dt)))
		k3 := sample(field, p.Add(k2.Scale(0.75*dt)))
		sum := k1.Scale(2).Add(k2.Scale(3)).Add(k3.Scale(4))
		return p.Add(sum.Scale(dt / 9))
	default: // RK4
		k1 := sample(field, p)
		k2 := sample(field, p.Add(k1.Scale(0.5*dt)))
		k3 := sample(field, p.Add(k2.Scale(0.5*dt)))
		k4 := sample(field, p.Add(k3.Scale(dt)))
		sum := k1.Add(k2.Scale(2)).Add(k3.Scale(2)).Add(k4)
		return p.Add(sum.Scale(dt / 6))
	}
}

// AdvectMany advects every particle in positions in place. When accel
// is non-nil, the RK intermediate samples are batched through
// accel.SampleMany instead of one-by-one SampleLinear calls, matching
// spec.md §4.8's "trilinear-sample-many-particles primitive...
// dispatched to it in chunks."
func (a *ParticleAdvector) AdvectMany(field *mac.Field, positions []vmath.Vec3, dt float64, accel Sampler) {
	if accel == nil {
		for i, p := range positions {
			positions[i] = a.Advect(field, p, dt)
		}
		return
	}
	a.advectManyBatched(field, positions, dt, accel)
}

// Sampler batches trilinear MAC sampling, satisfied by
// transfer.Accelerator's SampleMany method (kept as a narrow local
// interface so advect doesn't import transfer).
type Sampler interface {
	SampleMany(field *mac.Field, points []vmath.Vec3) []vmath.Vec3
}

func (a *ParticleAdvector) advectManyBatched(field *mac.Field, positions []vmath.Vec3, dt float64, accel Sampler) {
	clean := func(vs []vmath.Vec3) []vmath.Vec3 {
		out := make([]vmath.Vec3, len(vs))
		for i, v := range vs {
			if v.IsFinite() {
				out[i] = v
			}
		}
		return out
	}

	k1 := clean(accel.SampleMany(field, positions))
	switch a.Scheme {
	case RK1:
		for i, p := range positions {
			positions[i] = p.Add(k1[i].Scale(dt))
		}
	case RK2:
		mid := make([]vmath.Vec3, len(positions))
		for i, p := range positions {
			mid[i] = p.Add(k1[i].Scale(0.5 * dt))
		}
		k2 := clean(accel.SampleMany(field, mid))
		for i, p := range positions {
			positions[i] = p.Add(k2[i].Scale(dt))
		}
	case RK3:
		mid2 := make([]vmath.Vec3, len(positions))
		for i, p := range positions {
			mid2[i] = p.Add(k1[i].Scale(0.5 * dt))
		}
		k2 := clean(accel.SampleMany(field, mid2))
		mid3 := make([]vmath.Vec3, len(positions))
		for i, p := range positions {
			mid3[i] = p.Add(k2[i].Scale(0.75 * dt))
		}
		k3 := clean(accel.SampleMany(field, mid3))
		for i, p := range positions {
			sum := k1[i].Scale(2).Add(k2[i].Scale(3)).Add(k3[i].Scale(4))
			positions[i] = p.Add(sum.Scale(dt / 9))
		}
	default: // RK4
		mid2 := make([]vmath.Vec3, len(positions))
		for i, p := range positions {
			mid2[i] = p.Add(k1[i].Scale(0.5 * dt))
		}
		k2 := clean(accel.SampleMany(field, mid2))
		mid3 := make([]vmath.Vec3, len(positions))
		for i, p := range positions {
			mid3[i] = p.Add(k2[i].Scale(0.5 * dt))
		}
		k3 := clean(accel.SampleMany(field, mid3))
		mid4 := make([]vmath.Vec3, len(positions))
		for i, p := range positions {
			mid4[i] = p.Add(k3[i].Scale(dt))
		}
		k4 := clean(accel.SampleMany(field, mid4))
		for i, p := range positions {
			sum := k1[i].Add(k2[i].Scale(2)).Add(k3[i].Scale(2)).Add(k4[i])
			positions[i] = p.Add(sum.Scale(dt / 6))
		}
	}
}
