// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package advect

import (
	"math"
	"testing"

	"github.com/cpmech/goflip/mac"
	"github.com/cpmech/goflip/vmath"
)

func uniformField(isize, jsize, ksize int, dx float64, v vmath.Vec3) *mac.Field {
	f := mac.NewField(isize, jsize, ksize, dx)
	uRaw := f.U.Raw()
	for i := range uRaw {
		uRaw[i] = float32(v.X)
	}
	vRaw := f.V.Raw()
	for i := range vRaw {
		vRaw[i] = float32(v.Y)
	}
	wRaw := f.W.Raw()
	for i := range wRaw {
		wRaw[i] = float32(v.Z)
	}
	return f
}

func TestAdvectUniformFieldAllSchemes(t *testing.T) {
	dx := 0.1
	field := uniformField(20, 20, 20, dx, vmath.Vec3{X: 1, Y: 0, Z: 0})
	p := vmath.Vec3{X: 1.0, Y: 1.0, Z: 1.0}
	dt := 0.05

	for _, sch := range []Scheme{RK1, RK2, RK3, RK4} {
		a := NewParticleAdvector(sch)
		got := a.Advect(field, p, dt)
		want := vmath.Vec3{X: 1.0 + dt, Y: 1.0, Z: 1.0}
		if math.Abs(got.X-want.X) > 1e-4 || math.Abs(got.Y-want.Y) > 1e-9 || math.Abs(got.Z-want.Z) > 1e-9 {
			t.Fatalf("scheme %v: got %v, want %v", sch, got, want)
		}
	}
}

func TestAdvectManyUnbatchedMatchesOneByOne(t *testing.T) {
	dx := 0.1
	field := uniformField(20, 20, 20, dx, vmath.Vec3{X: 0.5, Y: -0.25, Z: 0.1})
	positions := []vmath.Vec3{{X: 1, Y: 1, Z: 1}, {X: 1.2, Y: 0.9, Z: 1.1}}
	dt := 0.02
	a := NewParticleAdvector(RK4)

	expect := make([]vmath.Vec3, len(positions))
	for i, p := range positions {
		expect[i] = a.Advect(field, p, dt)
	}
	a.AdvectMany(field, positions, dt, nil)
	for i := range positions {
		if positions[i] != expect[i] {
			t.Fatalf("particle %d: got %v, want %v", i, positions[i], expect[i])
		}
	}
}

func TestNonFiniteSampleBecomesZero(t *testing.T) {
	field := mac.NewField(4, 4, 4, 0.1)
	field.OutOfRangeVelocity = vmath.Vec3{X: math.NaN()}
	a := NewParticleAdvector(RK1)
	got := a.Advect(field, vmath.Vec3{X: -10, Y: -10, Z: -10}, 0.1)
	if got.X != -10 || got.Y != -10 || got.Z != -10 {
		t.Fatalf("NaN velocity should contribute zero displacement, got %v", got)
	}
}
