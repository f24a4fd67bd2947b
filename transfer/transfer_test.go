// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transfer

import (
	"math"
	"testing"

	"github.com/cpmech/goflip/grid3d"
	"github.com/cpmech/goflip/mac"
	"github.com/cpmech/goflip/vmath"
	"github.com/cpmech/goflip/worker"
)

func TestKernelSupport(t *testing.T) {
	r := 1.0
	if Kernel(0, r) != 1 {
		t.Fatalf("W(0) should be 1, got %v", Kernel(0, r))
	}
	if Kernel(r*r, r) != 0 {
		t.Fatalf("W(r^2) should be 0 at the boundary")
	}
	if Kernel(2*r*r, r) != 0 {
		t.Fatalf("W should vanish outside the support radius")
	}
}

func TestScalarFieldAdderConstantField(t *testing.T) {
	dx := 0.1
	isize, jsize, ksize := 10, 10, 10
	pool := worker.NewPool(2)
	accel := NewCPUAccelerator(pool)
	adder := NewScalarFieldAdder(accel, dx, dx)

	var positions []vmath.Vec3
	var values []float64
	for k := 0; k < ksize; k++ {
		for j := 0; j < jsize; j++ {
			for i := 0; i < isize; i++ {
				positions = append(positions, vmath.Vec3{X: (float64(i) + 0.5) * dx, Y: (float64(j) + 0.5) * dx, Z: (float64(k) + 0.5) * dx})
				values = append(values, 2.5)
			}
		}
	}

	out := grid3d.NewDense[float32](isize, jsize, ksize)
	valid := grid3d.NewDense[bool](isize, jsize, ksize)
	adder.Splat(positions, values, out, valid)

	for k := 2; k < ksize-2; k++ {
		for j := 2; j < jsize-2; j++ {
			for i := 2; i < isize-2; i++ {
				if !valid.Get(i, j, k) {
					t.Fatalf("interior cell (%d,%d,%d) should be valid", i, j, k)
				}
				if math.Abs(float64(out.Get(i, j, k))-2.5) > 1e-4 {
					t.Fatalf("interior cell (%d,%d,%d) = %v, want 2.5", i, j, k, out.Get(i, j, k))
				}
			}
		}
	}
}

func TestVelocityAdvectorSplatsAllThreeComponents(t *testing.T) {
	dx := 0.1
	isize, jsize, ksize := 8, 8, 8
	pool := worker.NewPool(2)
	accel := NewCPUAccelerator(pool)
	adv := NewVelocityAdvector(accel, dx)

	field := mac.NewField(isize, jsize, ksize, dx)
	valid := mac.NewValidMask(isize, jsize, ksize)

	positions := []vmath.Vec3{{X: 0.4, Y: 0.4, Z: 0.4}}
	velocities := []vmath.Vec3{{X: 1, Y: 2, Z: 3}}
	adv.Splat(field, valid, positions, velocities)

	anyValidU, anyValidV, anyValidW := false, false, false
	for _, v := range valid.U.Raw() {
		anyValidU = anyValidU || v
	}
	for _, v := range valid.V.Raw() {
		anyValidV = anyValidV || v
	}
	for _, v := range valid.W.Raw() {
		anyValidW = anyValidW || v
	}
	if !anyValidU || !anyValidV || !anyValidW {
		t.Fatalf("expected at least one valid face per component near the particle")
	}
}

func TestSplatUnsupportedRegionStaysInvalid(t *testing.T) {
	dx := 0.1
	isize, jsize, ksize := 10, 10, 10
	pool := worker.NewPool(2)
	accel := NewCPUAccelerator(pool)
	adder := NewScalarFieldAdder(accel, dx, dx)

	positions := []vmath.Vec3{{X: 0.05, Y: 0.05, Z: 0.05}}
	values := []float64{1}
	out := grid3d.NewDense[float32](isize, jsize, ksize)
	valid := grid3d.NewDense[bool](isize, jsize, ksize)
	adder.Splat(positions, values, out, valid)

	if valid.Get(9, 9, 9) {
		t.Fatal("a cell far outside the particle's support should stay invalid")
	}
}
