// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mac

import (
	"math"
	"testing"

	"github.com/cpmech/goflip/vmath"
)

func TestSaveRestoreZero(t *testing.T) {
	f := NewField(4, 4, 4, 0.1)
	raw := f.U.Raw()
	for i := range raw {
		raw[i] = float32(i)
	}
	saved := f.Clone()
	delta := Sub(f, saved)
	for _, v := range delta.U.Raw() {
		if v != 0 {
			t.Fatalf("expected all-zero delta, got %v", v)
		}
	}
}

func TestSampleLinearConstantField(t *testing.T) {
	f := NewField(8, 8, 8, 0.25)
	f.U.Fill(2.0)
	f.V.Fill(-1.0)
	f.W.Fill(0.5)
	p := vmath.Vec3{X: 0.9, Y: 1.1, Z: 0.6}
	v := f.SampleLinear(p)
	if math.Abs(v.X-2.0) > 1e-6 || math.Abs(v.Y-(-1.0)) > 1e-6 || math.Abs(v.Z-0.5) > 1e-6 {
		t.Fatalf("expected constant-field sample to reproduce the constant, got %+v", v)
	}
}

func TestSampleLinearOutOfRange(t *testing.T) {
	f := NewField(4, 4, 4, 0.1)
	f.OutOfRangeVelocity = vmath.Vec3{X: 0, Y: -9.8, Z: 0}
	v := f.SampleLinear(vmath.Vec3{X: 1000, Y: 1000, Z: 1000})
	if v != f.OutOfRangeVelocity {
		t.Fatalf("expected out-of-range default, got %+v", v)
	}
}

func TestExtrapolateFillsOneLayer(t *testing.T) {
	f := NewField(4, 4, 4, 0.1)
	valid := NewValidMask(4, 4, 4)
	f.U.Set(2, 2, 2, 5.0)
	valid.U.Set(2, 2, 2, true)
	f.Extrapolate(valid, 1)
	if got := f.U.Get(3, 2, 2); got != 5.0 {
		t.Fatalf("expected neighbor extrapolated to 5.0, got %v", got)
	}
	if !valid.U.Get(3, 2, 2) {
		t.Fatal("expected neighbor marked valid after extrapolation")
	}
}
