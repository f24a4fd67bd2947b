// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package levelset

import (
	"math"
	"testing"

	"github.com/cpmech/goflip/trimesh"
	"github.com/cpmech/goflip/vmath"
)

func cube(lo, hi float64) *trimesh.Mesh {
	v := []vmath.Vec3{
		{X: lo, Y: lo, Z: lo}, {X: hi, Y: lo, Z: lo}, {X: hi, Y: hi, Z: lo}, {X: lo, Y: hi, Z: lo},
		{X: lo, Y: lo, Z: hi}, {X: hi, Y: lo, Z: hi}, {X: hi, Y: hi, Z: hi}, {X: lo, Y: hi, Z: hi},
	}
	tris := []trimesh.Triangle{
		{0, 2, 1}, {0, 3, 2},
		{4, 5, 6}, {4, 6, 7},
		{0, 1, 5}, {0, 5, 4},
		{1, 2, 6}, {1, 6, 5},
		{2, 3, 7}, {2, 7, 6},
		{3, 0, 4}, {3, 4, 7},
	}
	return trimesh.NewMesh(v, tris)
}

func TestMeshLevelSetBuildInsideOutside(t *testing.T) {
	dx := 0.1
	ls := NewMeshLevelSet(20, 20, 20, dx)
	ls.ExactBand = 4
	m := cube(0.4, 1.6)
	ls.Build(m, nil, 25)

	inside := ls.TrilinearInterpolate(vmath.Vec3{X: 1.0, Y: 1.0, Z: 1.0})
	if inside >= 0 {
		t.Fatalf("expected negative phi inside solid cube, got %v", inside)
	}
	outside := ls.TrilinearInterpolate(vmath.Vec3{X: 0.0, Y: 0.0, Z: 0.0})
	if outside <= 0 {
		t.Fatalf("expected positive phi outside solid cube, got %v", outside)
	}
}

func TestMeshLevelSetFaceWeightRange(t *testing.T) {
	dx := 0.1
	ls := NewMeshLevelSet(10, 10, 10, dx)
	ls.ExactBand = 3
	m := cube(0.3, 0.7)
	ls.Build(m, nil, 25)
	for _, w := range [][]float32{ls.WeightU.Raw(), ls.WeightV.Raw(), ls.WeightW.Raw()} {
		for _, v := range w {
			if v < 0 || v > 1 {
				t.Fatalf("face weight out of [0,1]: %v", v)
			}
		}
	}
}

func TestParticleLevelSetBuild(t *testing.T) {
	dx := 0.1
	ls := NewParticleLevelSet(8, 8, 8, dx)
	pts := []vmath.Vec3{{X: 0.45, Y: 0.45, Z: 0.45}}
	ls.Build(pts, 2)
	center := ls.TrilinearInterpolate(vmath.Vec3{X: 0.45, Y: 0.45, Z: 0.45})
	if center >= 0 {
		t.Fatalf("expected negative phi at particle center, got %v", center)
	}
	far := ls.TrilinearInterpolate(vmath.Vec3{X: 0.75, Y: 0.75, Z: 0.75})
	if far <= center {
		t.Fatalf("expected phi to increase away from the particle")
	}
}

func TestFractionInside(t *testing.T) {
	if fractionInside(1, 1) != 1 {
		t.Fatal("fully outside should be 1")
	}
	if fractionInside(-1, -1) != 0 {
		t.Fatal("fully inside should be 0")
	}
	v := fractionInside(1, -1)
	if math.Abs(v-0.5) > 1e-9 {
		t.Fatalf("symmetric crossing should be 0.5, got %v", v)
	}
}
