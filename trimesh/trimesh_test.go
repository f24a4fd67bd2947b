// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trimesh

import (
	"math"
	"reflect"
	"testing"

	"github.com/cpmech/goflip/vmath"
)

func cube() *Mesh {
	v := []vmath.Vec3{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 0, Y: 1, Z: 1},
	}
	tris := []Triangle{
		{0, 1, 2}, {0, 2, 3}, // bottom
		{4, 6, 5}, {4, 7, 6}, // top
		{0, 4, 5}, {0, 5, 1}, // front
		{1, 5, 6}, {1, 6, 2}, // right
		{2, 6, 7}, {2, 7, 3}, // back
		{3, 7, 4}, {3, 4, 0}, // left
	}
	return NewMesh(v, tris)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := cube()
	data := m.EncodeBinary()
	got, err := DecodeBinary(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !reflect.DeepEqual(got.Verts, m.Verts) {
		t.Fatalf("vertices changed: got %+v want %+v", got.Verts, m.Verts)
	}
	if !reflect.DeepEqual(got.Tris, m.Tris) {
		t.Fatalf("triangles changed: got %+v want %+v", got.Tris, m.Tris)
	}
}

func TestIslandsSplitsDisjointCubes(t *testing.T) {
	m := cube()
	second := cube()
	for i := range second.Verts {
		second.Verts[i] = second.Verts[i].Add(vmath.Vec3{X: 10, Y: 0, Z: 0})
	}
	offset := len(m.Verts)
	m.Verts = append(m.Verts, second.Verts...)
	for _, tri := range second.Tris {
		m.Tris = append(m.Tris, Triangle{tri.A + offset, tri.B + offset, tri.C + offset})
	}
	islands := m.Islands()
	if len(islands) != 2 {
		t.Fatalf("expected 2 islands, got %d", len(islands))
	}
	for _, isl := range islands {
		if len(isl.Verts) != 8 || len(isl.Tris) != 12 {
			t.Fatalf("island has wrong size: %d verts %d tris", len(isl.Verts), len(isl.Tris))
		}
	}
}

func TestClosestDistanceAndParity(t *testing.T) {
	m := cube()
	q := NewClosestPointQuery(m)
	d := q.ClosestDistance(vmath.Vec3{X: -1, Y: 0.5, Z: 0.5})
	if math.Abs(d-1.0) > 1e-6 {
		t.Fatalf("expected distance 1.0 outside cube face, got %v", d)
	}
	if !q.InsideByParity(vmath.Vec3{X: 0.5, Y: 0.5, Z: 0.5}) {
		t.Fatal("center of cube should be inside")
	}
	if q.InsideByParity(vmath.Vec3{X: 5, Y: 5, Z: 5}) {
		t.Fatal("far point should be outside")
	}
}
