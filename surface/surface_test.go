// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package surface

import (
	"math"
	"testing"

	"github.com/cpmech/goflip/grid3d"
)

// sphereField builds a node-centered signed-distance grid of a sphere
// of radius r centered in an n^3 node grid of spacing dx.
func sphereField(n int, dx, r float64) *grid3d.Dense[float32] {
	g := grid3d.NewDense[float32](n, n, n)
	center := float64(n-1) * dx / 2
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				x, y, z := float64(i)*dx-center, float64(j)*dx-center, float64(k)*dx-center
				d := math.Sqrt(x*x+y*y+z*z) - r
				g.Set(i, j, k, float32(d))
			}
		}
	}
	return g
}

func TestPolygonizeSphereProducesTriangles(t *testing.T) {
	dx := 0.1
	phi := sphereField(12, dx, 0.4)
	mesh := Polygonize(phi, dx, 1)
	if len(mesh.Tris) == 0 {
		t.Fatal("expected at least one triangle for a sphere crossing the grid")
	}
	if len(mesh.Verts) != 3*len(mesh.Tris) {
		t.Fatalf("expected 3 unshared verts per triangle, got %d verts for %d tris", len(mesh.Verts), len(mesh.Tris))
	}
}

func TestPolygonizeEmptyFieldProducesNoTriangles(t *testing.T) {
	dx := 0.1
	phi := grid3d.NewDense[float32](6, 6, 6)
	phi.Fill(1) // positive everywhere: no crossing
	mesh := Polygonize(phi, dx, 1)
	if len(mesh.Tris) != 0 {
		t.Fatalf("expected no triangles for an all-positive field, got %d", len(mesh.Tris))
	}
}

func TestFilterSmallComponentsDropsBelowThreshold(t *testing.T) {
	dx := 0.1
	phi := sphereField(12, dx, 0.4)
	mesh := Polygonize(phi, dx, 1)
	before := len(mesh.Tris)
	filtered := FilterSmallComponents(mesh, before+1000)
	if len(filtered.Tris) != 0 {
		t.Fatalf("expected every triangle dropped by an unreachable threshold, got %d", len(filtered.Tris))
	}
	kept := FilterSmallComponents(mesh, 1)
	if len(kept.Tris) != before {
		t.Fatalf("expected all %d triangles kept at threshold 1, got %d", before, len(kept.Tris))
	}
}

func TestSmoothPreservesVertexCount(t *testing.T) {
	dx := 0.1
	phi := sphereField(12, dx, 0.4)
	mesh := Polygonize(phi, dx, 1)
	n := len(mesh.Verts)
	Smooth(mesh, 3, 0.5)
	if len(mesh.Verts) != n {
		t.Fatalf("smoothing should not change vertex count: got %d want %d", len(mesh.Verts), n)
	}
}
