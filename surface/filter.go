// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package surface

import "github.com/cpmech/goflip/trimesh"

// FilterSmallComponents drops every connected component of mesh with
// fewer than minTriangles triangles, per spec.md §4.12's "filter by
// min_polyhedron_triangles", reusing trimesh's vertex-adjacency island
// split rather than a second connectivity pass.
func FilterSmallComponents(mesh *trimesh.Mesh, minTriangles int) *trimesh.Mesh {
	if minTriangles <= 1 {
		return mesh
	}
	islands := mesh.Islands()
	out := &trimesh.Mesh{}
	for _, isl := range islands {
		if len(isl.Tris) < minTriangles {
			continue
		}
		base := len(out.Verts)
		out.Verts = append(out.Verts, isl.Verts...)
		for _, t := range isl.Tris {
			out.Tris = append(out.Tris, trimesh.Triangle{A: t.A + base, B: t.B + base, C: t.C + base})
		}
	}
	return out
}
