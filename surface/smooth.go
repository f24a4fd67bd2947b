// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package surface

import (
	"github.com/cpmech/goflip/trimesh"
	"github.com/cpmech/goflip/vmath"
)

// Smooth applies iterations passes of Laplacian smoothing to mesh in
// place, blending each vertex toward the average of its edge-adjacent
// neighbors by weight (spec.md §3's surface_smoothing_value/iterations).
func Smooth(mesh *trimesh.Mesh, iterations int, weight float64) {
	if iterations <= 0 || len(mesh.Verts) == 0 {
		return
	}
	adjacency := buildAdjacency(mesh)
	for pass := 0; pass < iterations; pass++ {
		next := make([]vmath.Vec3, len(mesh.Verts))
		for i, v := range mesh.Verts {
			neighbors := adjacency[i]
			if len(neighbors) == 0 {
				next[i] = v
				continue
			}
			var sum vmath.Vec3
			for _, n := range neighbors {
				sum = sum.Add(mesh.Verts[n])
			}
			avg := sum.Scale(1 / float64(len(neighbors)))
			next[i] = vmath.Lerp(v, avg, weight)
		}
		copy(mesh.Verts, next)
	}
}

func buildAdjacency(mesh *trimesh.Mesh) [][]int {
	adjacency := make([][]int, len(mesh.Verts))
	seen := make(map[[2]int]bool)
	addEdge := func(a, b int) {
		key := [2]int{a, b}
		if a > b {
			key = [2]int{b, a}
		}
		if seen[key] {
			return
		}
		seen[key] = true
		adjacency[a] = append(adjacency[a], b)
		adjacency[b] = append(adjacency[b], a)
	}
	for _, t := range mesh.Tris {
		addEdge(t.A, t.B)
		addEdge(t.B, t.C)
		addEdge(t.C, t.A)
	}
	return adjacency
}
