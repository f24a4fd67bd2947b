// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trimesh

// dsu is a small disjoint-set-union helper for vertex-adjacency
// flood-filling, mirroring trianglemesh.cpp's connected-island split.
type dsu struct {
	parent []int
	rank   []int
}

func newDSU(n int) *dsu {
	d := &dsu{parent: make([]int, n), rank: make([]int, n)}
	for i := range d.parent {
		d.parent[i] = i
	}
	return d
}

func (d *dsu) find(x int) int {
	for d.parent[x] != x {
		d.parent[x] = d.parent[d.parent[x]]
		x = d.parent[x]
	}
	return x
}

func (d *dsu) union(a, b int) {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return
	}
	if d.rank[ra] < d.rank[rb] {
		ra, rb = rb, ra
	}
	d.parent[rb] = ra
	if d.rank[ra] == d.rank[rb] {
		d.rank[ra]++
	}
}

// Islands splits the mesh into connected components by shared vertex,
// per spec.md §4.3 step 1. Each returned Mesh has its own compacted
// vertex and triangle arrays, so each island's closest-point query and
// padded-AABB construction (levelset.MeshLevelSet.Build) can run
// independently, the precondition for the bounded-queue parallel union
// path named in spec.md §9.
func (m *Mesh) Islands() []*Mesh {
	if len(m.Tris) == 0 {
		return nil
	}
	d := newDSU(len(m.Verts))
	for _, tri := range m.Tris {
		d.union(tri.A, tri.B)
		d.union(tri.B, tri.C)
	}

	rootToIsland := make(map[int]int)
	var islands []*Mesh
	islandVertIdx := make(map[int]map[int]int)

	for ti, tri := range m.Tris {
		_ = ti
		root := d.find(tri.A)
		idx, ok := rootToIsland[root]
		if !ok {
			idx = len(islands)
			rootToIsland[root] = idx
			islands = append(islands, &Mesh{})
			islandVertIdx[idx] = make(map[int]int)
		}
		newID := func(oldID int) int {
			vm := islandVertIdx[idx]
			if nid, ok := vm[oldID]; ok {
				return nid
			}
			nid := len(islands[idx].Verts)
			islands[idx].Verts = append(islands[idx].Verts, m.Verts[oldID])
			if m.Velocity != nil {
				islands[idx].Velocity = append(islands[idx].Velocity, m.Velocity[oldID])
			}
			vm[oldID] = nid
			return nid
		}
		na, nb, nc := newID(tri.A), newID(tri.B), newID(tri.C)
		islands[idx].Tris = append(islands[idx].Tris, Triangle{na, nb, nc})
	}
	return islands
}
