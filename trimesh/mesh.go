// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trimesh implements the indexed triangle mesh and its
// level-set-construction support (island splitting, closest-point
// query, ray-parity sign), grounded on
// original_source/src/engine/trianglemesh.cpp and meshutils.h.
// Triangle-mesh file I/O is out of scope per spec.md §1; this package
// only implements the compact binary wire format and the ASCII PLY
// container named in spec.md §6.
package trimesh

import "github.com/cpmech/goflip/vmath"

// Triangle is a triplet of vertex indices into Mesh.Verts.
type Triangle struct {
	A, B, C int
}

// Mesh is an indexed triangle mesh with optional per-vertex velocity
// (for rigid/animated solids, consumed by levelset.MeshLevelSet).
type Mesh struct {
	Verts    []vmath.Vec3
	Tris     []Triangle
	Velocity []vmath.Vec3 // optional, len(Verts) or 0
}

// NewMesh builds a mesh from raw vertex and triangle slices.
func NewMesh(verts []vmath.Vec3, tris []Triangle) *Mesh {
	return &Mesh{Verts: verts, Tris: tris}
}

// AABB returns the tight axis-aligned bounding box of every vertex.
func (m *Mesh) AABB() vmath.AABB {
	box := vmath.EmptyAABB()
	for _, v := range m.Verts {
		box.Expand(v)
	}
	return box
}

// Normal returns the unit face normal of triangle index t.
func (m *Mesh) Normal(t int) vmath.Vec3 {
	tri := m.Tris[t]
	a, b, c := m.Verts[tri.A], m.Verts[tri.B], m.Verts[tri.C]
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	return e1.Cross(e2).Normalize()
}

// Normals returns the unit face normal of every triangle.
func (m *Mesh) Normals() []vmath.Vec3 {
	out := make([]vmath.Vec3, len(m.Tris))
	for i := range m.Tris {
		out[i] = m.Normal(i)
	}
	return out
}

// IsDegenerate reports whether triangle t has (near) zero area.
func (m *Mesh) IsDegenerate(t int) bool {
	tri := m.Tris[t]
	a, b, c := m.Verts[tri.A], m.Verts[tri.B], m.Verts[tri.C]
	area2 := b.Sub(a).Cross(c.Sub(a)).LengthSq()
	return area2 < 1e-20
}

// Transform applies f to every vertex in place (used to apply a
// per-frame animated-obstacle displacement).
func (m *Mesh) Transform(f func(vmath.Vec3) vmath.Vec3) {
	for i, v := range m.Verts {
		m.Verts[i] = f(v)
	}
}
