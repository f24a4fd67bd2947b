// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package spatial implements a cell-bucketed hash of points for radius
// queries and connected-component grouping, grounded on
// original_source/src/engine/spatialpointgrid.cpp/.h. It carries no
// physics; see DESIGN.md for why this is standard-library rather than
// gosl/gm-backed.
package spatial

import "github.com/cpmech/goflip/vmath"

// PointGrid buckets points into cubic cells of side cellSize for fast
// radius queries.
type PointGrid struct {
	cellSize float64
	buckets  map[[3]int][]int
	points   []vmath.Vec3
}

// NewPointGrid returns an empty grid with the given bucket cell size.
// cellSize should be on the order of the largest query radius to keep
// per-bucket occupancy low.
func NewPointGrid(cellSize float64) *PointGrid {
	return &PointGrid{cellSize: cellSize, buckets: make(map[[3]int][]int)}
}

func (g *PointGrid) cellOf(p vmath.Vec3) [3]int {
	return [3]int{floorDiv(p.X, g.cellSize), floorDiv(p.Y, g.cellSize), floorDiv(p.Z, g.cellSize)}
}

func floorDiv(v, cell float64) int {
	q := v / cell
	i := int(q)
	if q < 0 && float64(i) != q {
		i--
	}
	return i
}

// Insert adds a point and returns its index, used as the point's id in
// query results.
func (g *PointGrid) Insert(p vmath.Vec3) int {
	id := len(g.points)
	g.points = append(g.points, p)
	c := g.cellOf(p)
	g.buckets[c] = append(g.buckets[c], id)
	return id
}

// Len returns the number of inserted points.
func (g *PointGrid) Len() int { return len(g.points) }

// Point returns the point at index id.
func (g *PointGrid) Point(id int) vmath.Vec3 { return g.points[id] }

// QueryRadius calls visit(id) for every inserted point within radius r
// of center. Points are deduplicated even though the search scans every
// bucket overlapping the query's bounding cube.
func (g *PointGrid) QueryRadius(center vmath.Vec3, r float64, visit func(id int)) {
	cmin := g.cellOf(center.Sub(vmath.Vec3{X: r, Y: r, Z: r}))
	cmax := g.cellOf(center.Add(vmath.Vec3{X: r, Y: r, Z: r}))
	r2 := r * r
	for ci := cmin[0]; ci <= cmax[0]; ci++ {
		for cj := cmin[1]; cj <= cmax[1]; cj++ {
			for ck := cmin[2]; ck <= cmax[2]; ck++ {
				for _, id := range g.buckets[[3]int{ci, cj, ck}] {
					if g.points[id].Sub(center).LengthSq() <= r2 {
						visit(id)
					}
				}
			}
		}
	}
}

// ConnectedComponents groups every inserted point into components where
// two points are linked if they lie within linkRadius of each other,
// for diffuse-particle clustering in the out-of-scope secondary-particle model this package's caller
// may plug in.
func (g *PointGrid) ConnectedComponents(linkRadius float64) [][]int {
	n := len(g.points)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}
	for id, p := range g.points {
		g.QueryRadius(p, linkRadius, func(other int) {
			if other != id {
				union(id, other)
			}
		})
	}
	groups := make(map[int][]int)
	for id := range g.points {
		r := find(id)
		groups[r] = append(groups[r], id)
	}
	out := make([][]int, 0, len(groups))
	for _, g := range groups {
		out = append(out, g)
	}
	return out
}
