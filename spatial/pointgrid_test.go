// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spatial

import (
	"testing"

	"github.com/cpmech/goflip/vmath"
)

func TestQueryRadius(t *testing.T) {
	g := NewPointGrid(1.0)
	g.Insert(vmath.Vec3{X: 0, Y: 0, Z: 0})
	g.Insert(vmath.Vec3{X: 0.1, Y: 0, Z: 0})
	g.Insert(vmath.Vec3{X: 5, Y: 5, Z: 5})

	var hits []int
	g.QueryRadius(vmath.Vec3{X: 0, Y: 0, Z: 0}, 0.5, func(id int) { hits = append(hits, id) })
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d: %v", len(hits), hits)
	}
}

func TestConnectedComponents(t *testing.T) {
	g := NewPointGrid(1.0)
	g.Insert(vmath.Vec3{X: 0, Y: 0, Z: 0})
	g.Insert(vmath.Vec3{X: 0.2, Y: 0, Z: 0})
	g.Insert(vmath.Vec3{X: 10, Y: 10, Z: 10})
	groups := g.ConnectedComponents(0.5)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
}
