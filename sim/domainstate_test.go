// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"testing"

	"github.com/cpmech/goflip/trimesh"
	"github.com/cpmech/goflip/vmath"
)

func cubeMesh(lo, hi vmath.Vec3) *trimesh.Mesh {
	verts := []vmath.Vec3{
		{X: lo.X, Y: lo.Y, Z: lo.Z}, {X: hi.X, Y: lo.Y, Z: lo.Z},
		{X: hi.X, Y: hi.Y, Z: lo.Z}, {X: lo.X, Y: hi.Y, Z: lo.Z},
		{X: lo.X, Y: lo.Y, Z: hi.Z}, {X: hi.X, Y: lo.Y, Z: hi.Z},
		{X: hi.X, Y: hi.Y, Z: hi.Z}, {X: lo.X, Y: hi.Y, Z: hi.Z},
	}
	tris := []trimesh.Triangle{
		{A: 0, B: 2, C: 1}, {A: 0, B: 3, C: 2},
		{A: 4, B: 5, C: 6}, {A: 4, B: 6, C: 7},
		{A: 0, B: 1, C: 5}, {A: 0, B: 5, C: 4},
		{A: 3, B: 7, C: 6}, {A: 3, B: 6, C: 2},
		{A: 0, B: 4, C: 7}, {A: 0, B: 7, C: 3},
		{A: 1, B: 2, C: 6}, {A: 1, B: 6, C: 5},
	}
	return trimesh.NewMesh(verts, tris)
}

func TestInitializeRejectsBadConfig(t *testing.T) {
	cfg := NewConfig(0, 8, 8, 0.1)
	dom := NewDomainState(cfg)
	err := dom.Initialize()
	if err == nil {
		t.Fatalf("expected ConfigError for zero isize")
	}
	if _, ok := err.(*ConfigError); !ok {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
}

func TestAddMeshFluidSeedsParticlesInsideMesh(t *testing.T) {
	cfg := NewConfig(8, 8, 8, 0.1)
	cfg.MarkerParticleScale = 2
	cfg.JitterFactor = 0
	dom := NewDomainState(cfg)
	if err := dom.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	mesh := cubeMesh(vmath.Vec3{X: 0.2, Y: 0.2, Z: 0.2}, vmath.Vec3{X: 0.4, Y: 0.4, Z: 0.4})
	if err := dom.AddMeshFluid(mesh, vmath.Vec3{}); err != nil {
		t.Fatalf("AddMeshFluid: %v", err)
	}
	if len(dom.state.Particles) == 0 {
		t.Fatalf("expected particles seeded inside the cube")
	}
	box := mesh.AABB()
	for _, p := range dom.state.Particles {
		if !box.Pad(1e-9).Contains(p.Position) {
			t.Fatalf("particle %v seeded outside source mesh AABB %v", p.Position, box)
		}
	}
}

func TestUpdateContainmentAndRestingBlock(t *testing.T) {
	cfg := NewConfig(16, 16, 16, 0.125)
	cfg.MarkerParticleScale = 2
	cfg.JitterFactor = 0
	cfg.ExtremeVelocityRemoval.Enabled = false
	dom := NewDomainState(cfg)
	if err := dom.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	mesh := cubeMesh(vmath.Vec3{X: 0.5, Y: 0.5, Z: 0.5}, vmath.Vec3{X: 1.0, Y: 1.0, Z: 1.0})
	if err := dom.AddMeshFluid(mesh, vmath.Vec3{}); err != nil {
		t.Fatalf("AddMeshFluid: %v", err)
	}

	bounds := cfg.domainBounds().Shrink(cfg.BoundaryEpsilon * cfg.Dx)
	for frame := 0; frame < 3; frame++ {
		if err := dom.Update(1.0 / 30.0); err != nil {
			t.Fatalf("Update frame %d: %v", frame, err)
		}
		for _, p := range dom.state.Particles {
			if !bounds.Contains(p.Position) {
				t.Fatalf("frame %d: particle %v escaped domain bounds %v", frame, p.Position, bounds)
			}
		}
	}
	if dom.CurrentFrame() != 3 {
		t.Fatalf("CurrentFrame() = %d, want 3", dom.CurrentFrame())
	}
	if !dom.IsFrameFinished() {
		t.Fatalf("IsFrameFinished() = false after a successful Update")
	}
}

func TestDiffuseParticlesNeverNil(t *testing.T) {
	cfg := NewConfig(4, 4, 4, 0.1)
	dom := NewDomainState(cfg)
	if err := dom.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if dom.DiffuseParticles() == nil {
		t.Fatalf("DiffuseParticles() must never be nil")
	}
	if len(dom.DiffuseParticlePositions()) != 0 {
		t.Fatalf("expected zero-length diffuse position buffer")
	}
}

func TestLoadMarkerParticlesOnlyBeforeFirstUpdate(t *testing.T) {
	cfg := NewConfig(4, 4, 4, 0.1)
	dom := NewDomainState(cfg)
	if err := dom.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := dom.Update(1.0 / 30.0); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := dom.LoadMarkerParticles(nil); err == nil {
		t.Fatalf("expected LoadMarkerParticles to fail after the first Update")
	}
}

func TestMarkerParticlePositionsRoundTripByteLength(t *testing.T) {
	cfg := NewConfig(8, 8, 8, 0.1)
	cfg.MarkerParticleScale = 2
	dom := NewDomainState(cfg)
	if err := dom.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	mesh := cubeMesh(vmath.Vec3{X: 0.2, Y: 0.2, Z: 0.2}, vmath.Vec3{X: 0.4, Y: 0.4, Z: 0.4})
	if err := dom.AddMeshFluid(mesh, vmath.Vec3{X: 1}); err != nil {
		t.Fatalf("AddMeshFluid: %v", err)
	}
	buf := dom.MarkerParticlePositions()
	if len(buf) != len(dom.state.Particles)*12 {
		t.Fatalf("position buffer length = %d, want %d", len(buf), len(dom.state.Particles)*12)
	}
	velBuf := dom.MarkerParticleVelocities()
	if len(velBuf) != len(buf) {
		t.Fatalf("velocity buffer length = %d, want %d", len(velBuf), len(buf))
	}
}

func TestSurfaceMeshAvailableAfterUpdate(t *testing.T) {
	cfg := NewConfig(8, 8, 8, 0.125)
	cfg.MarkerParticleScale = 2
	dom := NewDomainState(cfg)
	if err := dom.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	mesh := cubeMesh(vmath.Vec3{X: 0.25, Y: 0.25, Z: 0.25}, vmath.Vec3{X: 0.75, Y: 0.75, Z: 0.75})
	if err := dom.AddMeshFluid(mesh, vmath.Vec3{}); err != nil {
		t.Fatalf("AddMeshFluid: %v", err)
	}
	if err := dom.Update(1.0 / 30.0); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(dom.SurfaceMesh()) == 0 {
		t.Fatalf("expected non-empty surface mesh after Update")
	}
}

func TestRemoveFluidCellsDeletesParticles(t *testing.T) {
	cfg := NewConfig(8, 8, 8, 0.1)
	cfg.MarkerParticleScale = 2
	cfg.JitterFactor = 0
	dom := NewDomainState(cfg)
	if err := dom.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := dom.AddFluidCells([]vmath.GridIndex{{I: 2, J: 2, K: 2}}, vmath.Vec3{}); err != nil {
		t.Fatalf("AddFluidCells: %v", err)
	}
	if len(dom.state.Particles) == 0 {
		t.Fatalf("expected seeded particles")
	}
	dom.RemoveFluidCells([]vmath.GridIndex{{I: 2, J: 2, K: 2}})
	if len(dom.state.Particles) != 0 {
		t.Fatalf("expected all particles in cell (2,2,2) removed, got %d left", len(dom.state.Particles))
	}
}
