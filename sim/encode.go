// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/cpmech/goflip/trimesh"
	"github.com/cpmech/goflip/vmath"
)

// encodeVec3s flattens a slice of T into a little-endian f32 triplet
// array via a field-selecting accessor, per spec.md §6.
func encodeVec3s[T any](items []T, get func(T) vmath.Vec3) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(len(items) * 12)
	for _, it := range items {
		v := get(it)
		binary.Write(buf, binary.LittleEndian, float32(v.X))
		binary.Write(buf, binary.LittleEndian, float32(v.Y))
		binary.Write(buf, binary.LittleEndian, float32(v.Z))
	}
	return buf.Bytes()
}

// DiffuseParticlePositions returns every diffuse particle position as
// a flat little-endian f32 triplet array (spec.md §6); always a valid
// zero-length array rather than nil when the population is empty.
func (d *DomainState) DiffuseParticlePositions() []byte {
	if out := encodeVec3s(d.DiffuseParticles(), func(p DiffuseParticle) vmath.Vec3 { return p.Position }); out != nil {
		return out
	}
	return []byte{}
}

// DiffuseParticleVelocities returns every diffuse particle velocity as
// a flat little-endian f32 triplet array.
func (d *DomainState) DiffuseParticleVelocities() []byte {
	return encodeVec3s(d.DiffuseParticles(), func(p DiffuseParticle) vmath.Vec3 { return p.Velocity })
}

// DiffuseParticleLifetimes returns every diffuse particle's remaining
// lifetime as a flat little-endian f32 array.
func (d *DomainState) DiffuseParticleLifetimes() []byte {
	buf := new(bytes.Buffer)
	for _, p := range d.DiffuseParticles() {
		binary.Write(buf, binary.LittleEndian, float32(p.Lifetime))
	}
	return buf.Bytes()
}

// DiffuseParticleTypesAndIDs returns every diffuse particle's type tag
// (i32) and id (u64), interleaved, little-endian.
func (d *DomainState) DiffuseParticleTypesAndIDs() []byte {
	buf := new(bytes.Buffer)
	for _, p := range d.DiffuseParticles() {
		binary.Write(buf, binary.LittleEndian, int32(p.Type))
		binary.Write(buf, binary.LittleEndian, p.ID)
	}
	return buf.Bytes()
}

// encodeMesh serializes mesh in format's container format, returning nil
// for a nil mesh.
func encodeMesh(mesh *trimesh.Mesh, format MeshFormat) []byte {
	if mesh == nil {
		return nil
	}
	if format == FormatPLY {
		return mesh.EncodePLY()
	}
	return mesh.EncodeBinary()
}

// SurfaceMesh returns the most recently reconstructed liquid surface,
// in the container format set by Config.SurfaceMeshFormat. Readable
// after Update returns, or after the async mesher completes when
// AsyncMeshing is enabled (spec.md §4.14/§6).
func (d *DomainState) SurfaceMesh() []byte {
	d.surfaceMu.Lock()
	defer d.surfaceMu.Unlock()
	return encodeMesh(d.surfaceMesh, d.cfg.SurfaceMeshFormat)
}

// PreviewMesh returns the preview mesh when Config.EnablePreviewMesh is
// set, else nil (spec.md §6). The preview is the same reconstructed
// surface mesh as SurfaceMesh, encoded in Config.PreviewMeshFormat; no
// separate lower-resolution mesh is built.
func (d *DomainState) PreviewMesh() []byte {
	if !d.cfg.EnablePreviewMesh {
		return nil
	}
	d.surfaceMu.Lock()
	defer d.surfaceMu.Unlock()
	return encodeMesh(d.previewMesh, d.cfg.PreviewMeshFormat)
}

// ObstacleMeshSnapshot returns the union of every obstacle mesh at the
// current simulation time when Config.EnableObstacleSnapshot is set,
// else nil (spec.md §6).
func (d *DomainState) ObstacleMeshSnapshot() []byte {
	if !d.cfg.EnableObstacleSnapshot {
		return nil
	}
	var verts []vmath.Vec3
	var tris []trimesh.Triangle
	for _, o := range d.obstacles {
		m := o.WorldMesh(d.state.Time)
		base := len(verts)
		verts = append(verts, m.Verts...)
		for _, t := range m.Tris {
			tris = append(tris, trimesh.Triangle{A: t.A + base, B: t.B + base, C: t.C + base})
		}
	}
	mesh := trimesh.NewMesh(verts, tris)
	return encodeMesh(mesh, d.cfg.SurfaceMeshFormat)
}

func cellIndexFloor(p vmath.Vec3, dx float64) (int, int, int) {
	return int(math.Floor(p.X / dx)), int(math.Floor(p.Y / dx)), int(math.Floor(p.Z / dx))
}

func cellIndexCeil(p vmath.Vec3, dx float64) (int, int, int) {
	return int(math.Ceil(p.X / dx)), int(math.Ceil(p.Y / dx)), int(math.Ceil(p.Z / dx))
}

func clampIdx(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
