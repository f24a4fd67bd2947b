// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trimesh

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cpmech/goflip/vmath"
	"github.com/cpmech/gosl/chk"
)

// EncodeBinary serializes m into the compact little-endian binary
// format named in spec.md §6:
//
//	[u32 vertex_count][f32x3 * n][u32 triangle_count][i32x3 * m]
func (m *Mesh) EncodeBinary() []byte {
	buf := new(bytes.Buffer)
	buf.Grow(8 + len(m.Verts)*12 + len(m.Tris)*12)

	binary.Write(buf, binary.LittleEndian, uint32(len(m.Verts)))
	for _, v := range m.Verts {
		binary.Write(buf, binary.LittleEndian, float32(v.X))
		binary.Write(buf, binary.LittleEndian, float32(v.Y))
		binary.Write(buf, binary.LittleEndian, float32(v.Z))
	}
	binary.Write(buf, binary.LittleEndian, uint32(len(m.Tris)))
	for _, t := range m.Tris {
		binary.Write(buf, binary.LittleEndian, int32(t.A))
		binary.Write(buf, binary.LittleEndian, int32(t.B))
		binary.Write(buf, binary.LittleEndian, int32(t.C))
	}
	return buf.Bytes()
}

// DecodeBinary parses the format written by EncodeBinary.
func DecodeBinary(data []byte) (*Mesh, error) {
	r := bytes.NewReader(data)

	var nverts uint32
	if err := binary.Read(r, binary.LittleEndian, &nverts); err != nil {
		return nil, chk.Err("trimesh: reading vertex count: %v", err)
	}
	verts := make([]vmath.Vec3, nverts)
	for i := range verts {
		var x, y, z float32
		if err := binary.Read(r, binary.LittleEndian, &x); err != nil {
			return nil, chk.Err("trimesh: reading vertex %d.x: %v", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &y); err != nil {
			return nil, chk.Err("trimesh: reading vertex %d.y: %v", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &z); err != nil {
			return nil, chk.Err("trimesh: reading vertex %d.z: %v", i, err)
		}
		verts[i] = vmath.Vec3{X: float64(x), Y: float64(y), Z: float64(z)}
	}

	var ntris uint32
	if err := binary.Read(r, binary.LittleEndian, &ntris); err != nil {
		return nil, chk.Err("trimesh: reading triangle count: %v", err)
	}
	tris := make([]Triangle, ntris)
	for i := range tris {
		var a, b, c int32
		if err := binary.Read(r, binary.LittleEndian, &a); err != nil {
			return nil, chk.Err("trimesh: reading triangle %d.a: %v", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &b); err != nil {
			return nil, chk.Err("trimesh: reading triangle %d.b: %v", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &c); err != nil {
			return nil, chk.Err("trimesh: reading triangle %d.c: %v", i, err)
		}
		tris[i] = Triangle{A: int(a), B: int(b), C: int(c)}
	}

	return &Mesh{Verts: verts, Tris: tris}, nil
}

// EncodePLY serializes m as ASCII PLY, the second container format
// named in spec.md §6.
func (m *Mesh) EncodePLY() []byte {
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "ply\nformat ascii 1.0\n")
	fmt.Fprintf(buf, "element vertex %d\n", len(m.Verts))
	fmt.Fprint(buf, "property float x\nproperty float y\nproperty float z\n")
	fmt.Fprintf(buf, "element face %d\n", len(m.Tris))
	fmt.Fprint(buf, "property list uchar int vertex_indices\nend_header\n")
	for _, v := range m.Verts {
		fmt.Fprintf(buf, "%g %g %g\n", v.X, v.Y, v.Z)
	}
	for _, t := range m.Tris {
		fmt.Fprintf(buf, "3 %d %d %d\n", t.A, t.B, t.C)
	}
	return buf.Bytes()
}

// DecodePLY parses the ASCII PLY format written by EncodePLY.
func DecodePLY(data []byte) (*Mesh, error) {
	var nverts, ntris int
	lines := bytes.Split(data, []byte("\n"))
	idx := 0
	for ; idx < len(lines); idx++ {
		line := string(lines[idx])
		if strings.HasPrefix(line, "element vertex ") {
			fmt.Sscanf(line, "element vertex %d", &nverts)
		} else if strings.HasPrefix(line, "element face ") {
			fmt.Sscanf(line, "element face %d", &ntris)
		} else if line == "end_header" {
			idx++
			break
		}
	}
	verts := make([]vmath.Vec3, 0, nverts)
	for i := 0; i < nverts; i, idx = i+1, idx+1 {
		var x, y, z float64
		if _, err := fmt.Sscanf(string(lines[idx]), "%g %g %g", &x, &y, &z); err != nil {
			return nil, chk.Err("trimesh: reading PLY vertex %d: %v", i, err)
		}
		verts = append(verts, vmath.Vec3{X: x, Y: y, Z: z})
	}
	tris := make([]Triangle, 0, ntris)
	for i := 0; i < ntris; i, idx = i+1, idx+1 {
		var n, a, b, c int
		if _, err := fmt.Sscanf(string(lines[idx]), "%d %d %d %d", &n, &a, &b, &c); err != nil {
			return nil, chk.Err("trimesh: reading PLY face %d: %v", i, err)
		}
		tris = append(tris, Triangle{A: a, B: b, C: c})
	}
	return &Mesh{Verts: verts, Tris: tris}, nil
}
