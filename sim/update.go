// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"sync"
	"time"

	"github.com/cpmech/goflip/grid3d"
	"github.com/cpmech/goflip/levelset"
	"github.com/cpmech/goflip/surface"
	"github.com/cpmech/goflip/vmath"
	"github.com/cpmech/gosl/io"
)

// Update advances the simulation by exactly frameDt seconds and is the
// public scheduler entry of spec.md §4.14. It returns only after the
// frame is fully consumed, or after surface meshing has launched its
// background thread when AsyncMeshing is enabled (surface data then
// becomes observable later via SurfaceMesh once the mesher finishes).
//
// Per spec.md §7, the caller is expected to stop on SolverDivergence;
// the marker particle population is restored to its pre-frame snapshot
// so a caller that inspects it before discarding the simulation does
// not see a partially-advected population.
func (d *DomainState) Update(frameDt float64) error {
	d.mustBeInitialized()
	d.finished = false

	timings := make(map[string]time.Duration)
	t0 := time.Now()

	snapshot := append(d.state.Particles[:0:0], d.state.Particles...)
	snapshotTime := d.state.Time
	err := d.scheduler.StepFrame(frameDt)
	timings["substep_loop"] = time.Since(t0)
	if err != nil {
		d.state.Particles = snapshot
		d.state.Time = snapshotTime
		return fromSchedError(err)
	}

	d.frame++

	// The combined liquid/solid field must be snapshotted synchronously,
	// on the calling goroutine, before any backgrounding: it reads
	// st.Liquid/st.Solid, which the *next* call's StepFrame starts
	// mutating in place the moment Update returns. Only the expensive
	// polygonize/smooth/filter stages below are safe to background,
	// since they operate solely on the snapshot (spec.md §5's "the next
	// step_frame must not read [the surface buffer], and must only
	// start a new mesher after the previous one has finished").
	combined := d.snapshotCombinedField()

	if d.cfg.AsyncMeshing {
		d.joinMesher()
		wg := &sync.WaitGroup{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.polygonizeAndStore(combined)
		}()
		d.mesherWG = wg
	} else {
		tMesh := time.Now()
		d.polygonizeAndStore(combined)
		timings["mesh"] = time.Since(tMesh)
	}

	d.lastStats = FrameStats{
		Frame:         d.frame,
		Substeps:      d.scheduler.LastSubstepCount,
		PhaseTimings:  timings,
		ParticleCount: len(d.state.Particles),
		SurfaceBytes:  len(d.SurfaceMesh()),
		PreviewBytes:  len(d.PreviewMesh()),
	}
	d.finished = true
	if d.cfg.Verbose {
		io.Pf("goflip: frame %d complete, %d particles\n", d.frame, len(d.state.Particles))
	}
	return nil
}

// joinMesher waits for any in-flight background mesher before a new
// frame's reconstruction may launch, the "join-before-launch" rule of
// spec.md §5/§4.12.
func (d *DomainState) joinMesher() {
	if d.mesherWG != nil {
		d.mesherWG.Wait()
		d.mesherWG = nil
	}
}

// snapshotCombinedField unions the inverted solid level set with the
// liquid level set into a fresh cell-centered grid, per spec.md §4.12's
// end-of-frame contract. Must run on the calling goroutine (see Update).
func (d *DomainState) snapshotCombinedField() *grid3d.Dense[float32] {
	st := d.state
	combined := grid3d.NewDense[float32](st.Isize, st.Jsize, st.Ksize)
	for k := 0; k < st.Ksize; k++ {
		for j := 0; j < st.Jsize; j++ {
			for i := 0; i < st.Isize; i++ {
				liquidPhi := st.Liquid.Phi.Get(i, j, k)
				solidPhi := invertedSolidCellPhi(st.Solid, i, j, k)
				v := liquidPhi
				if solidPhi < v {
					v = solidPhi
				}
				combined.Set(i, j, k, v)
			}
		}
	}
	return combined
}

// polygonizeAndStore runs the expensive polygonize/smooth/filter chain
// over an already-snapshotted combined field and publishes the result,
// safe to run concurrently with the next frame's substeps.
func (d *DomainState) polygonizeAndStore(combined *grid3d.Dense[float32]) {
	dx := d.state.Dx
	mesh := surface.Polygonize(combined, dx, d.cfg.SurfaceSubdivision)
	// Polygonize places index i at i*dx; combined is cell-centered, so
	// the mesh is shifted by half a cell.
	half := vmath.Vec3{X: 0.5 * dx, Y: 0.5 * dx, Z: 0.5 * dx}
	mesh.Transform(func(p vmath.Vec3) vmath.Vec3 { return p.Add(half) })
	surface.Smooth(mesh, d.cfg.SurfaceSmoothingIters, d.cfg.SurfaceSmoothingValue)
	mesh = surface.FilterSmallComponents(mesh, d.cfg.MinPolyhedronTriangles)

	d.surfaceMu.Lock()
	d.surfaceMesh = mesh
	if d.cfg.EnablePreviewMesh {
		d.previewMesh = mesh
	}
	d.surfaceMu.Unlock()
}

// invertedSolidCellPhi returns the negated solid signed distance at
// the cell center (i,j,k), trilinearly sampled from the node-centered
// solid level set, matching "union the inverted solid level set with
// the liquid level set" (spec.md §4.12).
func invertedSolidCellPhi(solid *levelset.MeshLevelSet, i, j, k int) float32 {
	dx := solid.Dx
	p := vmath.Vec3{X: (float64(i) + 0.5) * dx, Y: (float64(j) + 0.5) * dx, Z: (float64(k) + 0.5) * dx}
	return float32(-solid.TrilinearInterpolate(p))
}
