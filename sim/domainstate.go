// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"sync"
	"time"

	"github.com/cpmech/goflip/sched"
	"github.com/cpmech/goflip/trimesh"
	"github.com/cpmech/goflip/vmath"
	"github.com/cpmech/goflip/worker"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/rnd"
)

// ObstacleHandle and SourceHandle are opaque indices into DomainState's
// obstacle/source tables, replacing any back-reference from a level
// set to the mesh object that generated it (spec.md §9's "cyclic or
// back references" design note).
type ObstacleHandle int
type SourceHandle int

// DiffuseParticle is the data-shape-only external contract for
// secondary (foam/bubble/spray) particles (spec.md §6); the behavior
// model that would populate these is out of scope per spec.md §1.
type DiffuseParticle struct {
	Position vmath.Vec3
	Velocity vmath.Vec3
	Lifetime float64
	Type     int
	ID       uint64
}

// FrameStats is the structured per-frame record named in spec.md §6.
type FrameStats struct {
	Frame          uint64
	Substeps       int
	PhaseTimings   map[string]time.Duration
	SurfaceBytes   int
	PreviewBytes   int
	ParticleCount  int
	LastBackendErr error
}

// DomainState owns every grid, particle array, and obstacle/source
// handle table for the lifetime of a simulation (spec.md §3/§4.14),
// the role gofem's fem.Domain/fem.Main pair plays combined.
type DomainState struct {
	cfg Config

	state     *sched.State
	scheduler *sched.Scheduler
	pool      *worker.Pool

	obstacles []*sched.Obstacle
	sources   []*sched.Source

	diffuse []DiffuseParticle

	frame       uint64
	initialized bool
	finished    bool

	surfaceMu   sync.Mutex
	surfaceMesh *trimesh.Mesh
	previewMesh *trimesh.Mesh
	mesherWG    *sync.WaitGroup
	lastStats   FrameStats
}

// NewDomainState zero-initializes a simulation over cfg's grid
// dimensions, matching spec.md §4.14's "DomainState::new zero-
// initializes everything." Call Initialize before the first Update.
func NewDomainState(cfg Config) *DomainState {
	return &DomainState{
		cfg:   cfg,
		state: sched.NewState(cfg.Isize, cfg.Jsize, cfg.Ksize, cfg.Dx),
	}
}

// Initialize validates cfg and finalizes internal grids, per
// spec.md §4.14. It must be called exactly once before the first
// Update.
func (d *DomainState) Initialize() error {
	if err := d.cfg.validate(); err != nil {
		return err
	}
	d.pool = worker.NewPool(d.cfg.WorkerPoolSize)
	schedCfg := sched.Config{
		Density:                d.cfg.Density,
		CFLNumber:              d.cfg.CFLNumber,
		MinSubsteps:            d.cfg.MinSubstepsPerFrame,
		MaxSubsteps:            d.cfg.MaxSubstepsPerFrame,
		PicFlipRatio:           d.cfg.PicFlipRatio,
		BoundaryFriction:       d.cfg.BoundaryFriction,
		SolidBufferWidth:       d.cfg.SolidBufferWidth,
		ParticleRadius:         d.cfg.Dx,
		ExtremeVelocityEnabled: d.cfg.ExtremeVelocityRemoval.Enabled,
		ExtremeVelocityMaxPct:  d.cfg.ExtremeVelocityRemoval.MaxPct,
		ExtremeVelocityMaxAbs:  d.cfg.ExtremeVelocityRemoval.MaxAbs,

		ComputeCurvature:             d.cfg.ComputeCurvature,
		CurvatureSmoothingIterations: d.cfg.CurvatureSmoothingIterations,
		CurvatureSmoothingValue:      d.cfg.CurvatureSmoothingValue,
		CurvatureExtrapolationLayers: d.cfg.CurvatureExtrapolationLayers,

		AdaptiveObstacleTimeStepping: d.cfg.AdaptiveObstacleTimeStepping,
		MeshUnionParallelThreshold:   d.cfg.MeshUnionParallelThreshold,
		BoundaryEpsilon:              d.cfg.BoundaryEpsilon,
	}
	d.scheduler = sched.NewScheduler(d.state, schedCfg, d.pool)
	d.scheduler.Verbose = d.cfg.Verbose
	if d.cfg.Verbose {
		io.Pf("goflip: initialized %dx%dx%d grid, dx=%v, workers=%d\n", d.cfg.Isize, d.cfg.Jsize, d.cfg.Ksize, d.cfg.Dx, d.pool.Size())
	}
	d.initialized = true
	return nil
}

func (d *DomainState) mustBeInitialized() {
	if !d.initialized {
		chk.Panic("goflip: DomainState.Initialize must be called before use")
	}
}

// AddMeshObstacle registers a (possibly animated) solid mesh that
// contributes to the solid level set every substep (spec.md §4.14).
func (d *DomainState) AddMeshObstacle(mesh *trimesh.Mesh, displace func(rest vmath.Vec3, time float64) vmath.Vec3, velocity func(rest vmath.Vec3, time float64) vmath.Vec3) ObstacleHandle {
	o := &sched.Obstacle{RestMesh: mesh, Displace: displace, Velocity: velocity}
	d.obstacles = append(d.obstacles, o)
	d.state.Obstacles = d.obstacles
	return ObstacleHandle(len(d.obstacles) - 1)
}

// AddMeshFluidSource registers an inflow or outflow mesh region
// (spec.md §4.12 step 14).
func (d *DomainState) AddMeshFluidSource(mesh *trimesh.Mesh, inflow bool, velocity vmath.Vec3, ratePerCellPerSecond float64) SourceHandle {
	kind := sched.Outflow
	if inflow {
		kind = sched.Inflow
	}
	src := &sched.Source{Mesh: mesh, Kind: kind, Velocity: velocity, Rate: ratePerCellPerSecond}
	d.sources = append(d.sources, src)
	d.state.Sources = d.sources
	return SourceHandle(len(d.sources) - 1)
}

// RemoveSource drops a previously-added source so it no longer emits
// or removes particles.
func (d *DomainState) RemoveSource(h SourceHandle) {
	idx := int(h)
	if idx < 0 || idx >= len(d.sources) {
		return
	}
	d.sources = append(d.sources[:idx], d.sources[idx+1:]...)
	d.state.Sources = d.sources
}

// AddMeshFluid seeds marker particles filling mesh's interior at
// Config.MarkerParticleScale particles per cell side, jittered by
// Config.JitterFactor, each given the same initial velocity. It
// implements spec.md §4.14's add_mesh_fluid.
func (d *DomainState) AddMeshFluid(mesh *trimesh.Mesh, velocity vmath.Vec3) error {
	d.mustBeInitialized()
	box := mesh.AABB()
	dx := d.state.Dx
	iLo, jLo, kLo := cellIndexFloor(box.Min, dx)
	iHi, jHi, kHi := cellIndexCeil(box.Max, dx)
	iLo, jLo, kLo = clampIdx(iLo, 0, d.state.Isize), clampIdx(jLo, 0, d.state.Jsize), clampIdx(kLo, 0, d.state.Ksize)
	iHi, jHi, kHi = clampIdx(iHi, 0, d.state.Isize), clampIdx(jHi, 0, d.state.Jsize), clampIdx(kHi, 0, d.state.Ksize)

	var indices []vmath.GridIndex
	for k := kLo; k < kHi; k++ {
		for j := jLo; j < jHi; j++ {
			for i := iLo; i < iHi; i++ {
				indices = append(indices, vmath.GridIndex{I: i, J: j, K: k})
			}
		}
	}
	q := trimesh.NewClosestPointQuery(mesh)
	return d.seedCells(indices, velocity, func(p vmath.Vec3) bool { return q.InsideByParity(p) })
}

// AddFluidCells seeds marker particles filling every listed cell
// unconditionally (spec.md §4.14's add_fluid_cells).
func (d *DomainState) AddFluidCells(indices []vmath.GridIndex, velocity vmath.Vec3) error {
	d.mustBeInitialized()
	return d.seedCells(indices, velocity, nil)
}

// RemoveFluidCells deletes every marker particle whose containing cell
// is in indices (spec.md §4.14's remove_fluid_cells).
func (d *DomainState) RemoveFluidCells(indices []vmath.GridIndex) {
	remove := make(map[vmath.GridIndex]bool, len(indices))
	for _, idx := range indices {
		remove[idx] = true
	}
	dx := d.state.Dx
	kept := d.state.Particles[:0]
	for _, p := range d.state.Particles {
		i, j, k := cellIndexFloor(p.Position, dx)
		if !remove[(vmath.GridIndex{I: i, J: j, K: k})] {
			kept = append(kept, p)
		}
	}
	d.state.Particles = kept
}

// seedCells places MarkerParticleScale^3 jittered particles per listed
// cell, skipping a particle when accept is non-nil and returns false.
func (d *DomainState) seedCells(indices []vmath.GridIndex, velocity vmath.Vec3, accept func(vmath.Vec3) bool) error {
	scale := d.cfg.MarkerParticleScale
	if scale < 1 {
		scale = 1
	}
	n := int(scale)
	dx := d.state.Dx
	sub := dx / float64(n)
	jitter := d.cfg.JitterFactor * sub * 0.5

	for _, idx := range indices {
		if idx.I < 0 || idx.J < 0 || idx.K < 0 || idx.I >= d.state.Isize || idx.J >= d.state.Jsize || idx.K >= d.state.Ksize {
			continue
		}
		origin := vmath.Vec3{X: float64(idx.I) * dx, Y: float64(idx.J) * dx, Z: float64(idx.K) * dx}
		for a := 0; a < n; a++ {
			for b := 0; b < n; b++ {
				for c := 0; c < n; c++ {
					p := vmath.Vec3{
						X: origin.X + (float64(a)+0.5)*sub,
						Y: origin.Y + (float64(b)+0.5)*sub,
						Z: origin.Z + (float64(c)+0.5)*sub,
					}
					if jitter > 0 {
						p.X += rnd.Float64(-jitter, jitter)
						p.Y += rnd.Float64(-jitter, jitter)
						p.Z += rnd.Float64(-jitter, jitter)
					}
					if accept != nil && !accept(p) {
						continue
					}
					d.state.Particles = append(d.state.Particles, sched.MarkerParticle{Position: p, Velocity: velocity})
				}
			}
		}
	}
	return nil
}

// AddBodyForce registers a constant-plus-time-varying force summed
// into face velocities every substep (spec.md §4.12 step 7).
func (d *DomainState) AddBodyForce(constant vmath.Vec3, timeVarying func(time float64) vmath.Vec3) {
	d.state.BodyForces = append(d.state.BodyForces, sched.BodyForce{Constant: constant, TimeVarying: timeVarying})
}

// SetViscosity sets a uniform viscosity coefficient over the whole
// domain (spec.md §4.14's set_viscosity).
func (d *DomainState) SetViscosity(value float64) {
	d.state.Viscosity.Fill(value)
}

// SetViscosityField sets a per-cell viscosity coefficient, overriding
// any prior uniform value.
func (d *DomainState) SetViscosityField(isize, jsize, ksize int, values []float64) error {
	if isize != d.state.Isize || jsize != d.state.Jsize || ksize != d.state.Ksize {
		return chk.Err("goflip: viscosity field dims %dx%dx%d do not match grid %dx%dx%d", isize, jsize, ksize, d.state.Isize, d.state.Jsize, d.state.Ksize)
	}
	if len(values) != isize*jsize*ksize {
		return chk.Err("goflip: viscosity field length %d does not match %dx%dx%d", len(values), isize, jsize, ksize)
	}
	for k := 0; k < ksize; k++ {
		for j := 0; j < jsize; j++ {
			for i := 0; i < isize; i++ {
				d.state.Viscosity.Set(i, j, k, values[i+isize*(j+jsize*k)])
			}
		}
	}
	return nil
}

// LoadMarkerParticles restores a previously-saved marker particle
// population (spec.md §6's "Persisted state"), callable only before
// the first Update.
func (d *DomainState) LoadMarkerParticles(particles []sched.MarkerParticle) error {
	if d.frame != 0 {
		return chk.Err("goflip: LoadMarkerParticles must be called before the first Update")
	}
	d.state.Particles = append([]sched.MarkerParticle(nil), particles...)
	return nil
}

// LoadDiffuseParticles restores a previously-saved diffuse particle
// population, callable only before the first Update.
func (d *DomainState) LoadDiffuseParticles(particles []DiffuseParticle) error {
	if d.frame != 0 {
		return chk.Err("goflip: LoadDiffuseParticles must be called before the first Update")
	}
	d.diffuse = append([]DiffuseParticle(nil), particles...)
	return nil
}

// CurrentFrame returns the number of frames fully consumed so far.
func (d *DomainState) CurrentFrame() uint64 { return d.frame }

// IsFrameFinished reports whether the most recent Update has fully
// completed, including any async mesher launch.
func (d *DomainState) IsFrameFinished() bool { return d.finished }

// MarkerParticlePositions returns every current marker particle
// position as a flat little-endian f32 triplet array (spec.md §6).
func (d *DomainState) MarkerParticlePositions() []byte {
	return encodeVec3s(d.state.Particles, func(p sched.MarkerParticle) vmath.Vec3 { return p.Position })
}

// MarkerParticleVelocities returns every current marker particle
// velocity as a flat little-endian f32 triplet array (spec.md §6).
func (d *DomainState) MarkerParticleVelocities() []byte {
	return encodeVec3s(d.state.Particles, func(p sched.MarkerParticle) vmath.Vec3 { return p.Velocity })
}

// DiffuseParticles returns the current diffuse particle population.
// Per SPEC_FULL.md §5 this is always a valid, zero-length slice rather
// than nil when no secondary simulation has populated it, so callers
// never special-case "diffuse disabled".
func (d *DomainState) DiffuseParticles() []DiffuseParticle {
	if d.diffuse == nil {
		return []DiffuseParticle{}
	}
	return d.diffuse
}

// FrameStatsRecord returns the structured stats record for the most
// recently completed frame (spec.md §6).
func (d *DomainState) FrameStatsRecord() FrameStats {
	return d.lastStats
}
