// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sched

import (
	"math"
	"sort"
	"sync"

	"github.com/cpmech/goflip/advect"
	"github.com/cpmech/goflip/levelset"
	"github.com/cpmech/goflip/mac"
	"github.com/cpmech/goflip/solve"
	"github.com/cpmech/goflip/transfer"
	"github.com/cpmech/goflip/trimesh"
	"github.com/cpmech/goflip/vmath"
	"github.com/cpmech/goflip/worker"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// DivergenceError reports that a pressure or viscosity CG solve
// exceeded its iteration budget without reaching the acceptable
// tolerance, the sched-level carrier for spec.md §7's SolverDivergence.
// sim wraps this into sim.SolverDivergence at the DomainState.Update
// boundary.
type DivergenceError struct {
	Phase  string
	Result solve.Result
}

func (e *DivergenceError) Error() string {
	return chk.Err("%s solve diverged after %d iterations, residual=%v", e.Phase, e.Result.Iterations, e.Result.Residual).Error()
}

// Scheduler drives State through the substep loop of spec.md §4.12,
// the direct analog of fem.Solver.Run(tf, dtFunc, ...) with substeps
// in place of load/time stages.
type Scheduler struct {
	State *State
	Cfg   Config
	Pool  *worker.Pool
	Accel transfer.Accelerator

	Verbose bool

	pressure  *solve.PressureSolver
	viscosity *solve.ViscositySolver
	velAdv    *transfer.VelocityAdvector
	advector  *advect.ParticleAdvector

	curvatureWG *sync.WaitGroup

	// LastSubstepCount is the number of substeps the most recent
	// StepFrame call performed, surfaced through sim.FrameStats.
	LastSubstepCount int
}

// NewScheduler builds a Scheduler over state with the given substep
// configuration, using pool for every block-parallel kernel.
func NewScheduler(state *State, cfg Config, pool *worker.Pool) *Scheduler {
	accel := transfer.NewCPUAccelerator(pool)
	return &Scheduler{
		State:     state,
		Cfg:       cfg,
		Pool:      pool,
		Accel:     accel,
		pressure:  solve.NewPressureSolver(cfg.Density),
		viscosity: solve.NewViscositySolver(cfg.Density),
		velAdv:    transfer.NewVelocityAdvector(accel, cfg.ParticleRadius),
		advector:  advect.NewParticleAdvector(advect.RK3),
	}
}

// StepFrame advances State by exactly frameDt seconds over between
// Cfg.MinSubsteps and Cfg.MaxSubsteps CFL-adaptive substeps, per
// spec.md §4.12.
func (s *Scheduler) StepFrame(frameDt float64) error {
	remaining := frameDt
	substeps := 0
	const eps = 1e-12
	for remaining > eps && substeps < s.Cfg.MaxSubsteps {
		dt := s.adaptiveDt(frameDt, remaining, substeps)
		if err := s.substep(dt); err != nil {
			return err
		}
		remaining -= dt
		substeps++
	}
	s.LastSubstepCount = substeps
	return nil
}

// adaptiveDt implements spec.md §4.12's CFL-adaptive substep formula.
func (s *Scheduler) adaptiveDt(frameDt, remaining float64, substepsSoFar int) float64 {
	vmax := s.State.MaxParticleSpeed()
	if s.Cfg.AdaptiveObstacleTimeStepping {
		vmax += s.State.MaxObstacleSpeed(s.State.Time)
	}
	cflDt := s.Cfg.CFLNumber * s.State.Dx / math.Max(vmax, 1e-9)
	dt := cflDt
	maxDt := frameDt / float64(s.Cfg.MinSubsteps)
	minDt := frameDt / float64(s.Cfg.MaxSubsteps)
	if dt > maxDt {
		dt = maxDt
	}
	if dt < minDt {
		dt = minDt
	}
	// Guarantee at least MinSubsteps substeps by never overshooting
	// what remains for the substeps still owed.
	substepsLeft := s.Cfg.MinSubsteps - substepsSoFar
	if substepsLeft > 1 {
		evenShare := remaining / float64(substepsLeft)
		if dt > evenShare {
			dt = evenShare
		}
	}
	if dt > remaining {
		dt = remaining
	}
	return dt
}

func (s *Scheduler) substep(dt float64) error {
	st := s.State

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.rebuildSolid(st.Time + dt)
	}()
	go func() {
		defer wg.Done()
		s.rebuildLiquid()
	}()

	positions := make([]vmath.Vec3, len(st.Particles))
	velocities := make([]vmath.Vec3, len(st.Particles))
	for i, p := range st.Particles {
		positions[i] = p.Position
		velocities[i] = p.Velocity
	}
	s.velAdv.Splat(st.Field, st.Valid, positions, velocities)

	wg.Wait()
	st.Solid, st.SolidNext = st.SolidNext, st.Solid

	st.SavedField.Set(st.Field)

	if s.Cfg.ComputeCurvature {
		s.launchCurvature()
	}

	s.applyBodyForces(dt)

	if s.hasViscosity() {
		result := s.viscosity.Solve(st.Field, st.Solid, st.Viscosity, dt)
		if err := s.checkDivergence("viscosity", result); err != nil {
			return err
		}
	}

	result := s.pressure.Project(st.Field, st.Liquid, st.Solid, dt)
	if err := s.checkDivergence("pressure", result); err != nil {
		return err
	}

	s.constrainBoundary(dt)

	layers := maxInt3(st.Isize, st.Jsize, st.Ksize) / 2
	if layers < 1 {
		layers = 1
	}
	st.Field.Extrapolate(st.Valid, layers)

	s.picFlipBlend()
	s.advectAndCollide(dt)
	s.applySources(dt)
	if s.Cfg.ExtremeVelocityEnabled {
		s.removeExtremeVelocity()
	}

	st.Time += dt
	return nil
}

func (s *Scheduler) rebuildSolid(time float64) {
	next := levelset.NewMeshLevelSet(s.State.Isize, s.State.Jsize, s.State.Ksize, s.State.Dx)
	for _, o := range s.State.Obstacles {
		built := levelset.NewMeshLevelSet(s.State.Isize, s.State.Jsize, s.State.Ksize, s.State.Dx)
		built.Build(o.WorldMesh(time), s.Pool, s.Cfg.MeshUnionParallelThreshold)
		next.Union(built)
	}
	s.State.SolidNext = next
}

func (s *Scheduler) rebuildLiquid() {
	positions := make([]vmath.Vec3, len(s.State.Particles))
	for i, p := range s.State.Particles {
		positions[i] = p.Position
	}
	liquid := levelset.NewParticleLevelSet(s.State.Isize, s.State.Jsize, s.State.Ksize, s.State.Dx)
	nthreads := 1
	if s.Pool != nil {
		nthreads = s.Pool.Size()
	}
	liquid.Build(positions, nthreads)
	liquid.ExtrapolateIntoSolid(s.State.Solid)
	s.State.Liquid = liquid
}

func (s *Scheduler) launchCurvature() {
	if s.curvatureWG != nil {
		s.curvatureWG.Wait()
	}
	wg := &sync.WaitGroup{}
	wg.Add(1)
	st := s.State
	cfg := s.Cfg
	go func() {
		defer wg.Done()
		levelset.CurvatureGrid(st.Liquid, st.Curvature, cfg.CurvatureSmoothingIterations, cfg.CurvatureSmoothingValue, cfg.CurvatureExtrapolationLayers)
	}()
	s.curvatureWG = wg
}

func (s *Scheduler) hasViscosity() bool {
	for _, v := range s.State.Viscosity.Raw() {
		if v != 0 {
			return true
		}
	}
	return false
}

func (s *Scheduler) applyBodyForces(dt float64) {
	var total vmath.Vec3
	for _, f := range s.State.BodyForces {
		total = total.Add(f.Constant)
		if f.TimeVarying != nil {
			total = total.Add(f.TimeVarying(s.State.Time))
		}
	}
	if total == (vmath.Vec3{}) {
		return
	}
	raw := s.State.Field.U.Raw()
	for i := range raw {
		raw[i] += float32(total.X * dt)
	}
	raw = s.State.Field.V.Raw()
	for i := range raw {
		raw[i] += float32(total.Y * dt)
	}
	raw = s.State.Field.W.Raw()
	for i := range raw {
		raw[i] += float32(total.Z * dt)
	}
}

func (s *Scheduler) checkDivergence(phase string, result solve.Result) error {
	if result.Status == solve.Diverged {
		return &DivergenceError{Phase: phase, Result: result}
	}
	if result.Status == solve.Acceptable {
		io.PfRed("goflip: %s solve only reached acceptable tolerance (residual=%v, iterations=%d)\n", phase, result.Residual, result.Iterations)
	}
	return nil
}

// constrainBoundary blends projected face velocities toward the solid
// velocity at faces not fully open, per spec.md §4.12 step 10.
func (s *Scheduler) constrainBoundary(dt float64) {
	solid := s.State.Solid
	friction := s.Cfg.BoundaryFriction
	if friction == 0 {
		return
	}
	s.blendComponent(s.State.Field.U, solid.WeightU, mac.U, friction)
	s.blendComponent(s.State.Field.V, solid.WeightV, mac.V, friction)
	s.blendComponent(s.State.Field.W, solid.WeightW, mac.W, friction)
}

func (s *Scheduler) blendComponent(face, weight interfaceDense, dir mac.Direction, friction float64) {
	isize, jsize, ksize := face.Dims()
	for k := 0; k < ksize; k++ {
		for j := 0; j < jsize; j++ {
			for i := 0; i < isize; i++ {
				w := float64(weight.Get(i, j, k))
				if w >= 1 {
					continue
				}
				p := s.State.Field.FaceIndexToPosition(i, j, k, dir)
				solidVel := solidVelocityNearest(s.State.Solid, p)
				var solidComponent float64
				switch dir {
				case mac.U:
					solidComponent = solidVel.X
				case mac.V:
					solidComponent = solidVel.Y
				default:
					solidComponent = solidVel.Z
				}
				cur := float64(face.Get(i, j, k))
				blended := (1-friction)*cur + friction*solidComponent
				face.Set(i, j, k, float32(blended))
			}
		}
	}
}

func solidVelocityNearest(solid *levelset.MeshLevelSet, p vmath.Vec3) vmath.Vec3 {
	if solid.Velocity == nil {
		return vmath.Vec3{}
	}
	dx := solid.Dx
	ni := int(math.Round(p.X / dx))
	nj := int(math.Round(p.Y / dx))
	nk := int(math.Round(p.Z / dx))
	isize, jsize, ksize := solid.Phi.Dims()
	if ni < 0 || ni >= isize || nj < 0 || nj >= jsize || nk < 0 || nk >= ksize {
		return vmath.Vec3{}
	}
	idx := ni + isize*(nj+jsize*nk)
	if idx < 0 || idx >= len(solid.Velocity) {
		return vmath.Vec3{}
	}
	return solid.Velocity[idx]
}

func (s *Scheduler) picFlipBlend() {
	st := s.State
	delta := mac.Sub(st.Field, st.SavedField)
	flip := s.Cfg.PicFlipRatio
	for i := range st.Particles {
		p := st.Particles[i].Position
		picVel := st.Field.SampleLinear(p)
		deltaVel := delta.SampleLinear(p)
		flipVel := st.Particles[i].Velocity.Add(deltaVel)
		st.Particles[i].Velocity = flipVel.Scale(flip).Add(picVel.Scale(1 - flip))
	}
}

func (s *Scheduler) advectAndCollide(dt float64) {
	st := s.State
	bufferDist := s.Cfg.SolidBufferWidth * st.Dx
	bounds := vmath.NewAABB(vmath.Vec3{}, vmath.Vec3{
		X: float64(st.Isize) * st.Dx, Y: float64(st.Jsize) * st.Dx, Z: float64(st.Ksize) * st.Dx,
	}).Shrink(s.Cfg.BoundaryEpsilon * st.Dx)

	for i := range st.Particles {
		p := st.Particles[i].Position
		p = s.advector.Advect(st.Field, p, dt)
		p = resolveCollision(st.Solid, p, bufferDist)
		p = bounds.Clamp(p)
		st.Particles[i].Position = p
	}
}

// resolveCollision projects p to the nearest point with solid φ >
// buffer, moving along the φ gradient estimated by central differences.
func resolveCollision(solid *levelset.MeshLevelSet, p vmath.Vec3, buffer float64) vmath.Vec3 {
	phi := solid.TrilinearInterpolate(p)
	if phi >= buffer {
		return p
	}
	h := solid.Dx * 0.5
	grad := vmath.Vec3{
		X: solid.TrilinearInterpolate(p.Add(vmath.Vec3{X: h})) - solid.TrilinearInterpolate(p.Sub(vmath.Vec3{X: h})),
		Y: solid.TrilinearInterpolate(p.Add(vmath.Vec3{Y: h})) - solid.TrilinearInterpolate(p.Sub(vmath.Vec3{Y: h})),
		Z: solid.TrilinearInterpolate(p.Add(vmath.Vec3{Z: h})) - solid.TrilinearInterpolate(p.Sub(vmath.Vec3{Z: h})),
	}
	n := grad.Normalize()
	if n == (vmath.Vec3{}) {
		return p
	}
	return p.Add(n.Scale(buffer - phi))
}

func (s *Scheduler) applySources(dt float64) {
	st := s.State
	if len(st.sourceAccum) < len(st.Sources) {
		grown := make([]float64, len(st.Sources))
		copy(grown, st.sourceAccum)
		st.sourceAccum = grown
	}
	var kept []MarkerParticle
	removeMask := make(map[int]bool)
	for si, src := range st.Sources {
		q := trimeshQuery(src.Mesh)
		switch src.Kind {
		case Outflow:
			for pi, p := range st.Particles {
				if q.InsideByParity(p.Position) {
					removeMask[pi] = true
				}
			}
		case Inflow:
			box := src.Mesh.AABB()
			extent := box.Max.Sub(box.Min)
			nCells := (extent.X / st.Dx) * (extent.Y / st.Dx) * (extent.Z / st.Dx)
			exact := src.Rate * nCells * dt
			st.sourceAccum[si] += exact
			n := int(st.sourceAccum[si])
			st.sourceAccum[si] -= float64(n)
			for i := 0; i < n; i++ {
				pos := samplePointInAABB(box, q, i)
				kept = append(kept, MarkerParticle{Position: pos, Velocity: src.Velocity})
			}
		}
	}
	if len(removeMask) > 0 {
		filtered := st.Particles[:0]
		for pi, p := range st.Particles {
			if !removeMask[pi] {
				filtered = append(filtered, p)
			}
		}
		st.Particles = filtered
	}
	st.Particles = append(st.Particles, kept...)
}

type closestPointQuerier interface {
	InsideByParity(p vmath.Vec3) bool
}

// trimeshQuery builds the inside/outside query for a source mesh; it
// is a package variable so it can be replaced, and by default goes
// through trimesh.NewClosestPointQuery.
var trimeshQuery = defaultTrimeshQuery

func defaultTrimeshQuery(mesh *trimesh.Mesh) closestPointQuerier {
	return trimesh.NewClosestPointQuery(mesh)
}

func samplePointInAABB(box vmath.AABB, q closestPointQuerier, salt int) vmath.Vec3 {
	// Deterministic low-discrepancy-ish placement: salt walks a fixed
	// fractional ladder inside the box so repeated calls within one
	// substep spread out rather than stacking at the centroid.
	frac := func(i int) float64 {
		v := float64(i) * 0.6180339887498949 // golden ratio conjugate
		return v - math.Floor(v)
	}
	p := vmath.Vec3{
		X: box.Min.X + frac(salt)*(box.Max.X-box.Min.X),
		Y: box.Min.Y + frac(salt+1)*(box.Max.Y-box.Min.Y),
		Z: box.Min.Z + frac(salt+2)*(box.Max.Z-box.Min.Z),
	}
	if q != nil && !q.InsideByParity(p) {
		return box.Min.Add(box.Max).Scale(0.5)
	}
	return p
}

func (s *Scheduler) removeExtremeVelocity() {
	st := s.State
	type speedIdx struct {
		idx   int
		speed float64
	}
	var fast []speedIdx
	for i, p := range st.Particles {
		v := p.Velocity.Length()
		if v > s.Cfg.ExtremeVelocityMaxAbs {
			fast = append(fast, speedIdx{i, v})
		}
	}
	if len(fast) == 0 {
		return
	}
	sort.Slice(fast, func(a, b int) bool { return fast[a].speed > fast[b].speed })
	n := int(float64(len(st.Particles)) * s.Cfg.ExtremeVelocityMaxPct)
	if n > len(fast) {
		n = len(fast)
	}
	drop := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		drop[fast[i].idx] = true
	}
	filtered := st.Particles[:0]
	for i, p := range st.Particles {
		if !drop[i] {
			filtered = append(filtered, p)
		}
	}
	st.Particles = filtered
}

func maxInt3(a, b, c int) int {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

type interfaceDense interface {
	Get(i, j, k int) float32
	Set(i, j, k int, v float32)
	Dims() (int, int, int)
}
