// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"fmt"

	"github.com/cpmech/goflip/sched"
	"github.com/cpmech/goflip/solve"
	"github.com/cpmech/gosl/chk"
)

// ConfigError reports an invalid grid dimension, dx, or out-of-range
// configuration value caught at Initialize(), per spec.md §7.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return chk.Err("goflip: config: %s", e.Msg).Error()
}

// SolverDivergence reports that a pressure or viscosity CG solve
// exceeded its iteration budget without reaching the acceptable
// tolerance, per spec.md §7. It propagates to the caller from Update
// and aborts the current frame, leaving the prior frame's state as the
// last observable one (spec.md §7's "frame commits atomically").
type SolverDivergence struct {
	Phase  string
	Result solve.Result
}

func (e *SolverDivergence) Error() string {
	return chk.Err("goflip: %s solve diverged after %d iterations, residual=%v", e.Phase, e.Result.Iterations, e.Result.Residual).Error()
}

// BackendError reports that an accelerator-backed operation failed.
// Per spec.md §7 it is recovered by disabling the accelerator for the
// remainder of the run; Update logs a warning and continues rather than
// returning this to the caller, so it is exported only so hosts that
// inspect FrameStats.LastBackendErr can see why the accelerator was
// disabled. transfer.Accelerator's only implementation (CPUAccelerator)
// never fails, so this stays a reserved hook until a second backend
// exists to actually raise it.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("goflip: accelerator backend failed during %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// fromSchedError translates a sched.Scheduler error into the sim-level
// taxonomy of spec.md §7.
func fromSchedError(err error) error {
	if err == nil {
		return nil
	}
	if de, ok := err.(*sched.DivergenceError); ok {
		return &SolverDivergence{Phase: de.Phase, Result: de.Result}
	}
	return err
}
