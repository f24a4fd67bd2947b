// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package transfer implements the particle-to-grid scatter used to
// build the MAC velocity field (VelocityAdvector) and cell-centered
// scalar fields (ScalarFieldAdder) from marker particles, plus a
// pluggable Accelerator interface behind which the work can run on a
// compute device (spec.md §4.6/§4.7).
package transfer

// Kernel is the compactly-supported cubic polynomial particle-to-grid
// weight (spec.md §4.6):
//
//	W(d²) = 1 − (4/9r⁶)·d⁶ + (17/9r⁴)·d⁴ − (22/9r²)·d²   for d² < r²
//	W(d²) = 0                                             otherwise
func Kernel(d2, r float64) float64 {
	r2 := r * r
	if d2 >= r2 {
		return 0
	}
	r4 := r2 * r2
	r6 := r4 * r2
	d4 := d2 * d2
	d6 := d4 * d2
	return 1 - (4.0/(9.0*r6))*d6 + (17.0/(9.0*r4))*d4 - (22.0/(9.0*r2))*d2
}
