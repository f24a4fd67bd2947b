// Copyright 2026 The Goflip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mac

import "github.com/cpmech/goflip/extrap"

// Extrapolate extends every invalid face of f by layers cells, writing
// into f's own grids in place and updating valid, per spec.md §4.2 and
// §4.11. After this call every face within layers cells of the initial
// valid region carries a value usable by the pressure solver and FLIP
// gather.
func (f *Field) Extrapolate(valid *ValidMask, layers int) {
	extrap.Scalar(f.U, valid.U, layers)
	extrap.Scalar(f.V, valid.V, layers)
	extrap.Scalar(f.W, valid.W, layers)
}
