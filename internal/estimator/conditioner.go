// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package estimator

import (
	"math"

	"github.com/relabs-tech/inertial_radar/internal/spatial"
)

// conditioner is an exponential low-pass followed by a per-axis dead zone.
type conditioner struct {
	alpha      float64
	horizontal float64
	vertical   float64
	filtered   spatial.Vector3
}

// apply feeds one bias-corrected sample. It returns the low-passed value,
// which the stillness and ZUPT checks look at, and the dead-zoned value
// that gets integrated.
func (c *conditioner) apply(corrected spatial.Vector3) (filtered, gated spatial.Vector3) {
	c.filtered = corrected.Scale(c.alpha).Add(c.filtered.Scale(1 - c.alpha))

	gated = spatial.Vector3{
		X: deadZone(c.filtered.X, c.horizontal),
		Y: deadZone(c.filtered.Y, c.horizontal),
		Z: deadZone(c.filtered.Z, c.vertical),
	}
	return c.filtered, gated
}

func (c *conditioner) reset() {
	c.filtered = spatial.Zero
}

// deadZone passes v only when its magnitude exceeds floor.
func deadZone(v, floor float64) float64 {
	if math.Abs(v) > floor {
		return v
	}
	return 0
}
