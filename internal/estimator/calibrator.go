// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package estimator

import "github.com/relabs-tech/inertial_radar/internal/spatial"

// calibrator averages gravity-subtracted world-frame acceleration over the
// first stationary samples of a session to estimate the static bias.
type calibrator struct {
	target int
	sum    spatial.Vector3
	count  int
}

// add accumulates one sample. It reports done exactly once, on the sample
// that reaches the target, together with the averaged bias.
func (c *calibrator) add(v spatial.Vector3) (bias spatial.Vector3, done bool) {
	if c.count >= c.target {
		return spatial.Zero, false
	}
	c.sum = c.sum.Add(v)
	c.count++
	if c.count < c.target {
		return spatial.Zero, false
	}
	return c.sum.Scale(1 / float64(c.count)), true
}

func (c *calibrator) progress() float64 {
	return float64(c.count) / float64(c.target)
}

func (c *calibrator) reset() {
	c.sum = spatial.Zero
	c.count = 0
}
