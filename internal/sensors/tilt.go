// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"github.com/relabs-tech/inertial_radar/internal/imu"
	"github.com/relabs-tech/inertial_radar/internal/orientation"
	"github.com/relabs-tech/inertial_radar/internal/spatial"
)

// TiltEstimator derives the mounting attitude of a board without gyro
// fusion: it averages the first samples, taken at rest, and holds the
// resulting tilt for the rest of the session. Heading stays 0.
type TiltEstimator struct {
	target int
	sum    spatial.Vector3
	count  int
}

func NewTiltEstimator(restSamples int) *TiltEstimator {
	if restSamples < 1 {
		restSamples = 1
	}
	return &TiltEstimator{target: restSamples}
}

// Add feeds a sample while the rest window is open. It reports whether
// the attitude is settled.
func (t *TiltEstimator) Add(s imu.Sample) bool {
	if t.count < t.target {
		t.sum = t.sum.Add(spatial.Vector3{X: s.Ax, Y: s.Ay, Z: s.Az})
		t.count++
	}
	return t.count >= t.target
}

// Angles returns the tilt, in degrees, of the samples averaged so far.
func (t *TiltEstimator) Angles() orientation.Angles {
	if t.count == 0 {
		return orientation.Angles{}
	}
	return orientation.FromGravity(t.sum.X, t.sum.Y, t.sum.Z)
}

// Reset reopens the rest window.
func (t *TiltEstimator) Reset() {
	t.sum = spatial.Zero
	t.count = 0
}
