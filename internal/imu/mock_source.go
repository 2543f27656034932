// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import "math/rand"

// walkPhase is one leg of the scripted mock walk.
type walkPhase struct {
	samples int
	ax, ay  float64 // device-frame horizontal acceleration, m/s²
}

// mockWalk is: stand still (covers calibration), speed up along +x, coast,
// brake, stand, then turn onto +y.
var mockWalk = []walkPhase{
	{samples: 120, ax: 0, ay: 0},
	{samples: 25, ax: 1.5, ay: 0},
	{samples: 50, ax: 0, ay: 0},
	{samples: 25, ax: -1.5, ay: 0},
	{samples: 60, ax: 0, ay: 0},
	{samples: 25, ax: 0, ay: 1.5},
	{samples: 50, ax: 0, ay: 0},
	{samples: 25, ax: 0, ay: -1.5},
}

type mockSource struct {
	intervalMs int64
	t          int64
	idx        int
	rng        *rand.Rand
	noise      float64
	phases     []walkPhase
}

// NewMockSource returns a source replaying a scripted walk for a device
// lying flat, sampled every intervalMs milliseconds, with uniform noise of
// ±noise m/s² on every axis. The script loops forever.
func NewMockSource(intervalMs int64, noise float64, seed int64) Source {
	return &mockSource{
		intervalMs: intervalMs,
		rng:        rand.New(rand.NewSource(seed)),
		noise:      noise,
		phases:     mockWalk,
	}
}

func (m *mockSource) Next() (Sample, error) {
	total := 0
	for _, p := range m.phases {
		total += p.samples
	}

	pos := m.idx % total
	var phase walkPhase
	for _, p := range m.phases {
		if pos < p.samples {
			phase = p
			break
		}
		pos -= p.samples
	}

	s := Sample{
		Ax:          phase.ax + m.jitter(),
		Ay:          phase.ay + m.jitter(),
		Az:          StandardGravity + m.jitter(),
		TimestampMs: m.t,
	}
	m.idx++
	m.t += m.intervalMs
	return s, nil
}

func (m *mockSource) jitter() float64 {
	if m.noise == 0 {
		return 0
	}
	return (m.rng.Float64()*2 - 1) * m.noise
}
