// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"
)

type mockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a mock orientation source for a device lying flat
// and slowly turning, 10°/s of heading.
func NewMockSource() Source {
	return &mockSource{start: time.Now(), now: time.Now}
}

func (m *mockSource) Next() (Angles, error) {
	elapsed := m.now().Sub(m.start).Seconds()

	return Angles{
		Alpha: math.Mod(elapsed*10, 360),
		Beta:  0,
		Gamma: 0,
	}, nil
}
