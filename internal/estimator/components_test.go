package estimator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/inertial_radar/internal/spatial"
)

func TestCalibratorDoneExactlyOnce(t *testing.T) {
	t.Parallel()

	c := calibrator{target: 3}
	v := spatial.Vector3{X: 0.3, Y: -0.6, Z: 0.9}

	_, done := c.add(v)
	assert.False(t, done)
	_, done = c.add(v)
	assert.False(t, done)
	bias, done := c.add(v)
	assert.True(t, done)
	assert.InDelta(t, 0.3, bias.X, 1e-12)
	assert.InDelta(t, -0.6, bias.Y, 1e-12)
	assert.InDelta(t, 0.9, bias.Z, 1e-12)
	assert.Equal(t, 1.0, c.progress())

	// Past the target nothing accumulates any more.
	_, done = c.add(v)
	assert.False(t, done)
	assert.Equal(t, 3, c.count)
}

func TestConditionerLowPass(t *testing.T) {
	t.Parallel()

	c := conditioner{alpha: 0.5}
	f, _ := c.apply(spatial.Vector3{X: 4})
	assert.Equal(t, 2.0, f.X)
	f, _ = c.apply(spatial.Vector3{X: 4})
	assert.Equal(t, 3.0, f.X)
	f, _ = c.apply(spatial.Vector3{})
	assert.Equal(t, 1.5, f.X)
}

func TestConditionerDeadZone(t *testing.T) {
	t.Parallel()

	c := conditioner{alpha: 1, horizontal: 0.4, vertical: 0.6}

	filtered, gated := c.apply(spatial.Vector3{X: 0.39, Y: -0.41, Z: 0.5})
	assert.Equal(t, spatial.Vector3{X: 0.39, Y: -0.41, Z: 0.5}, filtered)
	assert.Equal(t, spatial.Vector3{X: 0, Y: -0.41, Z: 0}, gated)

	_, gated = c.apply(spatial.Vector3{X: 0.4, Y: 0, Z: -0.61})
	assert.Equal(t, spatial.Vector3{X: 0, Y: 0, Z: -0.61}, gated)
}

func TestStillnessNeedsFullWindow(t *testing.T) {
	t.Parallel()

	d := newStillnessDetector(4, 0.1, 0.6)
	for i := 0; i < 3; i++ {
		d.push(0)
		assert.False(t, d.still(), "partial window must not report still")
	}
	d.push(0)
	assert.True(t, d.still())
}

func TestStillnessThresholds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		values []float64
		want   bool
	}{
		{"quiet", []float64{0.1, 0.12, 0.09, 0.11}, true},
		{"steady but large", []float64{0.8, 0.8, 0.8, 0.8}, false},
		{"small mean but jittery", []float64{0, 1.1, 0, 1.1}, false},
		{"just under mean", []float64{0.59, 0.59, 0.59, 0.59}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := newStillnessDetector(4, 0.1, 0.6)
			for _, v := range tc.values {
				d.push(v)
			}
			assert.Equal(t, tc.want, d.still())
		})
	}
}

func TestStillnessReset(t *testing.T) {
	t.Parallel()

	d := newStillnessDetector(2, 0.1, 0.6)
	d.push(0)
	d.push(0)
	assert.True(t, d.still())
	d.reset()
	assert.False(t, d.still())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, DefaultConfig().Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"calibration samples", func(c *Config) { c.CalibrationSamples = 0 }},
		{"alpha zero", func(c *Config) { c.LowPassAlpha = 0 }},
		{"alpha above one", func(c *Config) { c.LowPassAlpha = 1.5 }},
		{"negative dead zone", func(c *Config) { c.DeadZoneVertical = -1 }},
		{"window", func(c *Config) { c.StillnessWindow = 0 }},
		{"damping zero", func(c *Config) { c.Damping = 0 }},
		{"damping above one", func(c *Config) { c.Damping = 1.01 }},
		{"max delta", func(c *Config) { c.MaxDeltaSeconds = 0 }},
		{"trail capacity", func(c *Config) { c.TrailCapacity = 0 }},
		{"trail interval", func(c *Config) { c.TrailIntervalMs = -1 }},
		{"gravity", func(c *Config) { c.Gravity = -9.81 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
