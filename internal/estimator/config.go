// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package estimator

import "fmt"

// Config holds the estimator tunables. Construct with DefaultConfig and
// override what you need; New validates the result.
type Config struct {
	// Stationary samples averaged into the bias before integration starts.
	CalibrationSamples int `yaml:"calibration_samples"`

	// Low-pass smoothing factor (0,1]. Lower is smoother and slower.
	LowPassAlpha float64 `yaml:"low_pass_alpha"`

	// Per-axis noise floors in m/s². Values at or below are integrated as zero.
	DeadZoneHorizontal float64 `yaml:"dead_zone_horizontal"`
	DeadZoneVertical   float64 `yaml:"dead_zone_vertical"`

	// Stillness detector over filtered acceleration magnitude.
	StillnessWindow   int     `yaml:"stillness_window"`
	StillnessVariance float64 `yaml:"stillness_variance"`
	StillnessAccel    float64 `yaml:"stillness_accel"`

	// Zero-velocity update thresholds (m/s and m/s²).
	ZUPTVelocity float64 `yaml:"zupt_velocity"`
	ZUPTAccel    float64 `yaml:"zupt_accel"`

	// Per-sample velocity multiplier in (0,1]. 1 disables damping.
	Damping float64 `yaml:"damping"`

	// Samples further apart than this are dropped.
	MaxDeltaSeconds float64 `yaml:"max_delta_seconds"`

	TrailCapacity   int   `yaml:"trail_capacity"`
	HeightCapacity  int   `yaml:"height_capacity"`
	TrailIntervalMs int64 `yaml:"trail_interval_ms"`

	// Subtracted from the world-frame vertical axis, m/s².
	Gravity float64 `yaml:"gravity"`
}

// DefaultConfig returns the tunables used for a hand-held phone-class sensor.
func DefaultConfig() Config {
	return Config{
		CalibrationSamples: 50,
		LowPassAlpha:       0.15,
		DeadZoneHorizontal: 0.4,
		DeadZoneVertical:   0.6,
		StillnessWindow:    20,
		StillnessVariance:  0.1,
		StillnessAccel:     0.6,
		ZUPTVelocity:       0.08,
		ZUPTAccel:          0.6,
		Damping:            0.97,
		MaxDeltaSeconds:    0.5,
		TrailCapacity:      500,
		HeightCapacity:     500,
		TrailIntervalMs:    50,
		Gravity:            9.81,
	}
}

// Validate checks that every tunable is usable.
func (c Config) Validate() error {
	if c.CalibrationSamples < 1 {
		return fmt.Errorf("calibration samples must be >= 1, got %d", c.CalibrationSamples)
	}
	if c.LowPassAlpha <= 0 || c.LowPassAlpha > 1 {
		return fmt.Errorf("low-pass alpha must be in (0,1], got %g", c.LowPassAlpha)
	}
	if c.DeadZoneHorizontal < 0 || c.DeadZoneVertical < 0 {
		return fmt.Errorf("dead zones must be >= 0, got %g/%g", c.DeadZoneHorizontal, c.DeadZoneVertical)
	}
	if c.StillnessWindow < 1 {
		return fmt.Errorf("stillness window must be >= 1, got %d", c.StillnessWindow)
	}
	if c.StillnessVariance < 0 || c.StillnessAccel < 0 {
		return fmt.Errorf("stillness thresholds must be >= 0")
	}
	if c.ZUPTVelocity < 0 || c.ZUPTAccel < 0 {
		return fmt.Errorf("ZUPT thresholds must be >= 0")
	}
	if c.Damping <= 0 || c.Damping > 1 {
		return fmt.Errorf("damping must be in (0,1], got %g", c.Damping)
	}
	if c.MaxDeltaSeconds <= 0 {
		return fmt.Errorf("max delta must be > 0, got %g", c.MaxDeltaSeconds)
	}
	if c.TrailCapacity < 1 || c.HeightCapacity < 1 {
		return fmt.Errorf("history capacities must be >= 1, got %d/%d", c.TrailCapacity, c.HeightCapacity)
	}
	if c.TrailIntervalMs < 0 {
		return fmt.Errorf("trail interval must be >= 0, got %d", c.TrailIntervalMs)
	}
	if c.Gravity < 0 {
		return fmt.Errorf("gravity must be >= 0, got %g", c.Gravity)
	}
	return nil
}
