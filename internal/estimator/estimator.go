// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package estimator turns a stream of device attitude and raw acceleration
// samples into a relative 3-D position by double integration (dead
// reckoning). Drift is kept bounded, not removed, by four layers: a static
// bias measured while the device starts at rest, a low-pass plus dead-zone
// conditioner, per-sample velocity damping, and zero-velocity updates when
// the device is detected as still.
//
// An Estimator is fed from a single ingestion path. Renderers read it only
// through Snapshot, which returns a copy.
package estimator

import (
	"fmt"
	"sync"

	"github.com/relabs-tech/inertial_radar/internal/imu"
	"github.com/relabs-tech/inertial_radar/internal/orientation"
	"github.com/relabs-tech/inertial_radar/internal/spatial"
)

// Mode is the estimator phase.
type Mode int

const (
	Calibrating Mode = iota
	Active
)

func (m Mode) String() string {
	switch m {
	case Calibrating:
		return "calibrating"
	case Active:
		return "active"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "calibrating":
		*m = Calibrating
	case "active":
		*m = Active
	default:
		return fmt.Errorf("unknown mode %q", string(b))
	}
	return nil
}

// Outcome says what Ingest did with a sample.
type Outcome int

const (
	// OutcomeNoOrientation: no attitude received yet, sample dropped.
	OutcomeNoOrientation Outcome = iota
	// OutcomeCalibrating: sample consumed by the bias calibrator.
	OutcomeCalibrating
	// OutcomeCalibrated: sample completed calibration; mode is now Active.
	OutcomeCalibrated
	// OutcomeFirstSample: first active sample, only its timestamp is kept.
	OutcomeFirstSample
	// OutcomeDropped: a non-finite axis, or a time delta that was
	// non-positive or too large. A too-large delta still moves the time
	// anchor to the dropped sample, unlike the other cases, so that
	// integration resumes after a sensor gap.
	OutcomeDropped
	// OutcomeIntegrated: velocity and position were updated.
	OutcomeIntegrated
	// OutcomeStill: integrated, and velocity was snapped to zero.
	OutcomeStill
)

var outcomeNames = [...]string{
	OutcomeNoOrientation: "no-orientation",
	OutcomeCalibrating:   "calibrating",
	OutcomeCalibrated:    "calibrated",
	OutcomeFirstSample:   "first-sample",
	OutcomeDropped:       "dropped",
	OutcomeIntegrated:    "integrated",
	OutcomeStill:         "still",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return fmt.Sprintf("outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

// Stats counts samples since the last reset.
type Stats struct {
	Accepted uint64 `json:"accepted"`
	Dropped  uint64 `json:"dropped"`
	ZUPTs    uint64 `json:"zupts"`
}

// State is a copy of the estimator's full mutable aggregate.
type State struct {
	Position               spatial.Vector3
	Velocity               spatial.Vector3
	FilteredAccel          spatial.Vector3
	Bias                   spatial.Vector3
	AccelMagnitudeWindow   []float64
	CalibrationAccumulator spatial.Vector3
	CalibrationSampleCount int
	Mode                   Mode
	HasLastTimestamp       bool
	LastTimestampMs        int64
	Trail                  []TrailPoint
	Height                 []HeightPoint
	Stats                  Stats
}

// Snapshot is what a renderer consumes.
type Snapshot struct {
	Position spatial.Vector3 `json:"position"`
	Velocity spatial.Vector3 `json:"velocity"`
	Bias     spatial.Vector3 `json:"bias"`
	// Attitude in degrees, zero until the first orientation reading.
	Attitude            orientation.Angles `json:"attitude"`
	Mode                Mode               `json:"mode"`
	CalibrationProgress float64            `json:"calibration_progress"`
	Still               bool               `json:"still"`
	Trail               []TrailPoint       `json:"trail"`
	Height              []HeightPoint      `json:"height"`
	Stats               Stats              `json:"stats"`
}

// Estimator is the dead-reckoning pipeline for one tracking session.
type Estimator struct {
	mu  sync.RWMutex
	cfg Config

	attitude     orientation.Angles // radians
	haveAttitude bool

	position spatial.Vector3
	velocity spatial.Vector3
	bias     spatial.Vector3
	mode     Mode

	calib calibrator
	cond  conditioner
	still stillnessDetector

	lastTs     int64
	haveLastTs bool
	isStill    bool

	trail  *Ring[TrailPoint]
	height *Ring[HeightPoint]

	stats Stats
}

// New creates an Estimator in Calibrating mode.
func New(cfg Config) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("estimator config: %w", err)
	}
	return &Estimator{
		cfg:    cfg,
		calib:  calibrator{target: cfg.CalibrationSamples},
		cond:   conditioner{alpha: cfg.LowPassAlpha, horizontal: cfg.DeadZoneHorizontal, vertical: cfg.DeadZoneVertical},
		still:  newStillnessDetector(cfg.StillnessWindow, cfg.StillnessVariance, cfg.StillnessAccel),
		trail:  NewRing[TrailPoint](cfg.TrailCapacity),
		height: NewRing[HeightPoint](cfg.HeightCapacity),
	}, nil
}

// Config returns the tunables the estimator was built with.
func (e *Estimator) Config() Config {
	return e.cfg
}

// Orient records the latest attitude. deg is in degrees, as delivered by
// the orientation feed. Readings with a NaN or infinite angle are ignored
// and the previous attitude stays in effect.
func (e *Estimator) Orient(deg orientation.Angles) {
	if !(spatial.Vector3{X: deg.Alpha, Y: deg.Beta, Z: deg.Gamma}).IsFinite() {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.attitude = deg.Radians()
	e.haveAttitude = true
}

// Ingest runs one raw motion sample through the pipeline. It never fails:
// unusable samples are dropped and reported through the Outcome.
func (e *Estimator) Ingest(s imu.Sample) Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.haveAttitude {
		e.stats.Dropped++
		return OutcomeNoOrientation
	}

	raw := spatial.Vector3{X: s.Ax, Y: s.Ay, Z: s.Az}
	if !raw.IsFinite() {
		// would poison the filter and bias for the rest of the session
		e.stats.Dropped++
		return OutcomeDropped
	}

	world := orientation.Rotate(raw, e.attitude)
	linear := world.Sub(spatial.Vector3{Z: e.cfg.Gravity})

	if e.mode == Calibrating {
		bias, done := e.calib.add(linear)
		if !done {
			return OutcomeCalibrating
		}
		e.bias = bias
		e.mode = Active
		return OutcomeCalibrated
	}

	if !e.haveLastTs {
		e.lastTs = s.TimestampMs
		e.haveLastTs = true
		return OutcomeFirstSample
	}

	dt := float64(s.TimestampMs-e.lastTs) / 1000.0
	if dt <= 0 {
		e.stats.Dropped++
		return OutcomeDropped
	}
	if dt > e.cfg.MaxDeltaSeconds {
		// Re-anchor so the sample after a gap is usable again.
		e.lastTs = s.TimestampMs
		e.stats.Dropped++
		return OutcomeDropped
	}
	e.lastTs = s.TimestampMs

	filtered, gated := e.cond.apply(linear.Sub(e.bias))
	e.still.push(filtered.Norm())
	e.isStill = e.still.still()

	e.velocity = e.velocity.Add(gated.Scale(dt)).Scale(e.cfg.Damping)

	zupt := e.isStill ||
		(e.velocity.Norm() < e.cfg.ZUPTVelocity && filtered.Norm() < e.cfg.ZUPTAccel)
	if zupt {
		e.velocity = spatial.Zero
		e.stats.ZUPTs++
	}

	e.position = e.position.Add(e.velocity.Scale(dt))
	e.record(s.TimestampMs)
	e.stats.Accepted++

	if zupt {
		return OutcomeStill
	}
	return OutcomeIntegrated
}

// record appends the current position to the display histories. The trail
// is throttled to one point per TrailIntervalMs; height is not.
func (e *Estimator) record(ts int64) {
	if last, ok := e.trail.Last(); !ok || ts-last.TimestampMs >= e.cfg.TrailIntervalMs {
		e.trail.Push(TrailPoint{X: e.position.X, Y: e.position.Y, TimestampMs: ts})
	}
	e.height.Push(HeightPoint{TimestampMs: ts, Z: e.position.Z})
}

// Reset returns the estimator to its initial state and re-enters
// calibration. The latest attitude is kept: it belongs to the orientation
// feed, not to the session.
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.position = spatial.Zero
	e.velocity = spatial.Zero
	e.bias = spatial.Zero
	e.mode = Calibrating
	e.calib.reset()
	e.cond.reset()
	e.still.reset()
	e.lastTs = 0
	e.haveLastTs = false
	e.isStill = false
	e.trail.Clear()
	e.height.Clear()
	e.stats = Stats{}
}

// Snapshot returns a copy safe to hand to another goroutine.
func (e *Estimator) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return Snapshot{
		Position:            e.position,
		Velocity:            e.velocity,
		Bias:                e.bias,
		Attitude:            e.attitude.Degrees(),
		Mode:                e.mode,
		CalibrationProgress: e.calib.progress(),
		Still:               e.isStill,
		Trail:               e.trail.Slice(),
		Height:              e.height.Slice(),
		Stats:               e.stats,
	}
}

// State returns a copy of the full internal aggregate.
func (e *Estimator) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return State{
		Position:               e.position,
		Velocity:               e.velocity,
		FilteredAccel:          e.cond.filtered,
		Bias:                   e.bias,
		AccelMagnitudeWindow:   e.still.window.Slice(),
		CalibrationAccumulator: e.calib.sum,
		CalibrationSampleCount: e.calib.count,
		Mode:                   e.mode,
		HasLastTimestamp:       e.haveLastTs,
		LastTimestampMs:        e.lastTs,
		Trail:                  e.trail.Slice(),
		Height:                 e.height.Slice(),
		Stats:                  e.stats,
	}
}
