// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/inertial_radar/internal/config"
	"github.com/relabs-tech/inertial_radar/internal/estimator"
	"github.com/relabs-tech/inertial_radar/internal/imu"
	"github.com/relabs-tech/inertial_radar/internal/orientation"
)

type eventKind int

const (
	eventOrientation eventKind = iota
	eventMotion
	eventReset
)

type trackerEvent struct {
	kind   eventKind
	angles orientation.Angles
	sample imu.Sample
}

// tracker owns one estimator. MQTT callbacks only decode and enqueue; a
// single goroutine (run) applies events, so the estimator has exactly one
// writer. Renderers go through est.Snapshot.
type tracker struct {
	est     *estimator.Estimator
	events  chan trackerEvent
	overrun atomic.Uint64
}

func newTracker(cfg estimator.Config, queue int) (*tracker, error) {
	est, err := estimator.New(cfg)
	if err != nil {
		return nil, err
	}
	return &tracker{est: est, events: make(chan trackerEvent, queue)}, nil
}

func (t *tracker) handleOrientation(payload []byte) error {
	var a orientation.Angles
	if err := json.Unmarshal(payload, &a); err != nil {
		return fmt.Errorf("orientation unmarshal: %w", err)
	}
	t.enqueue(trackerEvent{kind: eventOrientation, angles: a})
	return nil
}

func (t *tracker) handleMotion(payload []byte) error {
	var s imu.Sample
	if err := json.Unmarshal(payload, &s); err != nil {
		return fmt.Errorf("motion unmarshal: %w", err)
	}
	t.enqueue(trackerEvent{kind: eventMotion, sample: s})
	return nil
}

func (t *tracker) handleReset() {
	t.enqueue(trackerEvent{kind: eventReset})
}

// enqueue never blocks the MQTT client; a full queue drops the event,
// like any other late sample.
func (t *tracker) enqueue(ev trackerEvent) {
	select {
	case t.events <- ev:
	default:
		if n := t.overrun.Add(1); n%100 == 1 {
			log.Warnf("tracker: event queue full, %d events dropped so far", n)
		}
	}
}

func (t *tracker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-t.events:
			t.apply(ev)
		}
	}
}

func (t *tracker) apply(ev trackerEvent) {
	switch ev.kind {
	case eventOrientation:
		t.est.Orient(ev.angles)
	case eventReset:
		t.est.Reset()
		log.Println("tracker: session reset, calibrating")
	case eventMotion:
		switch t.est.Ingest(ev.sample) {
		case estimator.OutcomeCalibrated:
			bias := t.est.Snapshot().Bias
			log.WithFields(log.Fields{
				"bias_x": bias.X,
				"bias_y": bias.Y,
				"bias_z": bias.Z,
			}).Info("tracker: calibration complete, tracking")
		case estimator.OutcomeDropped:
			log.Debugf("tracker: dropped sample t=%d", ev.sample.TimestampMs)
		case estimator.OutcomeNoOrientation:
			log.Debug("tracker: motion sample before any orientation, dropped")
		}
	}
}

// RunTracker subscribes to the sensor feeds, runs the estimator and
// publishes its snapshot on the state topic.
func RunTracker(ctx context.Context) error {
	cfg := config.Get()

	tr, err := newTracker(cfg.Estimator, 1024)
	if err != nil {
		return err
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDTracker)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	go tr.run(ctx)

	if err := subscribe(client, cfg.TopicOrientation, func(p []byte) {
		if err := tr.handleOrientation(p); err != nil {
			log.Printf("tracker: %v", err)
		}
	}); err != nil {
		return err
	}
	if err := subscribe(client, cfg.TopicMotion, func(p []byte) {
		if err := tr.handleMotion(p); err != nil {
			log.Printf("tracker: %v", err)
		}
	}); err != nil {
		return err
	}
	if err := subscribe(client, cfg.TopicReset, func([]byte) { tr.handleReset() }); err != nil {
		return err
	}

	tun := tr.est.Config()
	log.WithFields(log.Fields{
		"calibration_samples": tun.CalibrationSamples,
		"low_pass_alpha":      tun.LowPassAlpha,
		"dead_zone_h":         tun.DeadZoneHorizontal,
		"dead_zone_v":         tun.DeadZoneVertical,
		"stillness_window":    tun.StillnessWindow,
		"damping":             tun.Damping,
		"max_delta_s":         tun.MaxDeltaSeconds,
	}).Info("tracker: estimator tunables")
	log.Println("tracker: calibrating, keep the device still")

	ticker := time.NewTicker(time.Duration(cfg.StatePublishInterval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("tracker: shutting down")
			return nil
		case <-ticker.C:
			if err := publishJSON(client, cfg.TopicState, false, tr.est.Snapshot()); err != nil {
				log.Printf("tracker: %v", err)
			}
		}
	}
}
