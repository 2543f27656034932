// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/inertial_radar/internal/config"
	"github.com/relabs-tech/inertial_radar/internal/imu"
	"github.com/relabs-tech/inertial_radar/internal/orientation"
)

// RunMockProducer publishes a scripted walk for running the pipeline
// without hardware.
func RunMockProducer(ctx context.Context) error {
	log.Println("starting inertial-radar MQTT producer (mock)")

	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	attitudeSrc := orientation.NewMockSource()
	motionSrc := imu.NewMockSource(int64(cfg.IMUSampleInterval), cfg.MockNoise, time.Now().UnixNano())

	ticker := time.NewTicker(time.Duration(cfg.IMUSampleInterval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a, err := attitudeSrc.Next()
			if err != nil {
				log.Printf("error from mock orientation source: %v", err)
				continue
			}
			s, err := motionSrc.Next()
			if err != nil {
				log.Printf("error from mock motion source: %v", err)
				continue
			}

			if err := publishJSON(client, cfg.TopicOrientation, true, a); err != nil {
				log.Printf("mock producer: %v", err)
				continue
			}
			if err := publishJSON(client, cfg.TopicMotion, false, s); err != nil {
				log.Printf("mock producer: %v", err)
				continue
			}
			log.Debugf("published mock sample: %+v heading=%.1f", s, a.Alpha)
		}
	}
}
