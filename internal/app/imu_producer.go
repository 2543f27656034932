package app

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/inertial_radar/internal/config"
	"github.com/relabs-tech/inertial_radar/internal/sensors"
)

// RunIMUProducer samples the MPU9250 and publishes motion samples plus the
// board's mounting tilt as the orientation feed.
func RunIMUProducer(ctx context.Context) error {
	log.Println("starting inertial-radar IMU producer (MPU9250 → MQTT)")

	cfg := config.Get()

	src, err := sensors.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.IMUAccelRange)
	if err != nil {
		return err
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	// The board has no gyro fusion: the tilt measured while it rests during
	// the estimator's calibration window is held for the session.
	tilt := sensors.NewTiltEstimator(cfg.Estimator.CalibrationSamples)

	// A reset starts a new rest window, in step with the tracker.
	resets := make(chan struct{}, 1)
	if err := subscribe(client, cfg.TopicReset, func([]byte) {
		select {
		case resets <- struct{}{}:
		default:
		}
	}); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Duration(cfg.IMUSampleInterval) * time.Millisecond)
	defer ticker.Stop()

	lastLog := time.Time{}
	for {
		select {
		case <-ctx.Done():
			log.Println("IMU producer: shutting down")
			return nil
		case <-resets:
			tilt.Reset()
			log.Println("IMU producer: reset, re-measuring tilt")
		case t := <-ticker.C:
			sample, err := src.Next()
			if err != nil {
				log.Printf("error reading IMU: %v", err)
				continue
			}
			tilt.Add(sample)
			attitude := tilt.Angles()

			// Orientation first: the tracker drops motion until it has one.
			if err := publishJSON(client, cfg.TopicOrientation, true, attitude); err != nil {
				log.Printf("IMU producer: %v", err)
				continue
			}
			if err := publishJSON(client, cfg.TopicMotion, false, sample); err != nil {
				log.Printf("IMU producer: %v", err)
				continue
			}

			if t.Sub(lastLog) >= time.Duration(cfg.ConsoleLogInterval)*time.Millisecond {
				lastLog = t
				log.Printf("%s tick: accel ax=%.3f ay=%.3f az=%.3f | tilt B=%.2f G=%.2f",
					t.Format(time.RFC3339),
					sample.Ax, sample.Ay, sample.Az,
					attitude.Beta, attitude.Gamma,
				)
			}
		}
	}
}
