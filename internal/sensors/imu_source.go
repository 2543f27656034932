// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/inertial_radar/internal/imu"
)

// IMUSource reads the MPU9250 accelerometer over SPI. It is an imu.Source.
type IMUSource struct {
	imu      *mpu9250.MPU9250
	rangeSel byte
	start    time.Time
}

// NewIMUSource initializes an MPU9250 on the given SPI device and chip
// select pin.
func NewIMUSource(spiDev, csPin string, accelRange byte) (*IMUSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", spiDev, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	if err := dev.SetAccelRange(accelRange); err != nil {
		return nil, fmt.Errorf("IMU: set accel range: %w", err)
	}
	log.Printf("IMU: accelerometer range set to %d (±%dg)", accelRange, []int{2, 4, 8, 16}[accelRange])

	// The on-chip offset calibration expects the device at rest; the
	// estimator's own bias window follows it.
	if err := dev.Calibrate(); err != nil {
		log.Printf("Warning: IMU calibration failed: %v", err)
	} else {
		log.Println("IMU calibration complete")
	}

	return &IMUSource{imu: dev, rangeSel: accelRange, start: time.Now()}, nil
}

// Next reads one accelerometer sample, timestamped in milliseconds since
// the source was opened.
func (s *IMUSource) Next() (imu.Sample, error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return imu.Sample{}, fmt.Errorf("IMU accel X: %w", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return imu.Sample{}, fmt.Errorf("IMU accel Y: %w", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return imu.Sample{}, fmt.Errorf("IMU accel Z: %w", err)
	}

	return sampleFromCounts(ax, ay, az, s.rangeSel, time.Since(s.start).Milliseconds()), nil
}

func sampleFromCounts(ax, ay, az int16, rangeSel byte, ts int64) imu.Sample {
	return imu.Sample{
		Ax:          imu.CountsToMS2(ax, rangeSel),
		Ay:          imu.CountsToMS2(ay, rangeSel),
		Az:          imu.CountsToMS2(az, rangeSel),
		TimestampMs: ts,
	}
}
