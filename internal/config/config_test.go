package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/inertial_radar/internal/estimator"
)

func writeTempConfig(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadKeyValueOverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, "radar_config.txt", `
# broker
MQTT_BROKER=tcp://pi.local:1883
TOPIC_STATE = radar/pi/state

IMU_ACCEL_RANGE=2
DISPLAY_I2C_ADDR=0x3D
LOW_PASS_ALPHA=0.2
CALIBRATION_SAMPLES=100
VELOCITY_DAMPING=1
TRAIL_INTERVAL_MS=0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tcp://pi.local:1883", cfg.MQTTBroker)
	assert.Equal(t, "radar/pi/state", cfg.TopicState)
	assert.Equal(t, "radar/motion", cfg.TopicMotion, "untouched keys keep defaults")
	assert.Equal(t, byte(2), cfg.IMUAccelRange)
	assert.Equal(t, uint16(0x3D), cfg.DisplayI2CAddr)
	assert.Equal(t, 0.2, cfg.Estimator.LowPassAlpha)
	assert.Equal(t, 100, cfg.Estimator.CalibrationSamples)
	assert.Equal(t, 1.0, cfg.Estimator.Damping)
	assert.Equal(t, int64(0), cfg.Estimator.TrailIntervalMs)
	assert.Equal(t, estimator.DefaultConfig().StillnessWindow, cfg.Estimator.StillnessWindow)
}

func TestLoadYAML(t *testing.T) {
	path := writeTempConfig(t, "radar.yaml", `
mqtt_broker: tcp://10.0.0.2:1883
web_server_port: 9090
estimator:
  dead_zone_horizontal: 0.3
  stillness_window: 30
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tcp://10.0.0.2:1883", cfg.MQTTBroker)
	assert.Equal(t, 9090, cfg.WebServerPort)
	assert.Equal(t, 0.3, cfg.Estimator.DeadZoneHorizontal)
	assert.Equal(t, 30, cfg.Estimator.StillnessWindow)
	// not mentioned in the file
	assert.Equal(t, 0.6, cfg.Estimator.DeadZoneVertical)
	assert.Equal(t, 500, cfg.Estimator.TrailCapacity)
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name     string
		file     string
		contents string
		want     string
	}{
		{"unknown key", "a.txt", "NOPE=1\n", `config line 1: unknown config key: "NOPE"`},
		{"missing equals", "b.txt", "MQTT_BROKER\n", `invalid config line 1: "MQTT_BROKER"`},
		{"bad int", "c.txt", "\nSTILLNESS_WINDOW=abc\n", `config line 2: invalid STILLNESS_WINDOW "abc"`},
		{"accel range", "d.txt", "IMU_ACCEL_RANGE=4\n", "IMU_ACCEL_RANGE must be 0-3"},
		{"empty broker", "e.txt", "MQTT_BROKER=\n", "MQTT_BROKER is required"},
		{"estimator invalid", "f.txt", "LOW_PASS_ALPHA=0\n", "estimator: low-pass alpha"},
		{"bad yaml", "g.yaml", "estimator: [1, 2\n", "failed to parse config file"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeTempConfig(t, tc.file, tc.contents))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.validate())
}
