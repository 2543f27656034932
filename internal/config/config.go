package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/inertial_radar/internal/estimator"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string `yaml:"mqtt_broker"`
	MQTTClientIDTracker  string `yaml:"mqtt_client_id_tracker"`
	MQTTClientIDProducer string `yaml:"mqtt_client_id_producer"`
	MQTTClientIDWeb      string `yaml:"mqtt_client_id_web"`
	MQTTClientIDConsole  string `yaml:"mqtt_client_id_console"`
	MQTTClientIDDisplay  string `yaml:"mqtt_client_id_display"`

	// Topics
	TopicOrientation string `yaml:"topic_orientation"`
	TopicMotion      string `yaml:"topic_motion"`
	TopicState       string `yaml:"topic_state"`
	TopicReset       string `yaml:"topic_reset"`

	// IMU Hardware
	IMUSPIDevice string `yaml:"imu_spi_device"`
	IMUCSPin     string `yaml:"imu_cs_pin"`
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte `yaml:"imu_accel_range"`

	// Serial sensor feed
	SerialPort     string `yaml:"serial_port"`
	SerialBaudRate int    `yaml:"serial_baud_rate"`

	// Timing (milliseconds)
	IMUSampleInterval    int `yaml:"imu_sample_interval"`
	StatePublishInterval int `yaml:"state_publish_interval"`
	ConsoleLogInterval   int `yaml:"console_log_interval"`

	// Mock producer
	MockNoise float64 `yaml:"mock_noise"`

	// Web Server
	WebServerPort int    `yaml:"web_server_port"`
	WebStaticDir  string `yaml:"web_static_dir"`

	// Display
	DisplayI2CAddr        uint16  `yaml:"display_i2c_addr"`
	DisplayUpdateInterval int     `yaml:"display_update_interval"` // milliseconds
	DisplayRangeMeters    float64 `yaml:"display_range_meters"`    // radar radius

	// Dead-reckoning tunables
	Estimator estimator.Config `yaml:"estimator"`
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a configuration usable against a local broker.
func Default() Config {
	return Config{
		MQTTBroker:            "tcp://localhost:1883",
		MQTTClientIDTracker:   "radar-tracker",
		MQTTClientIDProducer:  "radar-producer",
		MQTTClientIDWeb:       "radar-web",
		MQTTClientIDConsole:   "radar-console",
		MQTTClientIDDisplay:   "radar-display",
		TopicOrientation:      "radar/orientation",
		TopicMotion:           "radar/motion",
		TopicState:            "radar/state",
		TopicReset:            "radar/reset",
		IMUSPIDevice:          "/dev/spidev0.0",
		IMUCSPin:              "8",
		SerialBaudRate:        115200,
		IMUSampleInterval:     20,
		StatePublishInterval:  100,
		ConsoleLogInterval:    1000,
		MockNoise:             0.05,
		WebServerPort:         8080,
		WebStaticDir:          "web",
		DisplayI2CAddr:        0x3C,
		DisplayUpdateInterval: 200,
		DisplayRangeMeters:    5,
		Estimator:             estimator.DefaultConfig(),
	}
}

// Load reads the configuration file and returns a Config struct. Files
// ending in .yaml or .yml are YAML; anything else is KEY=VALUE lines.
// Unset values keep their defaults.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		if err := cfg.loadYAML(configPath); err != nil {
			return nil, err
		}
	default:
		if err := cfg.loadKeyValue(configPath); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) loadYAML(configPath string) error {
	b, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) loadKeyValue(configPath string) error {
	file, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := c.setValue(key, value); err != nil {
			return fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	e := &c.Estimator

	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_TRACKER":
		c.MQTTClientIDTracker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_ORIENTATION":
		c.TopicOrientation = value
	case "TOPIC_MOTION":
		c.TopicMotion = value
	case "TOPIC_STATE":
		c.TopicState = value
	case "TOPIC_RESET":
		c.TopicReset = value

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)

	// Serial
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		return setInt(&c.SerialBaudRate, key, value)

	// Timing
	case "IMU_SAMPLE_INTERVAL":
		return setInt(&c.IMUSampleInterval, key, value)
	case "STATE_PUBLISH_INTERVAL":
		return setInt(&c.StatePublishInterval, key, value)
	case "CONSOLE_LOG_INTERVAL":
		return setInt(&c.ConsoleLogInterval, key, value)

	case "MOCK_NOISE":
		return setFloat(&c.MockNoise, key, value)

	// Web Server
	case "WEB_SERVER_PORT":
		return setInt(&c.WebServerPort, key, value)
	case "WEB_STATIC_DIR":
		c.WebStaticDir = value

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		return setInt(&c.DisplayUpdateInterval, key, value)
	case "DISPLAY_RANGE_METERS":
		return setFloat(&c.DisplayRangeMeters, key, value)

	// Estimator
	case "CALIBRATION_SAMPLES":
		return setInt(&e.CalibrationSamples, key, value)
	case "LOW_PASS_ALPHA":
		return setFloat(&e.LowPassAlpha, key, value)
	case "DEAD_ZONE_HORIZONTAL":
		return setFloat(&e.DeadZoneHorizontal, key, value)
	case "DEAD_ZONE_VERTICAL":
		return setFloat(&e.DeadZoneVertical, key, value)
	case "STILLNESS_WINDOW":
		return setInt(&e.StillnessWindow, key, value)
	case "STILLNESS_VARIANCE":
		return setFloat(&e.StillnessVariance, key, value)
	case "STILLNESS_ACCEL":
		return setFloat(&e.StillnessAccel, key, value)
	case "ZUPT_VELOCITY":
		return setFloat(&e.ZUPTVelocity, key, value)
	case "ZUPT_ACCEL":
		return setFloat(&e.ZUPTAccel, key, value)
	case "VELOCITY_DAMPING":
		return setFloat(&e.Damping, key, value)
	case "MAX_DELTA_SECONDS":
		return setFloat(&e.MaxDeltaSeconds, key, value)
	case "TRAIL_CAPACITY":
		return setInt(&e.TrailCapacity, key, value)
	case "HEIGHT_CAPACITY":
		return setInt(&e.HeightCapacity, key, value)
	case "TRAIL_INTERVAL_MS":
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		e.TrailIntervalMs = v
	case "GRAVITY":
		return setFloat(&e.Gravity, key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func setInt(dst *int, key, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = v
	return nil
}

func setFloat(dst *float64, key, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = v
	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicOrientation == "" || c.TopicMotion == "" || c.TopicState == "" || c.TopicReset == "" {
		return fmt.Errorf("TOPIC_ORIENTATION, TOPIC_MOTION, TOPIC_STATE and TOPIC_RESET are required")
	}
	if c.IMUAccelRange > 3 {
		return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3, got %d", c.IMUAccelRange)
	}
	if c.IMUSampleInterval <= 0 {
		return fmt.Errorf("IMU_SAMPLE_INTERVAL must be > 0")
	}
	if c.StatePublishInterval <= 0 {
		return fmt.Errorf("STATE_PUBLISH_INTERVAL must be > 0")
	}
	if c.ConsoleLogInterval <= 0 {
		return fmt.Errorf("CONSOLE_LOG_INTERVAL must be > 0")
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be > 0")
	}
	if c.DisplayRangeMeters <= 0 {
		return fmt.Errorf("DISPLAY_RANGE_METERS must be > 0")
	}
	if c.WebServerPort <= 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", c.WebServerPort)
	}
	if err := c.Estimator.Validate(); err != nil {
		return fmt.Errorf("estimator: %w", err)
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
