package robot

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/a8m/envsubst"

	"github.com/gwillem/dxlmotion/pkg/register"
)

const DefaultConfigFile = "dxlmotion.json"

// Driver names accepted in Config.Driver.
const (
	DriverFeetech = "feetech"
	DriverFake    = "fake"
)

// Config holds the robot configuration
type Config struct {
	Port      string      `json:"port"`
	BaudRate  int         `json:"baud_rate,omitempty"`
	Driver    string      `json:"driver,omitempty"` // feetech (default) or fake
	SyncHz    float64     `json:"sync_hz,omitempty"`
	TimeoutMs int         `json:"timeout_ms,omitempty"`
	FakeModel int         `json:"fake_model,omitempty"` // model number of fake motors
	Motors    Calibration `json:"motors"`
}

// Timeout returns the per-transaction bus timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Validate checks the configuration for values Open cannot work with.
func (c *Config) Validate() error {
	switch c.Driver {
	case "", DriverFeetech:
		if c.Port == "" {
			return fmt.Errorf("feetech driver needs a port")
		}
	case DriverFake:
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}

	if len(c.Motors) == 0 {
		return fmt.Errorf("no motors configured")
	}
	seen := make(map[int]MotorName, len(c.Motors))
	for name, mc := range c.Motors {
		if mc.ID < 0 || mc.ID > register.MaxID {
			return fmt.Errorf("motor %s: id %d out of range", name, mc.ID)
		}
		if other, dup := seen[mc.ID]; dup {
			return fmt.Errorf("motors %s and %s share id %d", other, name, mc.ID)
		}
		seen[mc.ID] = name
		if mc.RangeMin > mc.RangeMax {
			return fmt.Errorf("motor %s: range_min %d above range_max %d", name, mc.RangeMin, mc.RangeMax)
		}
	}
	return nil
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file. ${VAR} references
// are expanded from the environment before decoding.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := envsubst.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the config file at path exists
func ConfigExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
