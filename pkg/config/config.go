// Package config loads the optional relayd configuration file. All
// values have working defaults; the file only overrides board identity
// or paths for non-stock setups.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/schaapsound/relayd/pkg/daemon"
	"github.com/schaapsound/relayd/pkg/device"
)

// DefaultDir is the watched directory when none is configured.
const DefaultDir = "/tmp/io"

// Duration wraps time.Duration for YAML strings like "100ms".
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the on-disk configuration schema.
type Config struct {
	Device struct {
		VendorID  uint16   `yaml:"vendor_id"`
		ProductID uint16   `yaml:"product_id"`
		Endpoint  int      `yaml:"endpoint"`
		Timeout   Duration `yaml:"timeout"`
	} `yaml:"device"`

	Watch struct {
		Dir string `yaml:"dir"`
	} `yaml:"watch"`

	Daemon struct {
		RetryDelay Duration `yaml:"retry_delay"`
	} `yaml:"daemon"`

	// Journal is the path of the CBOR event journal; empty disables it.
	Journal string `yaml:"journal"`
}

// Default returns the stock configuration.
func Default() Config {
	var c Config
	dev := device.DefaultConfig()
	c.Device.VendorID = dev.VendorID
	c.Device.ProductID = dev.ProductID
	c.Device.Endpoint = dev.Endpoint
	c.Device.Timeout = Duration(dev.Timeout)
	c.Watch.Dir = DefaultDir
	c.Daemon.RetryDelay = Duration(daemon.DefaultRetryDelay)
	return c
}

// Load reads the YAML file at path over the defaults. A missing file
// is an error; call Default directly when no file is configured.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.Watch.Dir == "" {
		return fmt.Errorf("watch.dir must not be empty")
	}
	if c.Device.Endpoint <= 0 {
		return fmt.Errorf("device.endpoint must be positive")
	}
	if c.Daemon.RetryDelay <= 0 {
		return fmt.Errorf("daemon.retry_delay must be positive")
	}
	return nil
}

// DeviceConfig converts the schema into the device package's config.
func (c *Config) DeviceConfig() device.Config {
	return device.Config{
		VendorID:  c.Device.VendorID,
		ProductID: c.Device.ProductID,
		Endpoint:  c.Device.Endpoint,
		Timeout:   time.Duration(c.Device.Timeout),
	}
}

// DaemonConfig converts the schema into the daemon package's config.
func (c *Config) DaemonConfig() daemon.Config {
	return daemon.Config{RetryDelay: time.Duration(c.Daemon.RetryDelay)}
}
