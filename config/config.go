// Package config defines the configuration of the spc tool.
package config

import (
	"github.com/pkg/errors"

	"go.viam.com/spc/device"
	"go.viam.com/spc/logging"
)

// Compression names how batch files are compressed.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// Config holds the tool's settings.
type Config struct {
	// Device is where batches are scanned, e.g. "cpu" or "accel:0".
	Device string `json:"device"`
	// Compression is used when writing batch files.
	Compression string `json:"compression"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `json:"log_level"`
	// Verify makes commands recompute and cross check indices read from files.
	Verify bool `json:"verify"`
}

// Default returns the settings used when no config file is given.
func Default() *Config {
	return &Config{
		Device:      "cpu",
		Compression: CompressionZstd,
		LogLevel:    "info",
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate() error {
	if _, err := device.Parse(c.Device); err != nil {
		return errors.Wrap(err, "invalid device")
	}
	switch c.Compression {
	case "", CompressionNone, CompressionZstd:
	default:
		return errors.Errorf("unknown compression %q", c.Compression)
	}
	if c.LogLevel != "" {
		if _, err := logging.LevelFromString(c.LogLevel); err != nil {
			return errors.Wrap(err, "invalid log_level")
		}
	}
	return nil
}

// ParsedDevice returns the configured device.
func (c *Config) ParsedDevice() (device.Device, error) {
	return device.Parse(c.Device)
}

// ParsedLevel returns the configured log level, INFO when unset.
func (c *Config) ParsedLevel() (logging.Level, error) {
	if c.LogLevel == "" {
		return logging.INFO, nil
	}
	return logging.LevelFromString(c.LogLevel)
}
