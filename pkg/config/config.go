package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	LogLevel logrus.Level `yaml:"log_level" json:"log_level"`

	// ScanTimeout bounds how long a device request scans for a matching advertisement.
	ScanTimeout time.Duration `yaml:"scan_timeout" json:"scan_timeout" default:"10s"`

	// ConnectTimeout bounds dialing and profile discovery.
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout" default:"30s"`

	// NotificationQueueLimit caps buffered notifications per characteristic; 0 means unbounded.
	NotificationQueueLimit int `yaml:"notification_queue_limit" json:"notification_queue_limit" default:"0"`

	// DefaultEvent is the gesture event used when a device request names none.
	DefaultEvent string `yaml:"default_event" json:"default_event" default:"click"`

	// Simulate selects the in-memory Bluetooth stack instead of the host adapter.
	Simulate bool `yaml:"simulate" json:"simulate" default:"false"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{LogLevel: logrus.InfoLevel}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML configuration file on top of the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	var errs []error
	if c.ScanTimeout <= 0 {
		errs = append(errs, fmt.Errorf("scan_timeout must be positive, got %s", c.ScanTimeout))
	}
	if c.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("connect_timeout must be positive, got %s", c.ConnectTimeout))
	}
	if c.NotificationQueueLimit < 0 {
		errs = append(errs, fmt.Errorf("notification_queue_limit must not be negative, got %d", c.NotificationQueueLimit))
	}
	if c.DefaultEvent == "" {
		errs = append(errs, errors.New("default_event must not be empty"))
	}
	return errors.Join(errs...)
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
