package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	storage "blobmux/internal/core/storage/config"
	"blobmux/internal/healer"
)

// Config holds the application configuration
type Config struct {
	Logging LoggingConfig  `yaml:"logging"`
	Storage storage.Config `yaml:"storage"`
	Healer  healer.Config  `yaml:"healer"`
	Events  EventsConfig   `yaml:"events"`
}

// EventsConfig configures the operational event stream.
type EventsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`            // NATS server URL
	Stream        string `yaml:"stream"`         // JetStream stream name
	SubjectPrefix string `yaml:"subject_prefix"` // prepended to event subjects
	Storage       string `yaml:"storage"`        // "memory" or "file"
}

// DefaultEventsConfig returns the default events configuration.
func DefaultEventsConfig() EventsConfig {
	return EventsConfig{
		Enabled:       false,
		URL:           "nats://localhost:4222",
		Stream:        "BLOBMUX",
		SubjectPrefix: "blobmux",
		Storage:       "file",
	}
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.URL == "" {
		return fmt.Errorf("events url is required when events are enabled")
	}
	if c.Storage != "memory" && c.Storage != "file" {
		return fmt.Errorf("invalid events storage: %s (must be memory or file)", c.Storage)
	}
	return nil
}

// LoadConfig loads configuration from dir.
// Order: defaults -> config.yml -> config.local.yml -> Validate.
func LoadConfig(dir string) (*Config, error) {
	cfg := &Config{
		Logging: DefaultLoggingConfig(),
		Storage: storage.DefaultConfig(),
		Healer:  healer.DefaultConfig(),
		Events:  DefaultEventsConfig(),
	}

	if err := loadFile(filepath.Join(dir, "config.yml"), cfg); err != nil {
		return nil, err
	}
	if err := loadFile(filepath.Join(dir, "config.local.yml"), cfg); err != nil {
		return nil, err
	}

	cfg.Logging.ApplyDefaults()
	cfg.Storage.ApplyDefaults()
	cfg.Healer.ApplyDefaults()

	if err := cfg.Logging.Validate(); err != nil {
		return nil, fmt.Errorf("logging config: %w", err)
	}
	if err := cfg.Storage.Validate(); err != nil {
		return nil, fmt.Errorf("storage config: %w", err)
	}
	if err := cfg.Healer.Validate(); err != nil {
		return nil, fmt.Errorf("healer config: %w", err)
	}
	if err := cfg.Events.Validate(); err != nil {
		return nil, fmt.Errorf("events config: %w", err)
	}

	return cfg, nil
}

func loadFile(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, skip
		}
		return fmt.Errorf("reading %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", filename, err)
	}
	return nil
}
