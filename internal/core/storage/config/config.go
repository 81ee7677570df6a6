// Package config defines the storage topology configuration: which
// physical backends exist, which replicas the multiplexer fans out to,
// and where the sync queue lives.
package config

import (
	"fmt"
	"time"
)

type Config struct {
	Backends  map[string]BackendConfig `yaml:"backends"`
	Replicas  []ReplicaConfig          `yaml:"replicas"`
	SyncQueue SyncQueueConfig          `yaml:"sync_queue"`
	Scrub     ScrubConfig              `yaml:"scrub"`
	Telemetry TelemetryConfig          `yaml:"telemetry"`
}

type BackendConfig struct {
	Type     string         `yaml:"type"` // "mongo", "postgres", "memory"
	Mongo    MongoConfig    `yaml:"mongo"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type MongoConfig struct {
	URI          string `yaml:"uri"`
	DatabaseName string `yaml:"database_name"`
	Collection   string `yaml:"collection"`
}

type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// ReplicaConfig binds a stable store id to a backend. Order matters:
// the healer reads replicas in this order when locating a source copy.
type ReplicaConfig struct {
	ID      string `yaml:"id"`
	Backend string `yaml:"backend"`
}

type SyncQueueConfig struct {
	// Backend names the backend hosting the queue. Must be of type
	// postgres or memory.
	Backend string `yaml:"backend"`
}

type ScrubConfig struct {
	Action string `yaml:"action"` // "report_only", "repair"
}

type TelemetryConfig struct {
	// SampleRate is the probability in [0, 1] that an operation is
	// logged verbosely.
	SampleRate float64 `yaml:"sample_rate"`

	// Seed makes the sampling sequence reproducible.
	Seed uint64 `yaml:"seed"`
}

// DefaultConfig returns a standalone in-memory topology: two replicas
// and the queue all in process. Real deployments override this with
// mongo/postgres backends.
func DefaultConfig() Config {
	return Config{
		Backends: map[string]BackendConfig{
			"local": {Type: "memory"},
		},
		Replicas: []ReplicaConfig{
			{ID: "primary", Backend: "local"},
			{ID: "secondary", Backend: "local"},
		},
		SyncQueue: SyncQueueConfig{Backend: "local"},
		Scrub:     ScrubConfig{Action: "repair"},
		Telemetry: TelemetryConfig{SampleRate: 0.01, Seed: 1},
	}
}

// ApplyDefaults fills in missing values with defaults.
func (c *Config) ApplyDefaults() {
	if len(c.Backends) == 0 && len(c.Replicas) == 0 {
		*c = DefaultConfig()
		return
	}
	if c.Scrub.Action == "" {
		c.Scrub.Action = "report_only"
	}
	if c.Telemetry.SampleRate == 0 {
		c.Telemetry.SampleRate = 0.01
	}
	if c.Telemetry.Seed == 0 {
		c.Telemetry.Seed = 1
	}
}

// Validate validates the topology.
func (c *Config) Validate() error {
	if len(c.Replicas) == 0 {
		return fmt.Errorf("at least one replica is required")
	}
	seen := make(map[string]bool)
	for _, r := range c.Replicas {
		if r.ID == "" {
			return fmt.Errorf("replica id cannot be empty")
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate replica id: %s", r.ID)
		}
		seen[r.ID] = true
		if _, ok := c.Backends[r.Backend]; !ok {
			return fmt.Errorf("replica %s references unknown backend: %s", r.ID, r.Backend)
		}
	}
	for name, b := range c.Backends {
		switch b.Type {
		case "mongo":
			if b.Mongo.URI == "" {
				return fmt.Errorf("backend %s: mongo uri is required", name)
			}
			if b.Mongo.DatabaseName == "" {
				return fmt.Errorf("backend %s: mongo database_name is required", name)
			}
		case "postgres":
			if b.Postgres.DSN == "" {
				return fmt.Errorf("backend %s: postgres dsn is required", name)
			}
		case "memory":
		default:
			return fmt.Errorf("backend %s: unsupported type: %s", name, b.Type)
		}
	}
	qb, ok := c.Backends[c.SyncQueue.Backend]
	if !ok {
		return fmt.Errorf("sync_queue references unknown backend: %s", c.SyncQueue.Backend)
	}
	if qb.Type == "mongo" {
		return fmt.Errorf("sync_queue backend must be postgres or memory, got mongo")
	}
	if c.Scrub.Action != "report_only" && c.Scrub.Action != "repair" {
		return fmt.Errorf("invalid scrub action: %s (must be report_only or repair)", c.Scrub.Action)
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry sample_rate must be in [0, 1], got %v", c.Telemetry.SampleRate)
	}
	return nil
}
