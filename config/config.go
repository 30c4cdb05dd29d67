// Package config loads the runtime tunables of the orchestrator core from a
// YAML document, applying defaults for anything left unset.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config collects the tunables the orchestrator components need at wiring
// time. All durations are expressed in seconds in the YAML source and
// converted to time.Duration on Load.
type Config struct {
	// Artifacts configures the artifact store.
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	// Signals configures the signal engine.
	Signals SignalsConfig `yaml:"signals"`
	// Tasks configures the background task manager.
	Tasks TasksConfig `yaml:"tasks"`
	// Sessions configures the session manager.
	Sessions SessionsConfig `yaml:"sessions"`
	// Attractors configures the convergence loop.
	Attractors AttractorsConfig `yaml:"attractors"`
	// Redis configures the broadcast bridge's Redis connection.
	Redis RedisConfig `yaml:"redis"`
	// Mongo configures the optional Mongo-backed durability layer shared by
	// the artifact metadata port, the session mirror, and the operation log.
	Mongo MongoConfig `yaml:"mongo"`
	// Telemetry selects the logging/metrics/tracing backend.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ArtifactsConfig struct {
	// ProjectPath is the filesystem root under which `.codi/artifacts` is
	// written. Empty disables filesystem persistence.
	ProjectPath string `yaml:"project_path"`
}

type SignalsConfig struct {
	// HistorySize bounds the number of SignalEvents retained globally.
	HistorySize int `yaml:"history_size"`
}

type TasksConfig struct {
	// OutputTruncateChars bounds the size of stored task output/error text.
	OutputTruncateChars int `yaml:"output_truncate_chars"`
}

type SessionsConfig struct {
	// MaxMessages bounds the number of messages retained per session.
	MaxMessages int `yaml:"max_messages"`
	// TTLSeconds is how long an idle, childless session survives before pruning.
	TTLSeconds int `yaml:"ttl_seconds"`
}

type AttractorsConfig struct {
	// TimeoutSeconds bounds a single RunUntilSatisfied call.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// PollIntervalSeconds is the delay between convergence iterations.
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	// MaxIterations bounds the number of convergence iterations.
	MaxIterations int `yaml:"max_iterations"`
}

type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string `yaml:"addr"`
	// StreamMaxLen bounds the number of entries kept per broadcast stream.
	StreamMaxLen int `yaml:"stream_max_len"`
}

// MongoConfig configures the optional Mongo-backed write-behind layer. An
// empty URI disables Mongo entirely; every component that accepts a Mongo
// port falls back to in-process-only behavior.
type MongoConfig struct {
	// URI is the MongoDB connection string.
	URI string `yaml:"uri"`
	// Database is the database name used by every Mongo-backed adapter.
	Database string `yaml:"database"`
}

// TelemetryConfig selects the logging/metrics/tracing implementation wired
// into every component's Logger/Metrics/Tracer options.
type TelemetryConfig struct {
	// Provider is "noop" (default) or "clue".
	Provider string `yaml:"provider"`
}

// Defaults returns a Config populated with the orchestrator's default tunables.
func Defaults() Config {
	return Config{
		Signals: SignalsConfig{HistorySize: 1000},
		Tasks:   TasksConfig{OutputTruncateChars: 1000},
		Sessions: SessionsConfig{
			MaxMessages: 200,
			TTLSeconds:  int((24 * time.Hour).Seconds()),
		},
		Attractors: AttractorsConfig{
			TimeoutSeconds:      300,
			PollIntervalSeconds: 1,
			MaxIterations:       100,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			StreamMaxLen: 10_000,
		},
		Telemetry: TelemetryConfig{Provider: "noop"},
	}
}

// Load reads a YAML config file at path, merging it over Defaults(). A
// missing file is not an error; Load returns the defaults unmodified.
func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// PollInterval returns the attractor poll interval as a time.Duration.
func (c AttractorsConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// Timeout returns the attractor convergence timeout as a time.Duration.
func (c AttractorsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TTL returns the session idle TTL as a time.Duration.
func (c SessionsConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}
