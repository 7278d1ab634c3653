// Package config loads the nodetree configuration file.
//
// Files are YAML and decoded strictly: unknown fields are rejected so typos
// surface as errors instead of silently falling back to defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Tracing exporters.
const (
	TracingNone   = "none"
	TracingStdout = "stdout"
)

// Config is the full configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StorageConfig selects and locates the persistent store.
type StorageConfig struct {
	// Backend is "sqlite", "badger" or "memory".
	Backend string `yaml:"backend"`

	// Path is the SQLite file or the Badger directory.
	Path string `yaml:"path"`

	// Driver is the SQLite driver: "sqlite3" (cgo) or "sqlite" (pure Go).
	Driver string `yaml:"driver"`
}

// HTTPConfig configures the serve command.
type HTTPConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// RateLimit is requests per second across all clients. Zero disables
	// rate limiting.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryConfig configures tracing.
type TelemetryConfig struct {
	Tracing string `yaml:"tracing"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Backend: BackendSQLite,
			Path:    "nodetree.db",
			Driver:  "sqlite3",
		},
		HTTP: HTTPConfig{
			Addr:           ":3000",
			RequestTimeout: 10 * time.Second,
			Burst:          20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Tracing: TracingNone,
		},
	}
}

// Load reads the file at path over Default. Fields absent from the file
// keep their default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks enumerations and ranges.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the sqlite backend")
		}
		if c.Storage.Driver != "sqlite3" && c.Storage.Driver != "sqlite" {
			return fmt.Errorf("storage.driver must be sqlite3 or sqlite, got %q", c.Storage.Driver)
		}
	case BackendBadger:
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the badger backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("storage.backend must be sqlite, badger or memory, got %q", c.Storage.Backend)
	}

	if c.HTTP.RequestTimeout <= 0 {
		return fmt.Errorf("http.request_timeout must be positive, got %s", c.HTTP.RequestTimeout)
	}
	if c.HTTP.RateLimit < 0 {
		return fmt.Errorf("http.rate_limit must not be negative, got %v", c.HTTP.RateLimit)
	}
	if c.HTTP.RateLimit > 0 && c.HTTP.Burst < 1 {
		return fmt.Errorf("http.burst must be at least 1 when rate limiting, got %d", c.HTTP.Burst)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	switch c.Telemetry.Tracing {
	case TracingNone, TracingStdout:
	default:
		return fmt.Errorf("telemetry.tracing must be none or stdout, got %q", c.Telemetry.Tracing)
	}
	return nil
}
