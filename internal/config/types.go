// Package config holds the osqhelper configuration shared by the CLI, the
// language server and the HTTP API.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/grr-sub002/pkg/schema"
)

// ServeConfig holds settings for the HTTP API server.
type ServeConfig struct {
	Addr string `koanf:"addr"`
}

// Config is the complete osqhelper configuration.
type Config struct {
	SchemaVersion string        `koanf:"schema_version"`
	SchemaPath    string        `koanf:"schema_path"` // external schema file, overrides the bundled one
	Platform      string        `koanf:"platform"`
	Limit         int           `koanf:"limit"`
	Debounce      time.Duration `koanf:"debounce"`
	Output        string        `koanf:"output"`
	LogLevel      string        `koanf:"log_level"`
	Verbose       bool          `koanf:"verbose"`
	Watch         bool          `koanf:"watch"`
	Serve         ServeConfig   `koanf:"serve"`
}

// Validate checks values that would otherwise fail later in confusing ways.
func (c *Config) Validate() error {
	if _, err := schema.ParsePlatform(c.Platform); err != nil {
		return fmt.Errorf("platform: %w", err)
	}
	if c.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", c.Limit)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative, got %s", c.Debounce)
	}
	if !validOutputs[c.Output] {
		return fmt.Errorf("unknown output %q (want auto, text, markdown or json)", c.Output)
	}
	if _, ok := logLevels[strings.ToLower(c.LogLevel)]; !ok {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if c.SchemaPath == "" && c.SchemaVersion == "" {
		return fmt.Errorf("schema_version is required when schema_path is empty")
	}
	return nil
}

// TargetPlatform returns the parsed target platform.
func (c *Config) TargetPlatform() schema.Platform {
	p, _ := schema.ParsePlatform(c.Platform)
	return p
}

// SlogLevel returns the configured log level. Verbose forces debug.
func (c *Config) SlogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	if l, ok := logLevels[strings.ToLower(c.LogLevel)]; ok {
		return l
	}
	return slog.LevelInfo
}

// OpenIndex loads the schema index the configuration points at.
func (c *Config) OpenIndex() (*schema.Index, error) {
	return schema.Open(c.SchemaVersion, c.SchemaPath)
}

var validOutputs = map[string]bool{
	OutputAuto: true, OutputText: true, OutputMarkdown: true, OutputJSON: true,
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}
