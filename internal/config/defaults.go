package config

import (
	"time"

	"github.com/google/grr-sub002/pkg/assist"
	"github.com/google/grr-sub002/pkg/schema"
)

// Output formats.
const (
	OutputAuto     = "auto" // TTY gets text, anything else markdown
	OutputText     = "text"
	OutputMarkdown = "markdown"
	OutputJSON     = "json"
)

// Default configuration values.
const (
	DefaultPlatform  = "linux"
	DefaultDebounce  = 150 * time.Millisecond
	DefaultLogLevel  = "info"
	DefaultServeAddr = ":8088"
)

// Defaults returns the default configuration as a flat koanf key map.
func Defaults() map[string]any {
	return map[string]any{
		"schema_version": schema.DefaultVersion,
		"schema_path":    "",
		"platform":       DefaultPlatform,
		"limit":          assist.DefaultLimit,
		"debounce":       DefaultDebounce.String(),
		"output":         OutputAuto,
		"log_level":      DefaultLogLevel,
		"verbose":        false,
		"watch":          false,
		"serve.addr":     DefaultServeAddr,
	}
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		SchemaVersion: schema.DefaultVersion,
		Platform:      DefaultPlatform,
		Limit:         assist.DefaultLimit,
		Debounce:      DefaultDebounce,
		Output:        OutputAuto,
		LogLevel:      DefaultLogLevel,
		Serve:         ServeConfig{Addr: DefaultServeAddr},
	}
}
