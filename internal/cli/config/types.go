// Package config provides configuration management for the LeapDS CLI.
package config

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultJournalPath = ".leapds/journal.db"
	DefaultSourceType  = "duckdb"
	DefaultOutput      = "table"
	DefaultTimeout     = 5 * time.Minute
)

// Output formats accepted by --output.
var OutputFormats = []string{"table", "json"}

// Config holds all CLI configuration options.
type Config struct {
	Engine      EngineConfig `koanf:"engine"`
	JournalPath string       `koanf:"journal_path"`
	Source      SourceConfig `koanf:"source"`
	Verbose     bool         `koanf:"verbose"`
	Output      string       `koanf:"output"`
}

// EngineConfig points the CLI at the DML engine.
type EngineConfig struct {
	Endpoint string            `koanf:"endpoint"`
	Timeout  time.Duration     `koanf:"timeout"`
	Headers  map[string]string `koanf:"headers"`
	// Params are passed through to the bridge and override Timeout and Headers
	Params map[string]any `koanf:"params"`
}

// SourceConfig selects where plan inputs are loaded from.
type SourceConfig struct {
	Type     string         `koanf:"type"`
	Database string         `koanf:"database"`
	Params   map[string]any `koanf:"params"`
}

// BridgeParams merges the typed engine fields with the raw params map.
func (e EngineConfig) BridgeParams() map[string]any {
	params := make(map[string]any, len(e.Params)+2)
	if e.Timeout > 0 {
		params["timeout"] = e.Timeout.String()
	}
	if len(e.Headers) > 0 {
		headers := make(map[string]string, len(e.Headers))
		for k, v := range e.Headers {
			headers[k] = v
		}
		params["headers"] = headers
	}
	for k, v := range e.Params {
		params[k] = v
	}
	return params
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Output {
	case "table", "json":
	default:
		return fmt.Errorf("unknown output format %q (expected one of %v)", c.Output, OutputFormats)
	}
	if c.Engine.Timeout < 0 {
		return fmt.Errorf("engine.timeout must not be negative")
	}
	if c.Source.Type == "" {
		return fmt.Errorf("source.type is required")
	}
	return nil
}

// RequireEngine reports a usable error when no engine endpoint is configured.
func (c *Config) RequireEngine() error {
	if c.Engine.Endpoint == "" {
		return fmt.Errorf("no engine endpoint configured\nHint: set engine.endpoint in leapds.yaml, LEAPDS_ENGINE_ENDPOINT, or --endpoint")
	}
	return nil
}
