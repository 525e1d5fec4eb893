// Package config provides configuration management for the MCP server.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix for environment variable overrides.
// MCPSERVER_DEFAULT_LIMIT maps to the default_limit key.
const EnvPrefix = "MCPSERVER_"

// Query gate policies.
const (
	PolicyPermissive = "permissive"
	PolicyReadOnly   = "readonly"
)

// Transport types.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config holds all configuration for the MCP server
type Config struct {
	// Store settings
	Database     string `koanf:"database"`
	Policy       string `koanf:"policy"`
	DefaultLimit int    `koanf:"default_limit"`

	// Transport settings
	TransportType string `koanf:"transport"`
	HTTPPort      int    `koanf:"port"`

	// Server settings
	ServerName    string `koanf:"server_name"`
	ServerVersion string `koanf:"server_version"`

	// Timeouts. A zero RequestTimeout means requests have no deadline.
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// HTTP settings
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`

	// Output settings
	LogLevel     string `koanf:"log_level"`
	OutputFormat string `koanf:"output"`
}

// New creates a new configuration with defaults
func New() *Config {
	return &Config{
		Policy:          PolicyPermissive,
		DefaultLimit:    100,
		TransportType:   TransportStdio,
		HTTPPort:        8080,
		ServerName:      "simple-sqlite-mcp-server",
		ServerVersion:   "1.0.0",
		ShutdownTimeout: 5 * time.Second,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		LogLevel:        "info",
		OutputFormat:    "table",
	}
}

func defaults() map[string]any {
	d := New()
	return map[string]any{
		"database":         d.Database,
		"policy":           d.Policy,
		"default_limit":    d.DefaultLimit,
		"transport":        d.TransportType,
		"port":             d.HTTPPort,
		"server_name":      d.ServerName,
		"server_version":   d.ServerVersion,
		"request_timeout":  d.RequestTimeout,
		"shutdown_timeout": d.ShutdownTimeout,
		"read_timeout":     d.ReadTimeout,
		"write_timeout":    d.WriteTimeout,
		"idle_timeout":     d.IdleTimeout,
		"log_level":        d.LogLevel,
		"output":           d.OutputFormat,
	}
}

// Load builds a Config from defaults, an optional YAML file, MCPSERVER_*
// environment variables and explicitly set flags, in increasing precedence.
// Flag names are kebab-case versions of the koanf keys.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Policy {
	case PolicyPermissive, PolicyReadOnly:
	default:
		return fmt.Errorf("invalid policy: %q (must be %q or %q)", c.Policy, PolicyPermissive, PolicyReadOnly)
	}

	switch strings.ToLower(c.TransportType) {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("invalid transport type: %s (must be 'stdio' or 'http')", c.TransportType)
	}

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.HTTPPort)
	}

	if c.RequestTimeout < 0 {
		return fmt.Errorf("invalid request timeout: %v (must be zero or positive)", c.RequestTimeout)
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	return nil
}

// ReadOnly reports whether the query gate only admits SELECT statements.
func (c *Config) ReadOnly() bool {
	return c.Policy == PolicyReadOnly
}

// SlogLevel maps LogLevel onto a slog level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level: %q", c.LogLevel)
	}
	return level, nil
}
