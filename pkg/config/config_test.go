package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("database", "", "")
	fs.String("policy", "", "")
	fs.Int("default-limit", 0, "")
	fs.String("transport", "", "")
	fs.Int("port", 0, "")
	fs.Duration("request-timeout", 0, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", testFlags())
	require.NoError(t, err)

	assert.Equal(t, New(), cfg)
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.ReadOnly())
	assert.Zero(t, cfg.RequestTimeout, "requests have no deadline by default")
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcpserver.yaml")
	content := `
database: /data/employees.db
policy: readonly
default_limit: 25
request_timeout: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/data/employees.db", cfg.Database)
	assert.Equal(t, PolicyReadOnly, cfg.Policy)
	assert.True(t, cfg.ReadOnly())
	assert.Equal(t, 25, cfg.DefaultLimit)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, TransportStdio, cfg.TransportType)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcpserver.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_limit: 25\n"), 0o644))

	t.Setenv("MCPSERVER_DEFAULT_LIMIT", "7")
	t.Setenv("MCPSERVER_POLICY", "readonly")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.DefaultLimit)
	assert.Equal(t, PolicyReadOnly, cfg.Policy)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("MCPSERVER_DEFAULT_LIMIT", "7")

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--default-limit", "3", "--request-timeout", "2s", "--database", "x.db"}))

	cfg, err := Load("", fs)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.DefaultLimit)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "x.db", cfg.Database)
	// unchanged flags keep lower layers
	assert.Equal(t, 8080, cfg.HTTPPort)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults",
			modify: func(*Config) {},
		},
		{
			name:    "unknown policy",
			modify:  func(c *Config) { c.Policy = "yolo" },
			wantErr: "invalid policy",
		},
		{
			name:    "unknown transport",
			modify:  func(c *Config) { c.TransportType = "carrier-pigeon" },
			wantErr: "invalid transport type",
		},
		{
			name:    "port out of range",
			modify:  func(c *Config) { c.HTTPPort = 70000 },
			wantErr: "invalid port",
		},
		{
			name:   "zero request timeout disables the deadline",
			modify: func(c *Config) { c.RequestTimeout = 0 },
		},
		{
			name:    "negative request timeout",
			modify:  func(c *Config) { c.RequestTimeout = -time.Second },
			wantErr: "invalid request timeout",
		},
		{
			name:    "bad log level",
			modify:  func(c *Config) { c.LogLevel = "loud" },
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
