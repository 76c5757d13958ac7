package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/chaz8081/epaper-writer/internal/ble"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "ESP32 E-paper Service", cfg.Target.Name)
	assert.Equal(t, "6E400001-B5A3-F393-E0A9-E50E24DCCA9E", cfg.Target.ServiceUUID)
	assert.Equal(t, "6E400002-B5A3-F393-E0A9-E50E24DCCA9E", cfg.Target.CharacteristicUUID)
	assert.True(t, cfg.Greeting.Enabled, "Greeting.Enabled should default to true")
	assert.Equal(t, "iPhone", cfg.Greeting.Origin)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad(t *testing.T) {
	path := writeConfigFile(t, `
target:
  name: "Desk Display"
  service_uuid: "6e400001-b5a3-f393-e0a9-e50e24dcca9e"
greeting:
  enabled: false
  origin: laptop
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Desk Display", cfg.Target.Name)
	assert.Equal(t, "6e400001-b5a3-f393-e0a9-e50e24dcca9e", cfg.Target.ServiceUUID)
	// Not set in the file, so the default must survive.
	assert.Equal(t, ble.CharacteristicUUID, cfg.Target.CharacteristicUUID)
	assert.False(t, cfg.Greeting.Enabled)
	assert.Equal(t, "laptop", cfg.Greeting.Origin)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "target: [unterminated")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty target name",
			modify:  func(c *Config) { c.Target.Name = "" },
			wantErr: true,
		},
		{
			name:    "short service uuid",
			modify:  func(c *Config) { c.Target.ServiceUUID = "180d" },
			wantErr: true,
		},
		{
			name:    "32-bit characteristic uuid",
			modify:  func(c *Config) { c.Target.CharacteristicUUID = "6e400002" },
			wantErr: true,
		},
		{
			name:    "undashed 128-bit uuid",
			modify:  func(c *Config) { c.Target.ServiceUUID = "6E400001B5A3F393E0A9E50E24DCCA9E" },
			wantErr: true,
		},
		{
			name:    "malformed characteristic uuid",
			modify:  func(c *Config) { c.Target.CharacteristicUUID = "not-a-uuid" },
			wantErr: true,
		},
		{
			name:    "non-hex 36-character uuid",
			modify:  func(c *Config) { c.Target.CharacteristicUUID = "ZZ400002-B5A3-F393-E0A9-E50E24DCCA9E" },
			wantErr: true,
		},
		{
			name:    "lower-case uuids",
			modify:  func(c *Config) { c.Target.ServiceUUID = strings.ToLower(c.Target.ServiceUUID) },
			wantErr: false,
		},
		{
			name:    "non-ascii greeting origin",
			modify:  func(c *Config) { c.Greeting.Origin = "iPhöne" },
			wantErr: true,
		},
		{
			name:    "empty origin with greeting enabled",
			modify:  func(c *Config) { c.Greeting.Origin = "" },
			wantErr: true,
		},
		{
			name: "empty origin with greeting disabled",
			modify: func(c *Config) {
				c.Greeting.Enabled = false
				c.Greeting.Origin = ""
			},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "invalid" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWriteDefault_CreatesFile(t *testing.T) {
	// Use a temp dir as fake home to avoid touching real config
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	path, err := WriteDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpHome, ".config", "epaper-writer", "config.yaml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# epaper-writer"), "written config should start with header comment")

	var cfg Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, ble.TargetName, cfg.Target.Name)
}

func TestWriteDefault_NoOpIfExists(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	configDir := filepath.Join(tmpHome, ".config", "epaper-writer")
	require.NoError(t, os.MkdirAll(configDir, 0755))
	existingContent := []byte("log_level: debug\n")
	configPath := filepath.Join(configDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, existingContent, 0644))

	path, err := WriteDefault()
	require.NoError(t, err)
	assert.Empty(t, path, "existing file should not be rewritten")

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, existingContent, data)
}

func TestSessionOptions(t *testing.T) {
	cfg := Default()
	cfg.Target.Name = "Desk Display"
	cfg.Greeting.Enabled = false

	opts := cfg.SessionOptions()

	assert.Equal(t, "Desk Display", opts.Target.Name)
	assert.Equal(t, ble.CharacteristicUUID, opts.Target.CharacteristicUUID)
	assert.False(t, opts.Greeting)
	assert.Equal(t, ble.GreetingOrigin, opts.Origin)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLogLevel(tt.input))
		})
	}
}
