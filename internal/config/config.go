package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
	"tinygo.org/x/bluetooth"

	"github.com/chaz8081/epaper-writer/internal/ble"
)

// Config holds all application configuration.
type Config struct {
	Target   TargetConfig   `yaml:"target"`
	Greeting GreetingConfig `yaml:"greeting"`
	LogLevel string         `yaml:"log_level"`
}

// TargetConfig identifies the peripheral and characteristic to write to.
type TargetConfig struct {
	Name               string `yaml:"name"` // exact advertised local name
	ServiceUUID        string `yaml:"service_uuid"`
	CharacteristicUUID string `yaml:"characteristic_uuid"`
}

// GreetingConfig controls the message written right after connecting.
type GreetingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Origin  string `yaml:"origin"` // must be ASCII
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "epaper-writer")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config targeting the ESP32 e-paper display.
func Default() *Config {
	target := ble.DefaultTarget()
	return &Config{
		Target: TargetConfig{
			Name:               target.Name,
			ServiceUUID:        target.ServiceUUID,
			CharacteristicUUID: target.CharacteristicUUID,
		},
		Greeting: GreetingConfig{
			Enabled: true,
			Origin:  ble.GreetingOrigin,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

const defaultHeader = `# epaper-writer configuration
#
# target.name is matched exactly against the advertised local name.
# greeting is written once, right after the characteristic is resolved.

`

// WriteDefault writes the default config to DefaultConfigPath. It returns
// the written path, or "" if a config file already exists.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("checking config file: %w", err)
	}

	body, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultHeader), body...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Target.Name == "" {
		return fmt.Errorf("target.name must not be empty")
	}
	if err := validateUUID128(c.Target.ServiceUUID); err != nil {
		return fmt.Errorf("target.service_uuid %q: %w", c.Target.ServiceUUID, err)
	}
	if err := validateUUID128(c.Target.CharacteristicUUID); err != nil {
		return fmt.Errorf("target.characteristic_uuid %q: %w", c.Target.CharacteristicUUID, err)
	}

	if c.Greeting.Enabled {
		if c.Greeting.Origin == "" {
			return fmt.Errorf("greeting.origin must not be empty when greeting is enabled")
		}
		if _, err := ble.EncodeASCII(c.Greeting.Origin); err != nil {
			return fmt.Errorf("greeting.origin must be ASCII, got %q", c.Greeting.Origin)
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// uuid128Len is the length of the dashed 128-bit form,
// e.g. 6E400001-B5A3-F393-E0A9-E50E24DCCA9E.
const uuid128Len = 36

// validateUUID128 accepts only the full dashed form. Short 16/32-bit forms
// parse, but platforms report discovered UUIDs expanded, so they never match.
func validateUUID128(s string) error {
	if len(s) != uuid128Len {
		return fmt.Errorf("must be a 128-bit UUID in %d-character dashed form", uuid128Len)
	}
	if _, err := bluetooth.ParseUUID(s); err != nil {
		return err
	}
	return nil
}

// SessionOptions converts the config into options for ble.NewSession.
func (c *Config) SessionOptions() ble.SessionOptions {
	opts := ble.DefaultSessionOptions()
	opts.Target = ble.Target{
		Name:               c.Target.Name,
		ServiceUUID:        c.Target.ServiceUUID,
		CharacteristicUUID: c.Target.CharacteristicUUID,
	}
	opts.Greeting = c.Greeting.Enabled
	if c.Greeting.Origin != "" {
		opts.Origin = c.Greeting.Origin
	}
	return opts
}

// ParseLogLevel maps a config log level to a slog.Level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
