package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/chaz8081/epaper-writer/internal/config"
)

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write the default config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := config.WriteDefault()
		if err != nil {
			return err
		}
		if path == "" {
			fmt.Printf("Config already exists at %s\n", config.DefaultConfigPath())
			return nil
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return nil
	},
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults. A non-empty
// levelOverride replaces the configured log level.
func loadConfig(path, levelOverride string) (*config.Config, error) {
	cfg, err := readConfig(path)
	if err != nil {
		return nil, err
	}
	if levelOverride != "" {
		cfg.LogLevel = levelOverride
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func readConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		return cfg, nil
	}

	return config.Default(), nil
}

// configureLogger installs a text slog handler at the configured level.
func configureLogger(level string) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(level),
	})
	slog.SetDefault(slog.New(handler))
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	greeting := "off"
	if cfg.Greeting.Enabled {
		greeting = "from " + cfg.Greeting.Origin
	}
	fmt.Println("=== epaper-writer ===")
	fmt.Printf("  Target:    %s\n", cfg.Target.Name)
	fmt.Printf("  Service:   %s\n", cfg.Target.ServiceUUID)
	fmt.Printf("  Char:      %s\n", cfg.Target.CharacteristicUUID)
	fmt.Printf("  Greeting:  %s\n", greeting)
	fmt.Printf("  Log:       %s\n", cfg.LogLevel)
	fmt.Println("=====================")
}
