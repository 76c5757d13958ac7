package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"tinygo.org/x/bluetooth"

	"github.com/chaz8081/epaper-writer/internal/ble"
	"github.com/chaz8081/epaper-writer/internal/console"
)

var noConsole bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the display and write typed lines to it",
	Long: `Powers on the Bluetooth adapter, scans for the display and connects to the
first peripheral whose advertised name matches exactly. Once the writable
characteristic is resolved a greeting is written. Each line read from stdin
is then written to the display; "/scan" restarts discovery while still
unmatched and "/quit" exits.

Writes are confirmed (write-with-response) on macOS and Windows. On Linux the
BlueZ backend has no write requests, so messages go out as unconfirmed write
commands and a peripheral-side failure is not reported.`,
	Args: cobra.NoArgs,
	RunE: runSession,
}

func init() {
	runCmd.Flags().BoolVar(&noConsole, "no-console", false, "do not read messages from stdin; run until interrupted")
}

func runSession(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configPath, logLevel)
	if err != nil {
		return err
	}
	configureLogger(cfg.LogLevel)

	// Arguments validated; runtime errors should not print usage.
	cmd.SilenceUsage = true

	printBanner(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := ble.NewSession(ble.NewTinyGoCentral(bluetooth.DefaultAdapter), cfg.SessionOptions())

	errCh := make(chan error, 1)
	go func() { errCh <- session.Run(ctx) }()

	if !noConsole {
		fmt.Println(`Type a message and press Enter to send it. "/help" lists commands.`)
		go func() {
			if err := console.New(session, os.Stdin, os.Stdout).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("console stopped", "error", err)
			}
			stop()
		}()
	}

	err = <-errCh
	if errors.Is(err, context.Canceled) {
		slog.Info("shutting down", "state", session.State())
		return nil
	}
	return err
}
