package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/focuslog/focuslog/internal/config"
	"github.com/focuslog/focuslog/internal/daemon"
	"github.com/focuslog/focuslog/internal/logging"
	"github.com/focuslog/focuslog/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Track in this terminal with a live status window",
	RunE:  runUI,
}

func init() {
	rootCmd.AddCommand(uiCmd)
}

func runUI(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dm := daemon.New(cfg.Daemon.PIDFile)
	if running, pid, _ := dm.IsRunning(); running {
		return fmt.Errorf("daemon is already tracking (PID: %d); stop it first", pid)
	}

	// the terminal belongs to the UI, so logs go to the log file
	logFile, err := logging.OpenFile(cfg.Logging.File)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := logging.New(cfg.Logging, logFile)

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := dm.WritePID(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer dm.RemovePID()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go watchControlSignals(ctx, a)
	go func() {
		if err := a.engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("Tracker error")
		}
	}()

	uiErr := tui.Run(ctx, a.engine)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.engine.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("final flush failed: %w", err)
	}
	return uiErr
}
