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
	"github.com/focuslog/focuslog/internal/web"
)

const daemonChildEnv = "FOCUSLOG_DAEMON_CHILD"

var (
	startDetach bool
	startWeb    bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start tracking the focused window",
	Long: `Start the tracking daemon. It runs in the foreground by default, which suits
systemd user units; --detach starts it in the background and logs to the
configured log file.`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&startDetach, "detach", "d", false, "Run in the background")
	startCmd.Flags().BoolVar(&startWeb, "web", false, "Serve the web API and dashboard")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if startWeb {
		cfg.Web.Enabled = true
	}

	// Check if already running
	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		return fmt.Errorf("daemon is already running (PID: %d)", pid)
	}

	if startDetach && os.Getenv(daemonChildEnv) != "1" {
		// Parent process - fork and exit
		pid, err := daemonize()
		if err != nil {
			return fmt.Errorf("failed to start daemon process: %w", err)
		}
		fmt.Printf("Daemon started successfully (PID: %d)\n", pid)
		if cfg.Web.Enabled {
			fmt.Printf("Web API available at: http://%s\n", cfg.WebAddr())
		}
		fmt.Printf("Logs: %s\n", cfg.Logging.File)
		return nil
	}

	return serve(cfg, dm)
}

// serve runs the tracker until SIGINT or SIGTERM, then flushes and exits.
func serve(cfg *config.Config, dm *daemon.Daemon) error {
	out := os.Stderr
	if os.Getenv(daemonChildEnv) == "1" {
		logFile, err := logging.OpenFile(cfg.Logging.File)
		if err != nil {
			return err
		}
		defer logFile.Close()
		out = logFile
	}
	logger := logging.New(cfg.Logging, out)

	logger.Info().
		Str("version", version).
		Str("storage", cfg.Storage.Path).
		Msg("Starting focuslog")
	logger.Debug().Msg(cfg.String())

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// Write PID file
	if err := dm.WritePID(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer func() {
		if err := dm.RemovePID(); err != nil {
			logger.Warn().Err(err).Msg("Failed to remove PID file")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var webServer *web.Server
	if cfg.Web.Enabled {
		webServer = web.NewServer(cfg.WebAddr(), a.engine, a.reporter(), logger)
		go func() {
			if err := webServer.Start(); err != nil {
				logger.Error().Err(err).Msg("Web server error")
			}
		}()
	}

	trackerDone := make(chan error, 1)
	go func() {
		trackerDone <- a.engine.Run(ctx)
	}()

	if err := daemon.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to notify systemd")
	}

	waitForSignals(ctx, a, trackerDone)

	if err := daemon.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to notify systemd")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if webServer != nil {
		if err := webServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Error shutting down web server")
		}
	}

	if err := a.engine.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Final flush failed")
		return err
	}

	logger.Info().Msg("Daemon stopped successfully")
	return nil
}

// waitForSignals blocks until a shutdown signal arrives or the tracker loop
// exits. Pause and resume signals are handled in place.
func waitForSignals(ctx context.Context, a *app, trackerDone <-chan error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, append([]os.Signal{syscall.SIGINT, syscall.SIGTERM}, controlSignals()...)...)
	defer signal.Stop(sigChan)

	for {
		select {
		case err := <-trackerDone:
			if err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error().Err(err).Msg("Tracker error")
			}
			return

		case sig := <-sigChan:
			if !handleControl(ctx, a, sig) {
				a.logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
				return
			}
		}
	}
}

// watchControlSignals applies pause and resume signals until ctx is done.
func watchControlSignals(ctx context.Context, a *app) {
	sigs := controlSignals()
	if len(sigs) == 0 {
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, sigs...)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			handleControl(ctx, a, sig)
		}
	}
}

func controlSignals() []os.Signal {
	var sigs []os.Signal
	for _, s := range []os.Signal{daemon.PauseSignal, daemon.ResumeSignal} {
		if s != nil {
			sigs = append(sigs, s)
		}
	}
	return sigs
}

// handleControl reports whether sig was a pause or resume request.
func handleControl(ctx context.Context, a *app, sig os.Signal) bool {
	switch {
	case daemon.PauseSignal != nil && sig == daemon.PauseSignal:
		if err := a.engine.Pause(); err != nil {
			a.logger.Error().Err(err).Msg("Flush on pause failed")
		}
		return true
	case daemon.ResumeSignal != nil && sig == daemon.ResumeSignal:
		a.engine.Resume(ctx)
		return true
	}
	return false
}
