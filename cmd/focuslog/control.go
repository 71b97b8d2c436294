package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/focuslog/focuslog/internal/daemon"
	"github.com/focuslog/focuslog/internal/database"
	"github.com/focuslog/focuslog/internal/usage"
	"github.com/focuslog/focuslog/pkg/detector"
	"github.com/focuslog/focuslog/pkg/utils"
	"github.com/focuslog/focuslog/pkg/window"
)

var errorsLimit int

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the tracking daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return signalDaemon(nil, "Stopping", "Daemon stopped")
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause tracking; the open session is closed and saved",
	RunE: func(cmd *cobra.Command, args []string) error {
		return signalDaemon(daemon.PauseSignal, "Pausing", "Tracking paused")
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume tracking",
	RunE: func(cmd *cobra.Command, args []string) error {
		return signalDaemon(daemon.ResumeSignal, "Resuming", "Tracking resumed")
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status, today's total and the focused window",
	RunE:  runStatus,
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Print the title of the focused window once",
	RunE:  runProbe,
}

var errorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "Show recent tracker errors from the history database",
	RunE:  runErrors,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s version %s\n", appName, version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	errorsCmd.Flags().IntVarP(&errorsLimit, "limit", "n", 20, "Number of entries to show")
	rootCmd.AddCommand(stopCmd, pauseCmd, resumeCmd, statusCmd, probeCmd, errorsCmd, versionCmd)
}

// signalDaemon sends sig to the daemon; a nil sig means stop.
func signalDaemon(sig os.Signal, doing, done string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	dm := daemon.New(cfg.Daemon.PIDFile)

	running, pid, err := dm.IsRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if !running {
		fmt.Println("Daemon is not running")
		return nil
	}

	fmt.Printf("%s daemon (PID: %d)...\n", doing, pid)
	if sig == nil {
		err = dm.Stop()
	} else {
		err = dm.Signal(sig)
	}
	if err != nil {
		if errors.Is(err, daemon.ErrNotRunning) {
			fmt.Println("Daemon is not running")
			return nil
		}
		return err
	}

	fmt.Println(done)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if running {
		green.Printf("Status: Running (PID: %d)\n", pid)
		fmt.Printf("Poll Interval: %v\n", cfg.Tracker.PollInterval)
		fmt.Printf("Flush Interval: %v\n", cfg.Tracker.FlushInterval)
	} else {
		red.Println("Status: Not running")
	}
	fmt.Printf("Usage file: %s\n", cfg.Storage.Path)

	store := usage.NewFileStore(cfg.Storage.Path, logger)
	today := usage.DateKey(time.Now())
	counter := store.Load(today)
	fmt.Printf("Today (%s): %s across %d windows (as of last save)\n",
		today, utils.FormatDuration(counter.Total()), len(counter))

	// Still show current window detection even when not running
	probe, err := detector.New()
	if err != nil {
		fmt.Printf("\nCould not detect current window: %v\n", err)
		return nil
	}
	defer probe.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Tracker.ProbeTimeout)
	defer cancel()

	title, err := window.Title(ctx, probe)
	fmt.Printf("\nCurrent Window (%s):\n", probe.Name())
	switch {
	case err != nil:
		fmt.Printf("  Error: %v\n", err)
	case title == window.NoWindow:
		fmt.Println("  None")
	default:
		fmt.Printf("  %s\n", title)
	}
	return nil
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	probe, err := detector.New()
	if err != nil {
		return err
	}
	defer probe.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Tracker.ProbeTimeout)
	defer cancel()

	title, err := window.Title(ctx, probe)
	if err != nil {
		return fmt.Errorf("%s probe failed: %w", probe.Name(), err)
	}
	fmt.Println(title)
	return nil
}

func runErrors(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled {
		return fmt.Errorf("the history database is disabled (database.enabled=false)")
	}

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Initialize(); err != nil {
		return err
	}

	logs, err := database.NewRepository(db).RecentErrors(errorsLimit)
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		fmt.Println("No errors recorded")
		return nil
	}

	dim := color.New(color.Faint)
	for _, l := range logs {
		dim.Printf("%s ", l.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("[%s] %s\n", l.Component, l.ErrorMsg)
	}
	return nil
}
