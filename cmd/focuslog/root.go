package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/focuslog/focuslog/internal/config"
	"github.com/focuslog/focuslog/internal/logging"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"

	configPath string
)

const appName = "focuslog"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "focuslog - per-window focus time tracker",
	Long: `focuslog samples the focused desktop window once a second and keeps a
per-day total of the time spent under each window title in a JSON document.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: "+config.DataDir()+"/config.yaml)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and builds a console logger for short-lived commands.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := logging.New(cfg.Logging, os.Stderr)
	return cfg, logger, nil
}
