package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DataDir is where the usage document, database and config file live.
func DataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "focuslog")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "focuslog")
	}
	return "."
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	dir := DataDir()

	// Storage defaults
	v.SetDefault("storage.path", filepath.Join(dir, "usage.json"))
	v.SetDefault("storage.retention_days", 0)

	// Database defaults
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.path", filepath.Join(dir, "focuslog.db"))

	// Tracker defaults
	v.SetDefault("tracker.poll_interval", "1s")
	v.SetDefault("tracker.flush_interval", "60s")
	v.SetDefault("tracker.probe_timeout", "500ms")
	v.SetDefault("tracker.rollover_at_midnight", false)

	// Daemon defaults
	v.SetDefault("daemon.pid_file", filepath.Join(os.TempDir(), fmt.Sprintf("focuslog-%d.pid", uid())))

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", filepath.Join(os.TempDir(), fmt.Sprintf("focuslog-%d.log", uid())))

	// Web defaults
	v.SetDefault("web.enabled", false)
	v.SetDefault("web.host", "localhost")
	v.SetDefault("web.port", 10000+uid()%50000) // per-user port
}
