package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	MinPollInterval = 100 * time.Millisecond
	MaxPollInterval = 60 * time.Second
)

// Config holds all application configuration
type Config struct {
	// Usage document configuration
	Storage StorageConfig `mapstructure:"storage"`

	// Session history database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// Tracker configuration
	Tracker TrackerConfig `mapstructure:"tracker"`

	// Daemon configuration
	Daemon DaemonConfig `mapstructure:"daemon"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`

	// Web server configuration
	Web WebConfig `mapstructure:"web"`
}

// StorageConfig holds usage document configuration
type StorageConfig struct {
	Path          string `mapstructure:"path"`           // JSON document holding per-day totals
	RetentionDays int    `mapstructure:"retention_days"` // 0 keeps every day
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"` // Path to SQLite database file
}

// TrackerConfig holds tracking behavior configuration
type TrackerConfig struct {
	PollInterval       time.Duration `mapstructure:"poll_interval"`  // How often to check focused window
	FlushInterval      time.Duration `mapstructure:"flush_interval"` // How often totals are written to disk
	ProbeTimeout       time.Duration `mapstructure:"probe_timeout"`  // Deadline for one window lookup
	RolloverAtMidnight bool          `mapstructure:"rollover_at_midnight"`
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `mapstructure:"pid_file"` // Path to PID file for daemon management
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
	File   string `mapstructure:"file"`   // used when running detached
}

// WebConfig holds web server configuration
type WebConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"` // Host to bind web server to
	Port    int    `mapstructure:"port"` // Port for web server
}

// Default returns a Config with sensible default values
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads configuration from defaults, an optional YAML file and
// FOCUSLOG_* environment variables, in increasing priority. An empty path
// looks for config.yaml in the data directory and tolerates its absence.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DataDir())
	}
	v.SetEnvPrefix("FOCUSLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return fmt.Errorf("storage path cannot be empty")
	}
	if c.Storage.RetentionDays < 0 {
		return fmt.Errorf("retention days cannot be negative, got %d", c.Storage.RetentionDays)
	}

	if c.Database.Enabled && c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty when the database is enabled")
	}

	// Validate tracker intervals
	t := c.Tracker
	if t.PollInterval < MinPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be less than minimum (%v)", t.PollInterval, MinPollInterval)
	}
	if t.PollInterval > MaxPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be greater than maximum (%v)", t.PollInterval, MaxPollInterval)
	}
	if t.FlushInterval < t.PollInterval {
		return fmt.Errorf("flush interval (%v) cannot be less than poll interval (%v)", t.FlushInterval, t.PollInterval)
	}
	if t.FlushInterval%time.Second != 0 {
		return fmt.Errorf("flush interval (%v) must be a whole number of seconds", t.FlushInterval)
	}
	if t.ProbeTimeout <= 0 || t.ProbeTimeout > t.PollInterval {
		return fmt.Errorf("probe timeout (%v) must be positive and at most the poll interval (%v)", t.ProbeTimeout, t.PollInterval)
	}

	// Validate logging config
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log format must be json or text, got %q", c.Logging.Format)
	}

	// Validate web config
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}
	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	// Validate daemon config
	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	return nil
}

// SetPollInterval sets the poll interval with validation
func (c *Config) SetPollInterval(interval time.Duration) error {
	if interval < MinPollInterval {
		return fmt.Errorf("poll interval cannot be less than %v", MinPollInterval)
	}
	if interval > MaxPollInterval {
		return fmt.Errorf("poll interval cannot be greater than %v", MaxPollInterval)
	}
	c.Tracker.PollInterval = interval
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// WebAddr returns host:port for the web server.
func (c *Config) WebAddr() string {
	return fmt.Sprintf("%s:%d", c.Web.Host, c.Web.Port)
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Storage:
    Path: %s
    Retention Days: %d
  Database:
    Enabled: %v
    Path: %s
  Tracker:
    Poll Interval: %v
    Flush Interval: %v
    Probe Timeout: %v
    Rollover At Midnight: %v
  Daemon:
    PID File: %s
  Logging:
    Level: %s
    Format: %s
    File: %s
  Web:
    Enabled: %v
    Host: %s
    Port: %d`,
		c.Storage.Path,
		c.Storage.RetentionDays,
		c.Database.Enabled,
		c.Database.Path,
		c.Tracker.PollInterval,
		c.Tracker.FlushInterval,
		c.Tracker.ProbeTimeout,
		c.Tracker.RolloverAtMidnight,
		c.Daemon.PIDFile,
		c.Logging.Level,
		c.Logging.Format,
		c.Logging.File,
		c.Web.Enabled,
		c.Web.Host,
		c.Web.Port,
	)
}

func uid() int {
	if id := os.Getuid(); id > 0 {
		return id
	}
	return 0
}
