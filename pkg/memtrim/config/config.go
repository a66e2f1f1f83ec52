package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// MonitorConfig configures the polling loop.
type MonitorConfig struct {
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"`
}

// TempCleanConfig configures the supplementary temp-directory clean that
// runs alongside the OS cache trim.
type TempCleanConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Dirs        []string `mapstructure:"dirs"`
	MinAgeHours int      `mapstructure:"min_age_hours"`
}

// JournalConfig configures the clean-result journal.
type JournalConfig struct {
	Path       string `mapstructure:"path"`
	MaxEntries int    `mapstructure:"max_entries"`
}

// DaemonConfig configures the background daemon.
type DaemonConfig struct {
	AutoStart  bool   `mapstructure:"auto_start"`
	BinaryPath string `mapstructure:"binary_path"` // Path to memtrimd binary (auto-discovered if empty)
	SocketPath string `mapstructure:"socket_path"`
	PIDPath    string `mapstructure:"pid_path"`
}

// Config represents the application configuration.
type Config struct {
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
	Monitor    MonitorConfig    `mapstructure:"monitor"`
	TempClean  TempCleanConfig  `mapstructure:"temp_clean"`
	Journal    JournalConfig    `mapstructure:"journal"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Daemon     DaemonConfig     `mapstructure:"daemon"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/memtrim/config.yaml
//   - $HOME/.config/memtrim/config.yaml
//
// Environment variables are prefixed with MEMTRIM_
// (e.g., MEMTRIM_THRESHOLDS_START_MB).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "memtrim"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "memtrim"))

	v.SetEnvPrefix("MEMTRIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is acceptable; we use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid thresholds in config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every default value on the given viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("thresholds.start_mb", DefaultStartThresholdMB)
	v.SetDefault("thresholds.stop_mb", DefaultStopThresholdMB)
	v.SetDefault("thresholds.auto_clean", true)

	v.SetDefault("monitor.poll_interval_seconds", DefaultPollIntervalSeconds)

	v.SetDefault("temp_clean.enabled", false)
	v.SetDefault("temp_clean.dirs", []string{})
	v.SetDefault("temp_clean.min_age_hours", DefaultTempMinAgeHours)

	v.SetDefault("journal.path", "") // Empty means use DefaultJournalPath
	v.SetDefault("journal.max_entries", DefaultJournalMaxEntries)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"daemon":  "info",
		"monitor": "info",
		"release": "info",
		"tui":     "info",
	})

	v.SetDefault("daemon.auto_start", true)
	v.SetDefault("daemon.socket_path", "") // Empty means use default XDG path
	v.SetDefault("daemon.pid_path", "")    // Empty means use default XDG path
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "memtrim"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "memtrim"), nil
}

// ConfigPath returns the config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// SaveThresholds persists accepted threshold changes back to the config
// file so they survive a daemon restart. Other settings in the file are
// preserved.
func SaveThresholds(t ThresholdsConfig) error {
	if err := t.Validate(); err != nil {
		return err
	}

	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.Set("thresholds.start_mb", t.StartMB)
	v.Set("thresholds.stop_mb", t.StopMB)
	v.Set("thresholds.auto_clean", t.AutoClean)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); err == nil {
		// Config file exists, do nothing
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# memtrim Memory Monitor Configuration

# Auto-clean thresholds, in MB of used physical memory.
# A clean starts when usage reaches start_mb and the monitor re-arms when
# usage falls back to stop_mb. stop_mb must be strictly below start_mb.
thresholds:
  start_mb: %d
  stop_mb: %d
  auto_clean: true

# Monitoring loop
monitor:
  poll_interval_seconds: %d

# Supplementary temp-directory cleaning performed with each cache release.
# Empty dirs means the OS temp directory.
temp_clean:
  enabled: false
  dirs: []
  min_age_hours: %d

# Clean-result journal
journal:
  # Empty means use default: $XDG_DATA_HOME/memtrim/journal
  path: ""
  max_entries: %d

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/memtrim/memtrim.log)
  path: ""
  # Log rotation settings
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
    daemon: info
    monitor: info
    release: info
    tui: info

# Daemon configuration
daemon:
  # Automatically start daemon when running memtrim commands
  auto_start: true
  # Unix socket path (empty means use default: $XDG_DATA_HOME/memtrim/memtrimd.sock)
  socket_path: ""
  # PID file path (empty means use default: $XDG_DATA_HOME/memtrim/memtrimd.pid)
  pid_path: ""
`, DefaultStartThresholdMB, DefaultStopThresholdMB, DefaultPollIntervalSeconds,
		DefaultTempMinAgeHours, DefaultJournalMaxEntries)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}

// DataDir returns $XDG_DATA_HOME/memtrim/ for the journal, socket, and pid files.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "memtrim")
}

// StateDir returns $XDG_STATE_HOME/memtrim/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "memtrim")
}

// DefaultSocketPath returns the default Unix socket path.
func DefaultSocketPath() string {
	return filepath.Join(DataDir(), "memtrimd.sock")
}

// DefaultPIDPath returns the default PID file path.
func DefaultPIDPath() string {
	return filepath.Join(DataDir(), "memtrimd.pid")
}

// DefaultJournalPath returns the default journal directory path.
func DefaultJournalPath() string {
	return filepath.Join(DataDir(), "journal")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "memtrim.log")
}

// DefaultBinaryPath returns the memtrimd path under standard Go binary
// locations (GOBIN > GOPATH/bin > $HOME/go/bin), or "" if not found.
func DefaultBinaryPath() string {
	candidates := []string{}

	if gobin := os.Getenv("GOBIN"); gobin != "" {
		candidates = append(candidates, filepath.Join(gobin, "memtrimd"))
	}
	if gopath := os.Getenv("GOPATH"); gopath != "" {
		candidates = append(candidates, filepath.Join(gopath, "bin", "memtrimd"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, "go", "bin", "memtrimd"))
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}
