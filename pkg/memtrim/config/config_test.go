package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	// Use a temp directory that doesn't have a config file
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Thresholds.StartMB != DefaultStartThresholdMB {
		t.Errorf("Thresholds.StartMB = %d, want %d", cfg.Thresholds.StartMB, DefaultStartThresholdMB)
	}
	if cfg.Thresholds.StopMB != DefaultStopThresholdMB {
		t.Errorf("Thresholds.StopMB = %d, want %d", cfg.Thresholds.StopMB, DefaultStopThresholdMB)
	}
	if !cfg.Thresholds.AutoClean {
		t.Error("Thresholds.AutoClean = false, want true")
	}
	if cfg.Monitor.PollIntervalSeconds != DefaultPollIntervalSeconds {
		t.Errorf("Monitor.PollIntervalSeconds = %d, want %d", cfg.Monitor.PollIntervalSeconds, DefaultPollIntervalSeconds)
	}
	if cfg.TempClean.Enabled {
		t.Error("TempClean.Enabled = true, want false by default")
	}
	if cfg.Journal.MaxEntries != DefaultJournalMaxEntries {
		t.Errorf("Journal.MaxEntries = %d, want %d", cfg.Journal.MaxEntries, DefaultJournalMaxEntries)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if !cfg.Daemon.AutoStart {
		t.Error("Daemon.AutoStart = false, want true")
	}
}

func TestLoad_FromFile(t *testing.T) {
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, ".config", "memtrim")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configContent := `
thresholds:
  start_mb: 6144
  stop_mb: 3072
  auto_clean: false
monitor:
  poll_interval_seconds: 10
temp_clean:
  enabled: true
  min_age_hours: 48
logging:
  level: debug
`
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Thresholds.StartMB != 6144 {
		t.Errorf("Thresholds.StartMB = %d, want 6144", cfg.Thresholds.StartMB)
	}
	if cfg.Thresholds.StopMB != 3072 {
		t.Errorf("Thresholds.StopMB = %d, want 3072", cfg.Thresholds.StopMB)
	}
	if cfg.Thresholds.AutoClean {
		t.Error("Thresholds.AutoClean = true, want false")
	}
	if cfg.Monitor.PollIntervalSeconds != 10 {
		t.Errorf("Monitor.PollIntervalSeconds = %d, want 10", cfg.Monitor.PollIntervalSeconds)
	}
	if !cfg.TempClean.Enabled {
		t.Error("TempClean.Enabled = false, want true")
	}
	if cfg.TempClean.MinAgeHours != 48 {
		t.Errorf("TempClean.MinAgeHours = %d, want 48", cfg.TempClean.MinAgeHours)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_RejectsInvalidThresholds(t *testing.T) {
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, ".config", "memtrim")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatal(err)
	}

	configContent := `
thresholds:
  start_mb: 1024
  stop_mb: 2048
`
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(configContent), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	if _, err := Load(); err == nil {
		t.Error("Load() accepted stop_mb >= start_mb")
	}
}

func TestSaveThresholds_RoundTrip(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tempDir, "xdg"))

	updated := ThresholdsConfig{StartMB: 5120, StopMB: 1024, AutoClean: false}
	if err := SaveThresholds(updated); err != nil {
		t.Fatalf("SaveThresholds() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() after save error = %v", err)
	}

	if cfg.Thresholds != updated {
		t.Errorf("round trip = %+v, want %+v", cfg.Thresholds, updated)
	}
}

func TestSaveThresholds_RejectsInvalid(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tempDir, "xdg"))

	err := SaveThresholds(ThresholdsConfig{StartMB: 1024, StopMB: 4096})
	if err == nil {
		t.Fatal("SaveThresholds() accepted invalid thresholds")
	}

	configPath, err := ConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(configPath); !os.IsNotExist(err) {
		t.Error("invalid save must not create a config file")
	}
}

func TestWriteDefault(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tempDir, "xdg"))

	if err := WriteDefault(); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() of written default error = %v", err)
	}
	if cfg.Thresholds.StartMB != DefaultStartThresholdMB {
		t.Errorf("written default StartMB = %d, want %d", cfg.Thresholds.StartMB, DefaultStartThresholdMB)
	}

	// Second call must not overwrite an existing file.
	if err := WriteDefault(); err != nil {
		t.Fatalf("WriteDefault() second call error = %v", err)
	}
}
