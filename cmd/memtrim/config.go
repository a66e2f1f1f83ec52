package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/jamesainslie/memtrim/pkg/client"
	"github.com/jamesainslie/memtrim/pkg/memtrim/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage memtrim configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/memtrim/config.yaml (if set)
  2. ~/.config/memtrim/config.yaml

Environment variables can override config file settings using the MEMTRIM_ prefix:
  MEMTRIM_THRESHOLDS_START_MB=4096
  MEMTRIM_MONITOR_POLL_INTERVAL_SECONDS=10`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <start-mb> <stop-mb>",
	Short: "Update clean thresholds",
	Long: `Update the start and stop thresholds, in MB of used memory.

The stop threshold must be strictly below the start threshold. When the
daemon is running the change is applied live and persisted; otherwise it
is written to the config file for the next daemon start.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

var configAutoClean string

func init() {
	configSetCmd.Flags().StringVar(&configAutoClean, "auto-clean", "", "enable or disable auto-clean (true|false)")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	configPath, err := config.ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fmt.Printf("Config file: %s\n\n", configPath)
		} else {
			fmt.Println("Config file: (using defaults, no file found)")
			fmt.Println()
		}
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("thresholds.start_mb:           %d\n", cfg.Thresholds.StartMB)
	fmt.Printf("thresholds.stop_mb:            %d\n", cfg.Thresholds.StopMB)
	fmt.Printf("thresholds.auto_clean:         %t\n", cfg.Thresholds.AutoClean)
	fmt.Printf("monitor.poll_interval_seconds: %d\n", cfg.Monitor.PollIntervalSeconds)
	fmt.Printf("temp_clean.enabled:            %t\n", cfg.TempClean.Enabled)
	fmt.Printf("temp_clean.dirs:               %v\n", cfg.TempClean.Dirs)
	fmt.Printf("temp_clean.min_age_hours:      %d\n", cfg.TempClean.MinAgeHours)
	fmt.Printf("journal.max_entries:           %d\n", cfg.Journal.MaxEntries)
	fmt.Printf("logging.level:                 %s\n", cfg.Logging.Level)
	fmt.Printf("daemon.auto_start:             %t\n", cfg.Daemon.AutoStart)

	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	envVars := []string{
		"MEMTRIM_THRESHOLDS_START_MB",
		"MEMTRIM_THRESHOLDS_STOP_MB",
		"MEMTRIM_THRESHOLDS_AUTO_CLEAN",
		"MEMTRIM_MONITOR_POLL_INTERVAL_SECONDS",
		"MEMTRIM_TEMP_CLEAN_ENABLED",
		"MEMTRIM_JOURNAL_MAX_ENTRIES",
		"MEMTRIM_LOGGING_LEVEL",
		"MEMTRIM_DAEMON_AUTO_START",
	}

	anyOverrides := false
	for _, name := range envVars {
		if val := os.Getenv(name); val != "" {
			fmt.Printf("%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Println("(none)")
	}

	return nil
}

// runConfigSet updates thresholds, going through the daemon when one is up
// so the change takes effect without a restart.
func runConfigSet(_ *cobra.Command, args []string) error {
	startMB, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid start threshold %q: %w", args[0], err)
	}
	stopMB, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid stop threshold %q: %w", args[1], err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	thresholds := config.ThresholdsConfig{
		StartMB:   startMB,
		StopMB:    stopMB,
		AutoClean: cfg.Thresholds.AutoClean,
	}
	if configAutoClean != "" {
		enabled, err := strconv.ParseBool(configAutoClean)
		if err != nil {
			return fmt.Errorf("invalid --auto-clean value %q: %w", configAutoClean, err)
		}
		thresholds.AutoClean = enabled
	}

	if err := thresholds.Validate(); err != nil {
		return err
	}

	paths := daemonPaths(cfg)
	pidPath := paths.PID
	if pidPath == "" {
		pidPath = config.DefaultPIDPath()
	}

	if client.IsDaemonRunning(pidPath) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		socketPath := paths.Socket
		if socketPath == "" {
			socketPath = config.DefaultSocketPath()
		}

		c, err := client.Connect(socketPath)
		if err != nil {
			return fmt.Errorf("daemon is running but not reachable: %w", err)
		}
		defer c.Close()

		applied, err := c.UpdateThresholds(ctx, thresholds)
		if err != nil {
			if errors.Is(err, client.ErrInvalidThresholds) {
				return fmt.Errorf("daemon rejected thresholds: %w", err)
			}
			return fmt.Errorf("failed to update thresholds: %w", err)
		}

		printInfo("Thresholds updated: start %d MB, stop %d MB (auto-clean %t)",
			applied.StartMB, applied.StopMB, applied.AutoClean)
		return nil
	}

	if err := config.SaveThresholds(thresholds); err != nil {
		return fmt.Errorf("failed to save thresholds: %w", err)
	}

	printInfo("Thresholds saved: start %d MB, stop %d MB (auto-clean %t)",
		thresholds.StartMB, thresholds.StopMB, thresholds.AutoClean)
	printInfo("The daemon is not running; the change applies on next start.")
	return nil
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(cmd *cobra.Command, args []string) error {
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'memtrim config edit' to modify it.")
		return nil
	}

	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	fmt.Println(configPath)

	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}

	return nil
}
