package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jamesainslie/memtrim/pkg/client"
	"github.com/jamesainslie/memtrim/pkg/memtrim/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "memtrim",
	Short: "Monitor memory usage and release OS caches",
	Long: `Memtrim watches physical memory usage and trims OS caches when usage
crosses a configurable threshold.

By default, memtrim launches an interactive dashboard backed by the
memtrimd daemon. The daemon keeps polling in the background so auto-clean
keeps working after the dashboard exits.

Examples:
  memtrim                         # Launch the dashboard
  memtrim status                  # One-shot status output
  memtrim clean                   # Trigger a manual clean
  memtrim config set 4096 2048    # Update thresholds
  memtrim history                 # View recent clean results
  memtrim daemon stop             # Stop the background daemon`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func init() {
	rootCmd.PersistentFlags().BoolP("json", "j", false, "output JSON format")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")
	rootCmd.PersistentFlags().Bool("no-daemon-start", false, "never auto-start the daemon")

	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("no_daemon_start", rootCmd.PersistentFlags().Lookup("no-daemon-start"))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// daemonPaths resolves the daemon socket, PID, and binary paths from the
// loaded configuration.
func daemonPaths(cfg *config.Config) client.DaemonPaths {
	return client.DaemonPaths{
		Binary: cfg.Daemon.BinaryPath,
		Socket: cfg.Daemon.SocketPath,
		PID:    cfg.Daemon.PIDPath,
	}
}

// connectDaemon loads config, optionally auto-starts memtrimd, and returns
// a connected client. Callers must Close the client.
func connectDaemon(ctx context.Context) (*client.Client, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	paths := daemonPaths(cfg)
	socketPath := paths.Socket
	if socketPath == "" {
		socketPath = config.DefaultSocketPath()
	}

	if cfg.Daemon.AutoStart && !viper.GetBool("no_daemon_start") {
		printVerbose("ensuring daemon is running...")
		if err := client.EnsureDaemon(paths); err != nil {
			return nil, nil, fmt.Errorf("failed to start daemon: %w", err)
		}
	}

	c, err := client.Connect(socketPath)
	if err != nil {
		return nil, nil, errors.New("daemon is not running (start with: memtrim daemon start)")
	}

	if err := c.Health(ctx); err != nil {
		_ = c.Close()
		return nil, nil, fmt.Errorf("daemon is not responding: %w", err)
	}

	return c, cfg, nil
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
