package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/memtrim/pkg/client"
	"github.com/jamesainslie/memtrim/pkg/memtrim/config"
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the memtrimd daemon",
	Long: `Manage the memtrimd daemon that polls memory and runs auto-clean.

The daemon keeps monitoring in the background so threshold-based cleans
keep working when no dashboard is attached.`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the memtrimd daemon",
	Long:  `Start the memtrimd daemon in the background.`,
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the memtrimd daemon",
	Long:  `Stop the memtrimd daemon gracefully.`,
	RunE:  runDaemonStop,
}

var daemonRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the memtrimd daemon",
	Long:  `Stop and start the memtrimd daemon.`,
	RunE:  runDaemonRestart,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long:  `Show the current status of the memtrimd daemon.`,
	RunE:  runDaemonStatus,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonRestartCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
}

// loadDaemonPaths loads configuration and resolves daemon paths; when the
// config cannot be loaded the XDG defaults are used.
func loadDaemonPaths() client.DaemonPaths {
	cfg, err := config.Load()
	if err != nil {
		printVerbose("config load failed, using defaults: %v", err)
		return client.DaemonPaths{}
	}
	return daemonPaths(cfg)
}

func runDaemonStart(_ *cobra.Command, _ []string) error {
	printVerbose("starting daemon...")
	if err := client.StartDaemon(loadDaemonPaths()); err != nil {
		printVerbose("start failed: %v", err)
		return err
	}
	printVerbose("daemon started successfully")
	printInfo("Daemon started")
	return nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	paths := loadDaemonPaths()

	if err := client.StopDaemon(paths); err != nil {
		return err
	}
	printInfo("Daemon stopped")
	return nil
}

func runDaemonRestart(_ *cobra.Command, _ []string) error {
	if err := client.RestartDaemon(loadDaemonPaths()); err != nil {
		return fmt.Errorf("failed to restart daemon: %w", err)
	}
	printInfo("Daemon restarted")
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	paths := loadDaemonPaths()
	pidPath := paths.PID
	if pidPath == "" {
		pidPath = config.DefaultPIDPath()
	}
	socketPath := paths.Socket
	if socketPath == "" {
		socketPath = config.DefaultSocketPath()
	}

	if !client.IsDaemonRunning(pidPath) {
		printInfo("Daemon status: not running")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := client.Connect(socketPath)
	if err != nil {
		printInfo("Daemon status: running (but not responding)")
		return nil
	}
	defer c.Close()

	status, err := c.Status(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			printInfo("Daemon status: running (but not responding)")
			return nil
		}
		return fmt.Errorf("failed to get daemon status: %w", err)
	}

	printInfo("Daemon status: running")
	printInfo("  State:      %s", status.State)
	printInfo("  Memory:     %d / %d MB (%.1f%%)",
		status.Snapshot.UsedMB, status.Snapshot.TotalMB, status.Snapshot.UsedPercent)
	printInfo("  Thresholds: start %d MB, stop %d MB", status.Thresholds.StartMB, status.Thresholds.StopMB)
	printInfo("  Auto-clean: %s", autoCleanLabel(status.Thresholds.AutoClean, status.AutoCleanSuspended))
	if !status.LastTick.IsZero() {
		printInfo("  Last poll:  %s", humanize.Time(status.LastTick))
	}

	return nil
}
