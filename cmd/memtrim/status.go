package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current memory status",
	Long: `Display the current memory usage, monitor state, and thresholds.

The reading comes from the memtrimd daemon, so it reflects the same
snapshot the auto-clean policy is acting on.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := connectDaemon(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	status, err := c.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	if viper.GetBool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	snap := status.Snapshot
	fmt.Printf("Memory:      %d / %d MB (%.1f%%)", snap.UsedMB, snap.TotalMB, snap.UsedPercent)
	if snap.Stale {
		fmt.Print("  [stale]")
	}
	fmt.Println()
	fmt.Printf("State:       %s\n", status.State)
	fmt.Printf("Thresholds:  start %d MB, stop %d MB\n", status.Thresholds.StartMB, status.Thresholds.StopMB)
	fmt.Printf("Auto-clean:  %s\n", autoCleanLabel(status.Thresholds.AutoClean, status.AutoCleanSuspended))
	if !status.LastTick.IsZero() {
		fmt.Printf("Last poll:   %s\n", humanize.Time(status.LastTick))
	}

	if r := status.LastResult; r != nil {
		fmt.Println()
		fmt.Printf("Last clean:  %s (%s)\n", cleanOutcome(r.Success), r.Trigger)
		fmt.Printf("  started:   %s\n", humanize.Time(r.StartedAt))
		fmt.Printf("  duration:  %s\n", (time.Duration(r.DurationMS) * time.Millisecond).String())
		if r.FreedMBEstimate != nil {
			fmt.Printf("  freed:     ~%d MB\n", *r.FreedMBEstimate)
		}
		if r.ErrorDetail != "" {
			fmt.Printf("  error:     %s (%s)\n", r.ErrorDetail, r.ErrorKind)
		}
	}

	return nil
}

func autoCleanLabel(enabled, suspended bool) string {
	switch {
	case suspended:
		return "suspended (insufficient privileges, restart daemon to retry)"
	case enabled:
		return "enabled"
	default:
		return "disabled"
	}
}

func cleanOutcome(success bool) string {
	if success {
		return "succeeded"
	}
	return "failed"
}
