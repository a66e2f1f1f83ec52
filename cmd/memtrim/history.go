package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recent clean results",
	Long: `View the journal of recent cache cleans, newest first.

Each entry records when the clean ran, what triggered it, how long it
took, and the freed-memory estimate when one was available.`,
	RunE: runHistory,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")
	rootCmd.AddCommand(historyCmd)
}

// runHistory lists recent clean results from the daemon journal.
func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := connectDaemon(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	entries, err := c.History(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if viper.GetBool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		printInfo("No clean results recorded yet.")
		printInfo("Run 'memtrim clean' to trigger one manually.")
		return nil
	}

	fmt.Printf("\n%-20s  %-9s  %-9s  %-10s  %-10s\n", "WHEN", "TRIGGER", "OUTCOME", "DURATION", "FREED")
	fmt.Println(strings.Repeat("-", 70))

	for _, entry := range entries {
		freed := "-"
		if entry.FreedMBEstimate != nil {
			freed = fmt.Sprintf("~%d MB", *entry.FreedMBEstimate)
		}
		outcome := "ok"
		if !entry.Success {
			outcome = string(entry.ErrorKind)
			if outcome == "" {
				outcome = "failed"
			}
		}
		fmt.Printf("%-20s  %-9s  %-9s  %-10s  %-10s\n",
			entry.StartedAt.Format("2006-01-02 15:04:05"),
			entry.Trigger,
			outcome,
			(time.Duration(entry.DurationMS) * time.Millisecond).String(),
			freed,
		)
	}

	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("\nShowing %d entries. Use --limit to see more.\n", len(entries))

	return nil
}
