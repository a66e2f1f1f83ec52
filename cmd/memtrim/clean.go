package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jamesainslie/memtrim/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Trigger a manual cache clean",
	Long: `Ask the daemon to release OS caches right now, regardless of thresholds.

If a clean is already running the request is rejected rather than queued;
retry after the in-flight clean finishes.

Manual cleans stay available even after a privilege error has suspended
automatic cleaning, though they will fail with the same error until the
daemon is restarted with sufficient privileges.`,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(_ *cobra.Command, _ []string) error {
	// Release calls can take a while on loaded systems.
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	c, _, err := connectDaemon(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	printVerbose("requesting manual clean...")
	result, err := c.Clean(ctx)
	if err != nil {
		if errors.Is(err, client.ErrAlreadyCleaning) {
			return errors.New("a clean is already in progress; try again shortly")
		}
		return fmt.Errorf("clean failed: %w", err)
	}

	if viper.GetBool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if !result.Success {
		printError("clean failed: %s (%s)", result.ErrorDetail, result.ErrorKind)
		return errors.New("clean did not complete")
	}

	if result.FreedMBEstimate != nil {
		printInfo("Clean complete: freed ~%d MB in %s", *result.FreedMBEstimate,
			(time.Duration(result.DurationMS) * time.Millisecond).String())
	} else {
		printInfo("Clean complete in %s (no freed estimate available)",
			(time.Duration(result.DurationMS) * time.Millisecond).String())
	}

	if tc := result.TempClean; tc != nil {
		printInfo("Temp clean: removed %d files (%d bytes), skipped %d",
			tc.FilesRemoved, tc.BytesRemoved, tc.Skipped)
	}

	return nil
}
