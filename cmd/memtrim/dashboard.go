package main

import (
	"context"
	"time"

	"github.com/jamesainslie/memtrim/cmd/memtrim/tui"
	"github.com/jamesainslie/memtrim/pkg/memtrim/logging"
	"github.com/spf13/cobra"
)

// runDashboard launches the interactive dashboard, starting the daemon
// first when auto-start is enabled.
func runDashboard(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, cfg, err := connectDaemon(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	// TUI mode keeps the console quiet; entries go to the file and the
	// dashboard log pane instead.
	if err := logging.Init(logging.Config{
		Level:      cfg.Logging.Level,
		Path:       cfg.Logging.Path,
		Components: cfg.Logging.Components,
		TUIMode:    true,
	}); err == nil {
		defer logging.Close()
		logging.Get("tui").Info("dashboard attached")
	}

	interval := time.Duration(cfg.Monitor.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 2 * time.Second
	}
	// Refresh faster than the daemon polls so state changes show promptly,
	// with a floor to keep socket chatter reasonable.
	refresh := interval / 2
	if refresh < time.Second {
		refresh = time.Second
	}

	return tui.Run(tui.Options{
		Client:       c,
		PollInterval: refresh,
	})
}
