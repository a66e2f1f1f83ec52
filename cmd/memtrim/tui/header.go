package tui

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/memtrim/pkg/memtrim/monitor"
)

// renderAppHeader renders the shared application header with the app name,
// the monitor state badge, and the connection indicator.
func renderAppHeader(status monitor.Status, connected bool) string {
	icon := "🧠"
	appName := titleStyle.Bold(true).Render("MEMTRIM")

	header := fmt.Sprintf(" %s %s  %s", icon, appName, renderStateBadge(status.State))

	if status.CleanInFlight {
		header += warningTextStyle.Render("  cleaning…")
	}
	if status.AutoCleanSuspended {
		header += errorTextStyle.Render("  auto-clean suspended")
	}

	if connected {
		header += successTextStyle.Render("  ● LIVE")
	} else {
		header += errorTextStyle.Render("  ○ DISCONNECTED")
	}

	return header
}

// renderStateBadge renders the monitor state as a colored badge.
func renderStateBadge(state string) string {
	if state == "Cleaning" {
		return cleaningBadgeStyle.Render(state)
	}
	return idleBadgeStyle.Render(state)
}

// renderPollLine renders the last-poll line under the header.
func renderPollLine(status monitor.Status) string {
	if status.LastTick.IsZero() {
		return mutedTextStyle.Render("  waiting for first poll…")
	}

	line := fmt.Sprintf("  Last poll: %s", humanize.Time(status.LastTick))
	if status.PollInterval > 0 {
		line += fmt.Sprintf("  |  every %s", status.PollInterval.Round(time.Second))
	}
	if status.Snapshot.Stale {
		return mutedTextStyle.Render(line) + warningTextStyle.Render("  [stale reading]")
	}
	return mutedTextStyle.Render(line)
}
