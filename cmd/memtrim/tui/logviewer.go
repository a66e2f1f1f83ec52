package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jamesainslie/memtrim/pkg/memtrim/logging"
)

// filterEntriesByLevel returns entries at or above the specified level.
func filterEntriesByLevel(entries []logging.Entry, minLevel logging.Level) []logging.Entry {
	result := make([]logging.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Level >= minLevel {
			result = append(result, e)
		}
	}
	return result
}

// clampLogScroll ensures the scroll offset stays within valid bounds.
func clampLogScroll(offset, totalEntries, visibleRows int) int {
	if totalEntries <= visibleRows {
		return 0
	}
	maxOffset := totalEntries - visibleRows
	if offset < 0 {
		return 0
	}
	if offset > maxOffset {
		return maxOffset
	}
	return offset
}

// getVisibleLogEntries returns a slice of entries to display.
// It filters by level, then applies offset and limit.
func getVisibleLogEntries(entries []logging.Entry, minLevel logging.Level, offset, limit int) []logging.Entry {
	filtered := filterEntriesByLevel(entries, minLevel)

	if offset >= len(filtered) {
		return nil
	}

	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}

	return filtered[offset:end]
}

// logLevelStyle returns the style for a log level.
func logLevelStyle(level logging.Level) lipgloss.Style {
	switch level {
	case logging.LevelDebug:
		return logDebugStyle
	case logging.LevelInfo:
		return logInfoStyle
	case logging.LevelWarn:
		return logWarnStyle
	case logging.LevelError:
		return logErrorStyle
	default:
		return logInfoStyle
	}
}

// logLevelChar returns a single character for the log level.
func logLevelChar(level logging.Level) string {
	switch level {
	case logging.LevelDebug:
		return "D"
	case logging.LevelInfo:
		return "I"
	case logging.LevelWarn:
		return "W"
	case logging.LevelError:
		return "E"
	default:
		return "?"
	}
}

// renderLogViewer renders the log viewer pane.
// width is the available width, height is the height for the log pane.
func renderLogViewer(entries []logging.Entry, filterLevel logging.Level, scrollOffset, width, height int) string {
	if height < 3 {
		return ""
	}

	var b strings.Builder

	// Title bar with filter level indicator
	title := fmt.Sprintf(" Logs [%s] ", filterLevel.String())
	filterHint := "[1-4] filter  [l] close"

	logTitleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(primaryColor)

	b.WriteString(logTitleStyle.Render(title) + mutedTextStyle.Render(filterHint))
	b.WriteString("\n")
	b.WriteString(renderDivider(width))
	b.WriteString("\n")

	// Visible rows for logs (height minus title bar and divider)
	visibleRows := height - 2
	if visibleRows < 1 {
		visibleRows = 1
	}

	filtered := filterEntriesByLevel(entries, filterLevel)
	scrollOffset = clampLogScroll(scrollOffset, len(filtered), visibleRows)
	visible := getVisibleLogEntries(entries, filterLevel, scrollOffset, visibleRows)

	for _, entry := range visible {
		b.WriteString(renderLogEntry(entry, width))
		b.WriteString("\n")
	}

	// Pad remaining rows
	for i := len(visible); i < visibleRows; i++ {
		b.WriteString("\n")
	}

	// Scroll indicator
	if len(filtered) > visibleRows {
		scrollPct := 0
		if len(filtered)-visibleRows > 0 {
			scrollPct = scrollOffset * 100 / (len(filtered) - visibleRows)
		}
		scrollIndicator := mutedTextStyle.Render(fmt.Sprintf(" [%d/%d] %d%%", scrollOffset+1, len(filtered), scrollPct))
		padding := width - lipgloss.Width(scrollIndicator)
		if padding > 0 {
			b.WriteString(strings.Repeat(" ", padding))
		}
		b.WriteString(scrollIndicator)
	}

	return b.String()
}

// renderLogEntry renders a single log entry.
func renderLogEntry(entry logging.Entry, width int) string {
	// Format: HH:MM:SS [L] component: message
	timeStr := entry.Time.Format("15:04:05")

	levelChar := logLevelChar(entry.Level)
	levelStyle := logLevelStyle(entry.Level)

	componentWidth := 10
	if len(entry.Component) < componentWidth {
		componentWidth = len(entry.Component)
	}

	prefixWidth := 8 + 1 + 3 + 1 + componentWidth + 1 + 1 // time [L] comp:
	msgWidth := width - prefixWidth
	if msgWidth < 10 {
		msgWidth = 10
	}

	msg := entry.Message
	if len(msg) > msgWidth {
		msg = msg[:msgWidth-3] + "..."
	}

	comp := entry.Component
	if len(comp) > 10 {
		comp = comp[:10]
	}

	return fmt.Sprintf("%s %s %s: %s",
		logTimeStyle.Render(timeStr),
		levelStyle.Render("["+levelChar+"]"),
		logComponentStyle.Render(comp),
		msg)
}

// LogViewerState holds the state for the log viewer pane.
type LogViewerState struct {
	Open         bool
	Buffer       *logging.Buffer
	FilterLevel  logging.Level
	ScrollOffset int
}

// NewLogViewerState creates a new log viewer state.
func NewLogViewerState() *LogViewerState {
	return &LogViewerState{
		Open:        false,
		Buffer:      logging.NewBuffer(logging.DefaultBufferSize),
		FilterLevel: logging.LevelDebug, // Show all by default
	}
}

// Toggle toggles the log viewer open/closed.
func (s *LogViewerState) Toggle() {
	s.Open = !s.Open
}

// SetFilterLevel sets the filter level.
func (s *LogViewerState) SetFilterLevel(level logging.Level) {
	s.FilterLevel = level
	// Reset scroll when changing filter
	s.ScrollOffset = 0
}

// ScrollUp scrolls up by one line.
func (s *LogViewerState) ScrollUp() {
	if s.ScrollOffset > 0 {
		s.ScrollOffset--
	}
}

// ScrollDown scrolls down by one line.
func (s *LogViewerState) ScrollDown(visibleRows int) {
	filtered := filterEntriesByLevel(s.Buffer.Entries(), s.FilterLevel)
	maxOffset := len(filtered) - visibleRows
	if maxOffset < 0 {
		maxOffset = 0
	}
	if s.ScrollOffset < maxOffset {
		s.ScrollOffset++
	}
}

// AddEntry adds a log entry to the buffer.
func (s *LogViewerState) AddEntry(entry logging.Entry) {
	s.Buffer.Add(entry)
}

// FilteredEntryCount returns the number of entries at or above the current filter level.
func (s *LogViewerState) FilteredEntryCount() int {
	return len(filterEntriesByLevel(s.Buffer.Entries(), s.FilterLevel))
}
