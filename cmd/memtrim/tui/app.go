package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jamesainslie/memtrim/pkg/client"
	"github.com/jamesainslie/memtrim/pkg/memtrim/config"
	"github.com/jamesainslie/memtrim/pkg/memtrim/logging"
	"github.com/jamesainslie/memtrim/pkg/memtrim/monitor"
	"github.com/jamesainslie/memtrim/pkg/memtrim/release"
)

// Options configures the TUI application.
type Options struct {
	Client       *client.Client
	PollInterval time.Duration
}

// Model is the main Bubble Tea model for the memtrim dashboard.
type Model struct {
	client   *client.Client
	interval time.Duration

	// Daemon state
	status    monitor.Status
	statusErr error
	connected bool

	// Manual clean state
	cleaning     bool
	cleanSpinner spinner.Model

	// Flash line shown under the gauge after an action.
	flash      string
	flashIsErr bool

	gauge progress.Model
	logs  *LogViewerState
	logCh <-chan logging.Entry

	// Window dimensions
	width  int
	height int
}

// NewModel creates a new dashboard model with the given options.
func NewModel(opts Options) Model {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(warningColor)

	g := progress.New(
		progress.WithScaledGradient("#28A745", "#DC3545"),
		progress.WithoutPercentage(),
	)

	return Model{
		client:       opts.Client,
		interval:     interval,
		cleanSpinner: s,
		gauge:        g,
		logs:         NewLogViewerState(),
		logCh:        logging.Subscribe(),
		width:        80,
		height:       24,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchStatus(true),
		m.listenForLogs(),
	)
}

// Messages.
type (
	statusMsg struct {
		status monitor.Status
		err    error
		// resched marks fetches belonging to the poll loop; one-shot
		// refreshes must not spawn extra tick chains.
		resched bool
	}
	pollTickMsg  struct{}
	logEntryMsg  logging.Entry
	cleanDoneMsg struct {
		result release.CleanResult
		err    error
	}
	toggleDoneMsg struct {
		applied config.ThresholdsConfig
		err     error
	}
)

// fetchStatus asks the daemon for the current status. resched marks the
// fetch as part of the poll loop.
func (m Model) fetchStatus(resched bool) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		status, err := c.Status(ctx)
		return statusMsg{status: status, err: err, resched: resched}
	}
}

// schedulePoll schedules the next status refresh.
func (m Model) schedulePoll() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

// listenForLogs waits for the next log entry from this process.
func (m Model) listenForLogs() tea.Cmd {
	ch := m.logCh
	return func() tea.Msg {
		entry, ok := <-ch
		if !ok {
			return nil
		}
		return logEntryMsg(entry)
	}
}

// startClean triggers a manual clean on the daemon.
func (m Model) startClean() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		// Release calls can take several seconds under load.
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		result, err := c.Clean(ctx)
		return cleanDoneMsg{result: result, err: err}
	}
}

// toggleAutoClean flips the auto-clean flag, keeping the thresholds.
func (m Model) toggleAutoClean() tea.Cmd {
	next := m.status.Thresholds
	next.AutoClean = !next.AutoClean
	return m.applyThresholds(next)
}

// thresholdStepMB is the start-threshold increment for the +/- keys.
const thresholdStepMB = 256

// adjustStartThreshold nudges the start threshold by delta MB.
func (m Model) adjustStartThreshold(delta int64) tea.Cmd {
	next := m.status.Thresholds
	next.StartMB += delta
	return m.applyThresholds(next)
}

// applyThresholds sends a threshold update to the daemon. The daemon
// validates; an out-of-range nudge comes back as an error flash.
func (m Model) applyThresholds(next config.ThresholdsConfig) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		applied, err := c.UpdateThresholds(ctx, next)
		return toggleDoneMsg{applied: applied, err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.gauge.Width = m.width - 10
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case statusMsg:
		if msg.err != nil {
			m.statusErr = msg.err
			m.connected = false
		} else {
			m.status = msg.status
			m.statusErr = nil
			m.connected = true
		}
		if msg.resched {
			return m, m.schedulePoll()
		}
		return m, nil

	case pollTickMsg:
		return m, m.fetchStatus(true)

	case logEntryMsg:
		m.logs.AddEntry(logging.Entry(msg))
		return m, m.listenForLogs()

	case spinner.TickMsg:
		if !m.cleaning {
			return m, nil
		}
		var cmd tea.Cmd
		m.cleanSpinner, cmd = m.cleanSpinner.Update(msg)
		return m, cmd

	case cleanDoneMsg:
		m.cleaning = false
		switch {
		case errors.Is(msg.err, client.ErrAlreadyCleaning):
			m.flash = "A clean is already in progress"
			m.flashIsErr = true
		case msg.err != nil:
			m.flash = "Clean failed: " + msg.err.Error()
			m.flashIsErr = true
		case !msg.result.Success:
			m.flash = fmt.Sprintf("Clean failed: %s (%s)", msg.result.ErrorDetail, msg.result.ErrorKind)
			m.flashIsErr = true
		case msg.result.FreedMBEstimate != nil:
			m.flash = fmt.Sprintf("Freed ~%d MB in %s", *msg.result.FreedMBEstimate,
				(time.Duration(msg.result.DurationMS) * time.Millisecond).Round(time.Millisecond))
			m.flashIsErr = false
		default:
			m.flash = "Clean complete (no freed estimate)"
			m.flashIsErr = false
		}
		return m, m.fetchStatus(false)

	case toggleDoneMsg:
		switch {
		case errors.Is(msg.err, client.ErrInvalidThresholds):
			m.flash = "Rejected: threshold out of range"
			m.flashIsErr = true
		case msg.err != nil:
			m.flash = "Failed to update config: " + msg.err.Error()
			m.flashIsErr = true
		case msg.applied.AutoClean != m.status.Thresholds.AutoClean:
			if msg.applied.AutoClean {
				m.flash = "Auto-clean enabled"
			} else {
				m.flash = "Auto-clean disabled"
			}
			m.flashIsErr = false
		default:
			m.flash = fmt.Sprintf("Start threshold now %d MB", msg.applied.StartMB)
			m.flashIsErr = false
		}
		return m, m.fetchStatus(false)
	}

	return m, nil
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "ctrl+c", "q", "esc":
		logging.Unsubscribe(m.logCh)
		return m, tea.Quit

	case "c":
		if m.cleaning || m.status.CleanInFlight {
			m.flash = "A clean is already in progress"
			m.flashIsErr = true
			return m, nil
		}
		m.cleaning = true
		m.flash = ""
		return m, tea.Batch(m.cleanSpinner.Tick, m.startClean())

	case "a":
		if !m.connected {
			return m, nil
		}
		return m, m.toggleAutoClean()

	case "+", "=":
		if !m.connected {
			return m, nil
		}
		return m, m.adjustStartThreshold(thresholdStepMB)

	case "-":
		if !m.connected {
			return m, nil
		}
		return m, m.adjustStartThreshold(-thresholdStepMB)

	case "r":
		return m, m.fetchStatus(false)

	case "l":
		m.logs.Toggle()
		return m, nil
	}

	if m.logs.Open {
		switch key {
		case "up", "k":
			m.logs.ScrollUp()
		case "down", "j":
			m.logs.ScrollDown(m.logPaneRows())
		case "1":
			m.logs.SetFilterLevel(logging.LevelDebug)
		case "2":
			m.logs.SetFilterLevel(logging.LevelInfo)
		case "3":
			m.logs.SetFilterLevel(logging.LevelWarn)
		case "4":
			m.logs.SetFilterLevel(logging.LevelError)
		}
	}

	return m, nil
}

// logPaneRows returns the visible row count of the log pane.
func (m Model) logPaneRows() int {
	rows := m.height/3 - 2
	if rows < 3 {
		rows = 3
	}
	return rows
}

// View renders the dashboard.
func (m Model) View() string {
	contentWidth := m.width - 4

	var b strings.Builder
	b.WriteString(renderAppHeader(m.status, m.connected))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")

	if m.statusErr != nil {
		b.WriteString(errorTextStyle.Render("  Cannot reach memtrimd: " + m.statusErr.Error()))
		b.WriteString("\n")
		b.WriteString(mutedTextStyle.Render("  Retrying…"))
		b.WriteString("\n")
	} else {
		m.renderMemory(&b, contentWidth)
	}

	if m.flash != "" {
		b.WriteString("\n")
		if m.flashIsErr {
			b.WriteString(errorTextStyle.Render("  " + m.flash))
		} else {
			b.WriteString(successTextStyle.Render("  ✓ " + m.flash))
		}
		b.WriteString("\n")
	}

	if m.logs.Open {
		b.WriteString("\n")
		b.WriteString(renderDivider(contentWidth))
		b.WriteString("\n")
		b.WriteString(renderLogViewer(m.logs.Buffer.Entries(), m.logs.FilterLevel,
			m.logs.ScrollOffset, contentWidth, m.logPaneRows()+2))
	}

	b.WriteString("\n")
	b.WriteString(m.renderKeyHints(contentWidth))

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

// renderMemory renders the gauge, thresholds, and last-result sections.
func (m *Model) renderMemory(b *strings.Builder, contentWidth int) {
	snap := m.status.Snapshot
	t := m.status.Thresholds

	b.WriteString(fmt.Sprintf("  Memory  %s / %s  %s\n",
		valueStyle.Render(fmt.Sprintf("%d MB", snap.UsedMB)),
		mutedTextStyle.Render(fmt.Sprintf("%d MB", snap.TotalMB)),
		accentTextStyle.Render(fmt.Sprintf("(%.1f%%)", snap.UsedPercent))))
	b.WriteString("\n")

	gaugeWidth := contentWidth - 6
	if gaugeWidth > 10 {
		m.gauge.Width = gaugeWidth
		b.WriteString("  " + m.gauge.ViewAs(snap.UsedPercent/100.0))
		b.WriteString("\n\n")
	}

	autoLabel := "off"
	autoStyle := mutedTextStyle
	switch {
	case m.status.AutoCleanSuspended:
		autoLabel = "suspended"
		autoStyle = errorTextStyle
	case t.AutoClean:
		autoLabel = "on"
		autoStyle = successTextStyle
	}

	b.WriteString(fmt.Sprintf("  Thresholds  start %s  stop %s  auto-clean %s\n",
		valueStyle.Render(fmt.Sprintf("%d MB", t.StartMB)),
		valueStyle.Render(fmt.Sprintf("%d MB", t.StopMB)),
		autoStyle.Render(autoLabel)))

	b.WriteString(renderPollLine(m.status))
	b.WriteString("\n")

	if m.cleaning || m.status.CleanInFlight {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("  %s Releasing caches…\n", m.cleanSpinner.View()))
	}

	if r := m.status.LastResult; r != nil {
		b.WriteString("\n")
		b.WriteString(renderLastResult(*r, contentWidth))
		b.WriteString("\n")
	}
}

// renderLastResult renders a summary of the most recent clean.
func renderLastResult(r release.CleanResult, width int) string {
	outcome := successTextStyle.Render("ok")
	if !r.Success {
		outcome = errorTextStyle.Render(string(r.ErrorKind))
	}

	freed := "-"
	if r.FreedMBEstimate != nil {
		freed = fmt.Sprintf("~%d MB", *r.FreedMBEstimate)
	}

	line := fmt.Sprintf("  Last clean  %s  %s  %s  freed %s",
		r.StartedAt.Format("15:04:05"),
		mutedTextStyle.Render(string(r.Trigger)),
		outcome,
		freed)

	if r.ErrorDetail != "" {
		detail := r.ErrorDetail
		if len(detail) > width-16 && width > 19 {
			detail = detail[:width-19] + "..."
		}
		line += "\n" + errorTextStyle.Render("    "+detail)
	}

	return line
}

// renderKeyHints renders the bottom key hint bar.
func (m Model) renderKeyHints(width int) string {
	hints := []string{
		keyStyle.Render("[c]") + " " + keyDescStyle.Render("clean"),
		keyStyle.Render("[a]") + " " + keyDescStyle.Render("auto-clean"),
		keyStyle.Render("[+/-]") + " " + keyDescStyle.Render("start threshold"),
		keyStyle.Render("[l]") + " " + keyDescStyle.Render("logs"),
		keyStyle.Render("[r]") + " " + keyDescStyle.Render("refresh"),
		keyStyle.Render("[q]") + " " + keyDescStyle.Render("quit"),
	}
	return center(strings.Join(hints, "   "), width)
}

// Run starts the dashboard.
func Run(opts Options) error {
	model := NewModel(opts)

	p := tea.NewProgram(model, tea.WithAltScreen())

	_, err := p.Run()
	return err
}
