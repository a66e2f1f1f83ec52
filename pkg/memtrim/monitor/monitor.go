// Package monitor runs the auto-clean control loop. The Controller polls
// system memory, feeds each reading through the threshold policy, and
// invokes the cache releaser on Idle->Cleaning transitions. It is the
// single writer of the threshold configuration and the cleaning state;
// everything the UI boundary shows comes from Status().
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/memtrim/pkg/memtrim/config"
	"github.com/jamesainslie/memtrim/pkg/memtrim/journal"
	"github.com/jamesainslie/memtrim/pkg/memtrim/logging"
	"github.com/jamesainslie/memtrim/pkg/memtrim/meminfo"
	"github.com/jamesainslie/memtrim/pkg/memtrim/metrics"
	"github.com/jamesainslie/memtrim/pkg/memtrim/policy"
	"github.com/jamesainslie/memtrim/pkg/memtrim/release"
)

// ErrAlreadyCleaning is returned when a manual clean is requested while
// a clean is in progress. Requests are rejected, never queued.
var ErrAlreadyCleaning = errors.New("a clean is already in progress")

// EventType classifies controller events for subscribers.
type EventType string

const (
	EventTick          EventType = "tick"
	EventCleanStarted  EventType = "clean_started"
	EventCleanFinished EventType = "clean_finished"
	EventConfigUpdated EventType = "config_updated"
)

// Event is pushed to the event callback after every tick, clean, and
// config change. Status is a consistent copy taken at emit time.
type Event struct {
	Type   EventType `json:"type"`
	Status Status    `json:"status"`
}

// Status is a consistent view of the controller. All fields are copies;
// mutating a Status has no effect on the controller.
type Status struct {
	Snapshot           meminfo.Snapshot        `json:"snapshot"`
	State              string                  `json:"state"`
	Thresholds         config.ThresholdsConfig `json:"thresholds"`
	LastResult         *release.CleanResult    `json:"last_result,omitempty"`
	CleanInFlight      bool                    `json:"clean_in_flight"`
	AutoCleanSuspended bool                    `json:"auto_clean_suspended"`
	LastTick           time.Time               `json:"last_tick"`
	PollInterval       time.Duration           `json:"poll_interval_ns"`
}

// Options configures a Controller. Reader and Releaser are required;
// everything else is optional.
type Options struct {
	Reader      meminfo.Reader
	Releaser    release.Releaser
	TempCleaner *release.TempCleaner
	Journal     *journal.Journal
	Thresholds  config.ThresholdsConfig

	// Interval between polls. Zero uses the default.
	Interval time.Duration

	// Persist is called with every accepted threshold update so it
	// survives a restart. Nil disables persistence.
	Persist func(config.ThresholdsConfig) error

	// OnEvent receives controller events. It is called from the poll
	// and clean goroutines and must not block.
	OnEvent func(Event)
}

// Controller owns the poll loop and the cleaning state machine.
type Controller struct {
	reader      meminfo.Reader
	releaser    release.Releaser
	tempCleaner *release.TempCleaner
	journal     *journal.Journal
	interval    time.Duration
	persist     func(config.ThresholdsConfig) error
	onEvent     func(Event)
	logger      *logging.Logger

	mu            sync.Mutex
	thresholds    config.ThresholdsConfig
	state         policy.State
	snap          meminfo.Snapshot
	haveSnap      bool
	lastResult    *release.CleanResult
	inFlight      bool
	privSuspended bool
	lastTick      time.Time
}

// New creates a Controller. It does not start polling; call Run.
func New(opts Options) *Controller {
	interval := opts.Interval
	if interval <= 0 {
		interval = time.Duration(config.DefaultPollIntervalSeconds) * time.Second
	}

	return &Controller{
		reader:      opts.Reader,
		releaser:    opts.Releaser,
		tempCleaner: opts.TempCleaner,
		journal:     opts.Journal,
		interval:    interval,
		persist:     opts.Persist,
		onEvent:     opts.OnEvent,
		logger:      logging.Get("monitor"),
		thresholds:  opts.Thresholds,
		state:       policy.Idle,
	}
}

// Run executes the poll loop until ctx is cancelled. The first poll
// happens immediately, then every interval.
func (c *Controller) Run(ctx context.Context) {
	c.logger.Info("monitor started",
		"interval", c.interval,
		"start_mb", c.thresholds.StartMB,
		"stop_mb", c.thresholds.StopMB,
		"auto_clean", c.thresholds.AutoClean)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("monitor stopped")
			return
		case <-ticker.C:
			c.poll(ctx)
		}
	}
}

// poll runs one tick: read memory, decide, and start a clean when the
// policy says so. The mutex is never held across the Release call.
func (c *Controller) poll(ctx context.Context) {
	snap, err := c.reader.Read()

	c.mu.Lock()
	c.lastTick = time.Now()

	if err != nil {
		metrics.PollTicksTotal.WithLabelValues("read_error").Inc()
		c.logger.Warn("memory read failed", "error", err)
		// Carry the previous reading forward, marked stale. A stale
		// reading never starts a clean.
		if c.haveSnap {
			c.snap = c.snap.MarkStale()
		}
	} else {
		metrics.PollTicksTotal.WithLabelValues("ok").Inc()
		metrics.UsedMemoryPercent.Set(snap.UsedPercent)
		c.snap = snap
		c.haveSnap = true
	}

	if !c.haveSnap {
		c.mu.Unlock()
		c.emit(EventTick)
		return
	}

	action, next := policy.Decide(c.snap, c.policyThresholds(), c.state)
	c.setState(next)

	startClean := action == policy.StartClean && !c.inFlight
	if startClean {
		c.inFlight = true
	}
	c.mu.Unlock()

	if action == policy.ContinueWaiting {
		c.logger.Debug("waiting for usage to drop",
			"used_mb", c.snapshotUsedMB(), "stop_mb", c.thresholdsCopy().StopMB)
	}

	c.emit(EventTick)

	if startClean {
		c.logger.Info("start threshold crossed", "used_mb", c.snapshotUsedMB())
		c.runClean(ctx, release.TriggerAuto)
	}
}

// TriggerManualClean runs a clean immediately regardless of thresholds.
// It returns ErrAlreadyCleaning if a clean is in progress or the
// controller is in the Cleaning state; requests are never queued.
func (c *Controller) TriggerManualClean(ctx context.Context) (release.CleanResult, error) {
	c.mu.Lock()
	if c.inFlight || c.state == policy.Cleaning {
		c.mu.Unlock()
		return release.CleanResult{}, ErrAlreadyCleaning
	}
	c.inFlight = true
	c.mu.Unlock()

	result := c.runClean(ctx, release.TriggerManual)
	return result, nil
}

// runClean performs one release with c.inFlight already set. It records
// the result, updates metrics and the journal, and clears the in-flight
// flag. The duration of Release is OS-dependent; nothing here assumes a
// bound on it.
func (c *Controller) runClean(ctx context.Context, trigger release.Trigger) release.CleanResult {
	c.emit(EventCleanStarted)

	result := release.CleanResult{
		ID:        uuid.New().String(),
		Trigger:   trigger,
		StartedAt: time.Now(),
	}

	freedMB, err := c.releaser.Release(ctx)
	result.DurationMS = time.Since(result.StartedAt).Milliseconds()

	if err != nil {
		result.Success = false
		result.ErrorKind = release.KindOf(err)
		result.ErrorDetail = err.Error()
		c.logger.Error("cache release failed",
			"trigger", trigger, "kind", result.ErrorKind, "error", err)
	} else {
		result.Success = true
		if freedMB >= 0 {
			result.FreedMBEstimate = &freedMB
		}
		c.logger.Info("cache released",
			"trigger", trigger, "freed_mb", freedMB, "duration_ms", result.DurationMS)
	}

	// Temp-directory cleanup rides along on successful cleans only.
	if err == nil && c.tempCleaner != nil {
		stat, tcErr := c.tempCleaner.Clean(ctx)
		if tcErr != nil {
			c.logger.Warn("temp clean failed", "error", tcErr)
		}
		result.TempClean = &stat
	}

	c.observeClean(result)

	c.mu.Lock()
	resultCopy := result
	c.lastResult = &resultCopy
	c.inFlight = false

	if errors.Is(err, release.ErrInsufficientPrivilege) {
		// Without privilege every future release fails the same way.
		// Suspend auto-clean until the process restarts elevated and
		// fall back to Idle so the state does not wedge in Cleaning.
		if !c.privSuspended {
			c.logger.Error("insufficient privilege; auto-clean suspended until restart")
		}
		c.privSuspended = true
		c.setState(policy.Idle)
	}
	c.mu.Unlock()

	if c.journal != nil {
		if jErr := c.journal.Append(result); jErr != nil {
			c.logger.Warn("journal append failed", "error", jErr)
		}
	}

	c.emit(EventCleanFinished)
	return result
}

// observeClean records clean metrics.
func (c *Controller) observeClean(result release.CleanResult) {
	outcome := "failure"
	if result.Success {
		outcome = "success"
	}
	metrics.CleansTotal.WithLabelValues(string(result.Trigger), outcome).Inc()
	metrics.CleanDurationSeconds.Observe(float64(result.DurationMS) / 1000)
	if result.FreedMBEstimate != nil {
		metrics.FreedMB.Observe(float64(*result.FreedMBEstimate))
	}
}

// Status returns a consistent copy of the controller state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		Snapshot:           c.snap,
		State:              c.state.String(),
		Thresholds:         c.thresholds,
		CleanInFlight:      c.inFlight,
		AutoCleanSuspended: c.privSuspended,
		LastTick:           c.lastTick,
		PollInterval:       c.interval,
	}
	if c.lastResult != nil {
		resultCopy := *c.lastResult
		st.LastResult = &resultCopy
	}
	return st
}

// UpdateConfig validates and applies a threshold update. Invalid updates
// return ErrInvalidThresholds and leave the previous configuration in
// effect. Accepted updates are persisted and take effect on the next
// poll tick; an in-progress clean is never interrupted.
func (c *Controller) UpdateConfig(t config.ThresholdsConfig) error {
	if err := t.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	c.thresholds = t
	c.mu.Unlock()

	if c.persist != nil {
		if err := c.persist(t); err != nil {
			c.logger.Warn("persisting thresholds failed", "error", err)
		}
	}

	c.logger.Info("thresholds updated",
		"start_mb", t.StartMB, "stop_mb", t.StopMB, "auto_clean", t.AutoClean)
	c.emit(EventConfigUpdated)
	return nil
}

// policyThresholds maps the configuration to policy inputs, honoring the
// privilege suspension. Caller holds c.mu.
func (c *Controller) policyThresholds() policy.Thresholds {
	return policy.Thresholds{
		StartMB:          c.thresholds.StartMB,
		StopMB:           c.thresholds.StopMB,
		AutoCleanEnabled: c.thresholds.AutoClean && !c.privSuspended,
	}
}

// setState updates the state and its gauge. Caller holds c.mu.
func (c *Controller) setState(next policy.State) {
	if next != c.state {
		c.logger.Info("state changed", "from", c.state.String(), "to", next.String())
	}
	c.state = next
	if next == policy.Cleaning {
		metrics.CleaningState.Set(1)
	} else {
		metrics.CleaningState.Set(0)
	}
}

// emit pushes an event carrying a fresh Status copy.
func (c *Controller) emit(t EventType) {
	if c.onEvent == nil {
		return
	}
	c.onEvent(Event{Type: t, Status: c.Status()})
}

func (c *Controller) snapshotUsedMB() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.UsedMB
}

func (c *Controller) thresholdsCopy() config.ThresholdsConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.thresholds
}
