// Package metrics exposes Prometheus instrumentation for the memory
// monitor. The daemon serves the default registry on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PollTicksTotal counts monitor poll ticks by outcome.
	PollTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memtrim_poll_ticks_total",
			Help: "Total monitor poll ticks by outcome",
		},
		[]string{"outcome"}, // "ok", "read_error"
	)

	// CleansTotal counts clean operations by trigger and outcome.
	CleansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memtrim_cleans_total",
			Help: "Total cache clean operations by trigger and outcome",
		},
		[]string{"trigger", "outcome"}, // "auto"/"manual", "success"/"failure"
	)

	// CleanDurationSeconds measures clean durations. Release latency is
	// OS-dependent; observed 2-10s, hence the wide buckets.
	CleanDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "memtrim_clean_duration_seconds",
			Help:    "Duration of cache clean operations",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30},
		},
	)

	// FreedMB observes the per-clean freed-memory estimate.
	FreedMB = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "memtrim_freed_mb",
			Help:    "Estimated memory freed per clean, in MB",
			Buckets: []float64{16, 64, 256, 1024, 4096, 16384},
		},
	)

	// UsedMemoryPercent reports the most recent memory usage reading.
	UsedMemoryPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "memtrim_used_memory_percent",
			Help: "Most recent system memory usage, percent of total",
		},
	)

	// CleaningState reports the controller state (0 idle, 1 cleaning).
	CleaningState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "memtrim_cleaning_state",
			Help: "Controller state: 0 idle, 1 cleaning",
		},
	)
)
