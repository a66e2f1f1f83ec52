// Package meminfo queries system memory usage. It wraps a single OS call
// per reading and is cheap enough to run on every poll tick.
package meminfo

import (
	"errors"
	"fmt"
	"time"
)

// ErrRead is returned when the underlying OS memory query fails.
var ErrRead = errors.New("memory query failed")

// ErrUnsupported is returned on platforms without a memory query implementation.
var ErrUnsupported = errors.New("memory query not supported on this platform")

// Snapshot is an immutable reading of system memory usage.
// A new Snapshot is produced on every poll and never mutated.
type Snapshot struct {
	// UsedMB is physical memory in use, in mebibytes.
	UsedMB int64 `json:"used_mb"`

	// TotalMB is total physical memory, in mebibytes.
	TotalMB int64 `json:"total_mb"`

	// UsedPercent is UsedMB/TotalMB expressed as 0-100.
	UsedPercent float64 `json:"used_percent"`

	// Timestamp is when the reading was taken.
	Timestamp time.Time `json:"timestamp"`

	// Stale marks a snapshot that could not be refreshed; the values are
	// carried over from the last successful reading.
	Stale bool `json:"stale,omitempty"`
}

// Reader queries current system memory usage.
type Reader interface {
	Read() (Snapshot, error)
}

// SystemReader reads memory usage from the running OS.
type SystemReader struct{}

// NewSystemReader returns a Reader backed by the host OS.
func NewSystemReader() *SystemReader {
	return &SystemReader{}
}

// Read returns a fresh snapshot of system memory usage.
func (r *SystemReader) Read() (Snapshot, error) {
	total, available, err := readSystemMemory()
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrRead, err)
	}
	if total <= 0 {
		return Snapshot{}, fmt.Errorf("%w: total memory reported as %d", ErrRead, total)
	}

	used := total - available
	if used < 0 {
		used = 0
	}

	return Snapshot{
		UsedMB:      used / (1 << 20),
		TotalMB:     total / (1 << 20),
		UsedPercent: float64(used) / float64(total) * 100,
		Timestamp:   time.Now(),
	}, nil
}

// MarkStale returns a copy of s carrying the same values but flagged stale
// with a refreshed timestamp. Used when a poll tick fails to read.
func (s Snapshot) MarkStale() Snapshot {
	s.Stale = true
	s.Timestamp = time.Now()
	return s
}
