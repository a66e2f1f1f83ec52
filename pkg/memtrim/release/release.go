// Package release performs the OS-level cache-trim operations. It wraps
// the platform primitives that force the OS to give back standby and
// reclaimable cache pages, plus an optional temp-directory cleaner.
//
// Releasing cache is expected to cause transient I/O latency system-wide
// while the OS re-reads evicted pages. That is the cost of the operation,
// not a bug.
package release

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jamesainslie/memtrim/pkg/memtrim/meminfo"
)

// ErrInsufficientPrivilege means the process is not elevated. Cleaning
// stays disabled until the process is restarted with privilege.
var ErrInsufficientPrivilege = errors.New("insufficient privilege to release system cache")

// ErrPartialFailure means some but not all release primitives succeeded.
var ErrPartialFailure = errors.New("some cache release operations failed")

// ErrRelease covers any other OS-level release failure.
var ErrRelease = errors.New("cache release failed")

// ErrUnsupported is returned on platforms without release primitives.
var ErrUnsupported = errors.New("cache release not supported on this platform")

// Trigger identifies what initiated a clean.
type Trigger string

const (
	// TriggerAuto marks a clean started by the threshold policy.
	TriggerAuto Trigger = "auto"

	// TriggerManual marks a user-initiated clean.
	TriggerManual Trigger = "manual"
)

// ErrorKind classifies a failed clean for the UI boundary.
type ErrorKind string

const (
	ErrKindInsufficientPrivilege ErrorKind = "insufficient_privilege"
	ErrKindPartialFailure        ErrorKind = "partial_failure"
	ErrKindRelease               ErrorKind = "release_error"
)

// KindOf maps a release error to its ErrorKind. Returns "" for nil.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientPrivilege):
		return ErrKindInsufficientPrivilege
	case errors.Is(err, ErrPartialFailure):
		return ErrKindPartialFailure
	default:
		return ErrKindRelease
	}
}

// CleanResult is the outcome of one release invocation. It is handed to
// the UI boundary by value and retained as "last result" until superseded.
type CleanResult struct {
	ID              string         `json:"id"`
	Trigger         Trigger        `json:"trigger"`
	Success         bool           `json:"success"`
	FreedMBEstimate *int64         `json:"freed_mb_estimate,omitempty"`
	DurationMS      int64          `json:"duration_ms"`
	StartedAt       time.Time      `json:"started_at"`
	ErrorKind       ErrorKind      `json:"error_kind,omitempty"`
	ErrorDetail     string         `json:"error_detail,omitempty"`
	TempClean       *TempCleanStat `json:"temp_clean,omitempty"`
}

// TempCleanStat reports the supplementary temp-directory clean.
type TempCleanStat struct {
	FilesRemoved int64 `json:"files_removed"`
	BytesRemoved int64 `json:"bytes_removed"`
	Skipped      int64 `json:"skipped"`
}

// Releaser invokes the OS cache-trim primitives. The returned estimate is
// in MB; a negative value means no estimate is available. Duration is
// inherently variable (2-10s observed) because it depends on OS internals;
// callers must not assume a fixed latency.
type Releaser interface {
	Release(ctx context.Context) (freedMB int64, err error)
}

// SystemReleaser trims the host OS caches. It measures available memory
// before and after the trim to produce the freed estimate; the OS decides
// how much it actually gives back.
type SystemReleaser struct {
	reader meminfo.Reader
}

// NewSystemReleaser returns a Releaser backed by the host OS.
// The reader is used only for the freed-memory estimate and may be nil.
func NewSystemReleaser(reader meminfo.Reader) *SystemReleaser {
	return &SystemReleaser{reader: reader}
}

// Release runs the platform trim primitives. The context is consulted
// between primitives only; an individual OS call is not interruptible.
func (r *SystemReleaser) Release(ctx context.Context) (int64, error) {
	before, haveBefore := r.availableMB()

	if err := releaseSystemCache(ctx); err != nil {
		return -1, err
	}

	after, haveAfter := r.availableMB()
	if !haveBefore || !haveAfter {
		return -1, nil
	}

	freed := after - before
	if freed < 0 {
		freed = 0
	}
	return freed, nil
}

// availableMB reads available memory, tolerating reader absence or failure.
func (r *SystemReleaser) availableMB() (int64, bool) {
	if r.reader == nil {
		return 0, false
	}
	snap, err := r.reader.Read()
	if err != nil {
		return 0, false
	}
	return snap.TotalMB - snap.UsedMB, true
}

// wrapOSError classifies an OS error from a release primitive.
func wrapOSError(op string, err error) error {
	if errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("%w: %s: %v", ErrInsufficientPrivilege, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrRelease, op, err)
}
