// Package policy holds the threshold decision logic for auto-clean.
// Decide is a pure function so the hysteresis behavior can be tested
// without touching any real OS call.
package policy

import "github.com/jamesainslie/memtrim/pkg/memtrim/meminfo"

// State is the controller's run-state.
type State int

const (
	// Idle means no clean is in progress.
	Idle State = iota

	// Cleaning means a clean has been triggered and the controller is
	// waiting for usage to drop to the stop threshold. This is the
	// hysteresis memory that prevents start/stop chatter at a single
	// boundary.
	Cleaning
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Cleaning:
		return "cleaning"
	default:
		return "unknown"
	}
}

// Action is the outcome of a policy decision.
type Action int

const (
	// NoAction means nothing to do this tick.
	NoAction Action = iota

	// StartClean means usage crossed the start threshold; the controller
	// should invoke the releaser and transition to Cleaning.
	StartClean

	// ContinueWaiting means a clean is outstanding and usage has not yet
	// dropped to the stop threshold. No new release is issued.
	ContinueWaiting
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case NoAction:
		return "no_action"
	case StartClean:
		return "start_clean"
	case ContinueWaiting:
		return "continue_waiting"
	default:
		return "unknown"
	}
}

// Thresholds is the subset of configuration the policy consults.
type Thresholds struct {
	// StartMB triggers a clean when used memory reaches it.
	StartMB int64

	// StopMB re-arms the policy once used memory drops to it.
	// Must be strictly below StartMB.
	StopMB int64

	// AutoCleanEnabled gates automatic cleaning entirely.
	AutoCleanEnabled bool
}

// Decide evaluates one poll tick. It returns the action to take and the
// state the controller should carry into the next tick.
//
// A single threshold oscillates: cleaning fires, usage dips just under the
// line, and the next tick fires again. The stop threshold sits strictly
// below the start threshold so the system must traverse the dead zone
// before re-arming. Only one release is issued per Idle->Cleaning
// transition; while Cleaning, the policy waits rather than re-triggering.
func Decide(snap meminfo.Snapshot, t Thresholds, current State) (Action, State) {
	switch current {
	case Cleaning:
		if snap.UsedMB <= t.StopMB {
			// Cleaning goal reached; re-arm.
			return NoAction, Idle
		}
		return ContinueWaiting, Cleaning

	default: // Idle
		if !t.AutoCleanEnabled {
			return NoAction, Idle
		}
		if snap.Stale {
			// Never trigger off a reading we could not refresh.
			return NoAction, Idle
		}
		if snap.UsedMB < t.StartMB {
			return NoAction, Idle
		}
		return StartClean, Cleaning
	}
}
