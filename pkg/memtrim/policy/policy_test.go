package policy

import (
	"testing"
	"time"

	"github.com/jamesainslie/memtrim/pkg/memtrim/meminfo"
)

func snap(usedMB int64) meminfo.Snapshot {
	return meminfo.Snapshot{
		UsedMB:      usedMB,
		TotalMB:     16384,
		UsedPercent: float64(usedMB) / 16384 * 100,
		Timestamp:   time.Now(),
	}
}

func TestDecide(t *testing.T) {
	thresholds := Thresholds{StartMB: 4096, StopMB: 2048, AutoCleanEnabled: true}

	tests := []struct {
		name       string
		usedMB     int64
		thresholds Thresholds
		state      State
		wantAction Action
		wantState  State
	}{
		{
			name:       "idle below start",
			usedMB:     3000,
			thresholds: thresholds,
			state:      Idle,
			wantAction: NoAction,
			wantState:  Idle,
		},
		{
			name:       "idle at start threshold",
			usedMB:     4096,
			thresholds: thresholds,
			state:      Idle,
			wantAction: StartClean,
			wantState:  Cleaning,
		},
		{
			name:       "idle above start threshold",
			usedMB:     4200,
			thresholds: thresholds,
			state:      Idle,
			wantAction: StartClean,
			wantState:  Cleaning,
		},
		{
			name:       "idle auto-clean disabled",
			usedMB:     8000,
			thresholds: Thresholds{StartMB: 4096, StopMB: 2048, AutoCleanEnabled: false},
			state:      Idle,
			wantAction: NoAction,
			wantState:  Idle,
		},
		{
			name:       "cleaning above stop keeps waiting",
			usedMB:     3000,
			thresholds: thresholds,
			state:      Cleaning,
			wantAction: ContinueWaiting,
			wantState:  Cleaning,
		},
		{
			name:       "cleaning at stop threshold re-arms",
			usedMB:     2048,
			thresholds: thresholds,
			state:      Cleaning,
			wantAction: NoAction,
			wantState:  Idle,
		},
		{
			name:       "cleaning below stop threshold re-arms",
			usedMB:     1800,
			thresholds: thresholds,
			state:      Cleaning,
			wantAction: NoAction,
			wantState:  Idle,
		},
		{
			name:       "cleaning ignores disabled flag until goal reached",
			usedMB:     3000,
			thresholds: Thresholds{StartMB: 4096, StopMB: 2048, AutoCleanEnabled: false},
			state:      Cleaning,
			wantAction: ContinueWaiting,
			wantState:  Cleaning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, state := Decide(snap(tt.usedMB), tt.thresholds, tt.state)
			if action != tt.wantAction {
				t.Errorf("action = %v, want %v", action, tt.wantAction)
			}
			if state != tt.wantState {
				t.Errorf("state = %v, want %v", state, tt.wantState)
			}
		})
	}
}

func TestDecideStaleSnapshotNeverStarts(t *testing.T) {
	thresholds := Thresholds{StartMB: 4096, StopMB: 2048, AutoCleanEnabled: true}

	stale := snap(8000).MarkStale()
	action, state := Decide(stale, thresholds, Idle)
	if action != NoAction || state != Idle {
		t.Errorf("stale snapshot: action = %v state = %v, want NoAction/Idle", action, state)
	}

	// A stale reading while Cleaning still follows the usage comparison;
	// the carried-over value is the best information available.
	action, state = Decide(stale, thresholds, Cleaning)
	if action != ContinueWaiting || state != Cleaning {
		t.Errorf("stale while cleaning: action = %v state = %v, want ContinueWaiting/Cleaning", action, state)
	}
}

// TestDecideFullCycle walks the scenario from the design discussion:
// breach, wait through the dead zone, re-arm, breach again.
func TestDecideFullCycle(t *testing.T) {
	thresholds := Thresholds{StartMB: 4096, StopMB: 2048, AutoCleanEnabled: true}
	state := Idle

	action, state := Decide(snap(4200), thresholds, state)
	if action != StartClean || state != Cleaning {
		t.Fatalf("tick 1: got %v/%v, want StartClean/Cleaning", action, state)
	}

	action, state = Decide(snap(3000), thresholds, state)
	if action != ContinueWaiting || state != Cleaning {
		t.Fatalf("tick 2: got %v/%v, want ContinueWaiting/Cleaning", action, state)
	}

	action, state = Decide(snap(1800), thresholds, state)
	if action != NoAction || state != Idle {
		t.Fatalf("tick 3: got %v/%v, want NoAction/Idle", action, state)
	}

	action, state = Decide(snap(4300), thresholds, state)
	if action != StartClean || state != Cleaning {
		t.Fatalf("tick 4: got %v/%v, want StartClean/Cleaning", action, state)
	}
}

func TestStateAndActionStrings(t *testing.T) {
	if Idle.String() != "idle" || Cleaning.String() != "cleaning" {
		t.Error("unexpected State string values")
	}
	if StartClean.String() != "start_clean" || ContinueWaiting.String() != "continue_waiting" {
		t.Error("unexpected Action string values")
	}
}
