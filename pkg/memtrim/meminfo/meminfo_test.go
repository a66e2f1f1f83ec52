package meminfo

import (
	"runtime"
	"testing"
	"time"
)

func TestSystemReaderRead(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("no memory query implementation on this platform")
	}

	r := NewSystemReader()
	snap, err := r.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if snap.TotalMB <= 0 {
		t.Errorf("TotalMB = %d, want > 0", snap.TotalMB)
	}
	if snap.UsedMB < 0 || snap.UsedMB > snap.TotalMB {
		t.Errorf("UsedMB = %d, want within [0, %d]", snap.UsedMB, snap.TotalMB)
	}
	if snap.UsedPercent < 0 || snap.UsedPercent > 100 {
		t.Errorf("UsedPercent = %f, want within [0, 100]", snap.UsedPercent)
	}
	if snap.Stale {
		t.Error("fresh snapshot marked stale")
	}
	if snap.Timestamp.IsZero() {
		t.Error("Timestamp is zero")
	}
}

func TestSystemReaderReadIsFast(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("no memory query implementation on this platform")
	}

	r := NewSystemReader()
	start := time.Now()
	if _, err := r.Read(); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	// The reading runs on every poll tick and must stay well under the
	// poll interval.
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Read() took %v, want < 1s", elapsed)
	}
}

func TestMarkStale(t *testing.T) {
	orig := Snapshot{
		UsedMB:      4096,
		TotalMB:     16384,
		UsedPercent: 25.0,
		Timestamp:   time.Now().Add(-time.Minute),
	}

	stale := orig.MarkStale()

	if !stale.Stale {
		t.Error("MarkStale() did not set Stale")
	}
	if stale.UsedMB != orig.UsedMB || stale.TotalMB != orig.TotalMB {
		t.Error("MarkStale() altered memory values")
	}
	if !stale.Timestamp.After(orig.Timestamp) {
		t.Error("MarkStale() did not refresh timestamp")
	}
	if orig.Stale {
		t.Error("original snapshot mutated")
	}
}

