package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/memtrim/pkg/memtrim/release"
)

func testResult(startedAt time.Time, trigger release.Trigger, success bool) release.CleanResult {
	freed := int64(512)
	return release.CleanResult{
		ID:              uuid.NewString(),
		Trigger:         trigger,
		Success:         success,
		FreedMBEstimate: &freed,
		DurationMS:      4200,
		StartedAt:       startedAt,
	}
}

func openTestJournal(t *testing.T, maxEntries int) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal"), maxEntries)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournalAppendAndRecent(t *testing.T) {
	j := openTestJournal(t, 10)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		r := testResult(base.Add(time.Duration(i)*time.Minute), release.TriggerAuto, true)
		if err := j.Append(r); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	results, err := j.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}

	// Newest first.
	for i := 1; i < len(results); i++ {
		if results[i].StartedAt.After(results[i-1].StartedAt) {
			t.Errorf("results out of order at index %d", i)
		}
	}
}

func TestJournalRecentLimit(t *testing.T) {
	j := openTestJournal(t, 100)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		if err := j.Append(testResult(base.Add(time.Duration(i)*time.Second), release.TriggerManual, true)); err != nil {
			t.Fatal(err)
		}
	}

	results, err := j.Recent(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("len(results) = %d, want 2", len(results))
	}
}

func TestJournalPrunesBeyondMaxEntries(t *testing.T) {
	j := openTestJournal(t, 3)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 6; i++ {
		if err := j.Append(testResult(base.Add(time.Duration(i)*time.Second), release.TriggerAuto, true)); err != nil {
			t.Fatal(err)
		}
	}

	count, err := j.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3 after pruning", count)
	}

	// The retained entries are the newest ones.
	results, err := j.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	oldest := base.Add(3 * time.Second)
	for _, r := range results {
		if r.StartedAt.Before(oldest.Add(-time.Millisecond)) {
			t.Errorf("pruning kept an old entry from %v", r.StartedAt)
		}
	}
}

func TestJournalPersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "journal")

	j, err := Open(dir, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := testResult(time.Now(), release.TriggerManual, false)
	want.ErrorKind = release.ErrKindPartialFailure
	want.ErrorDetail = "one of two primitives failed"
	if err := j.Append(want); err != nil {
		t.Fatal(err)
	}
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}

	j, err = Open(dir, 10)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	results, err := j.Recent(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	got := results[0]
	if got.ID != want.ID || got.ErrorKind != want.ErrorKind || got.Success {
		t.Errorf("reloaded result = %+v, want %+v", got, want)
	}
}
