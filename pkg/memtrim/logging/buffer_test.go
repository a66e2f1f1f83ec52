package logging_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/jamesainslie/memtrim/pkg/memtrim/logging"
)

func makeEntry(msg string) logging.Entry {
	return logging.Entry{
		Time:      time.Now(),
		Level:     logging.LevelInfo,
		Component: "monitor",
		Message:   msg,
	}
}

func TestBufferAddAndEntries(t *testing.T) {
	t.Parallel()

	buf := logging.NewBuffer(5)

	for i := 0; i < 3; i++ {
		buf.Add(makeEntry(fmt.Sprintf("msg-%d", i)))
	}

	entries := buf.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Message != "msg-0" || entries[2].Message != "msg-2" {
		t.Errorf("entries out of order: %v", entries)
	}
}

func TestBufferWrapsWhenFull(t *testing.T) {
	t.Parallel()

	buf := logging.NewBuffer(3)

	for i := 0; i < 5; i++ {
		buf.Add(makeEntry(fmt.Sprintf("msg-%d", i)))
	}

	entries := buf.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries after wrap, got %d", len(entries))
	}
	if entries[0].Message != "msg-2" {
		t.Errorf("oldest entry should be msg-2, got %s", entries[0].Message)
	}
	if entries[2].Message != "msg-4" {
		t.Errorf("newest entry should be msg-4, got %s", entries[2].Message)
	}
}

func TestBufferLast(t *testing.T) {
	t.Parallel()

	buf := logging.NewBuffer(10)
	for i := 0; i < 6; i++ {
		buf.Add(makeEntry(fmt.Sprintf("msg-%d", i)))
	}

	last := buf.Last(2)
	if len(last) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(last))
	}
	if last[0].Message != "msg-4" || last[1].Message != "msg-5" {
		t.Errorf("Last(2) returned wrong entries: %v", last)
	}

	all := buf.Last(100)
	if len(all) != 6 {
		t.Errorf("Last(100) should return all 6 entries, got %d", len(all))
	}
}

func TestBufferClear(t *testing.T) {
	t.Parallel()

	buf := logging.NewBuffer(5)
	buf.Add(makeEntry("msg"))
	buf.Clear()

	if buf.Len() != 0 {
		t.Errorf("expected empty buffer after Clear, got %d entries", buf.Len())
	}
	if entries := buf.Entries(); len(entries) != 0 {
		t.Errorf("Entries() should be empty after Clear, got %v", entries)
	}
}
