package daemon_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jamesainslie/memtrim/pkg/daemon"
)

func TestStatusFileReady(t *testing.T) {
	t.Parallel()

	path := daemon.StatusPath(t.TempDir())

	if err := daemon.WriteStatusReady(path); err != nil {
		t.Fatalf("WriteStatusReady() error = %v", err)
	}

	status, err := daemon.ReadStatus(path)
	if err != nil {
		t.Fatalf("ReadStatus() error = %v", err)
	}
	if status.Status != "ready" {
		t.Errorf("status = %q, want ready", status.Status)
	}
	if status.PID != os.Getpid() {
		t.Errorf("pid = %d, want %d", status.PID, os.Getpid())
	}
}

func TestStatusFileError(t *testing.T) {
	t.Parallel()

	path := daemon.StatusPath(t.TempDir())

	if err := daemon.WriteStatusError(path, errors.New("socket bind failed")); err != nil {
		t.Fatalf("WriteStatusError() error = %v", err)
	}

	status, err := daemon.ReadStatus(path)
	if err != nil {
		t.Fatalf("ReadStatus() error = %v", err)
	}
	if status.Status != "error" {
		t.Errorf("status = %q, want error", status.Status)
	}
	if status.Error != "socket bind failed" {
		t.Errorf("error = %q", status.Error)
	}
}

func TestStatusFileRemove(t *testing.T) {
	t.Parallel()

	path := daemon.StatusPath(t.TempDir())
	if err := daemon.WriteStatusReady(path); err != nil {
		t.Fatal(err)
	}
	if err := daemon.RemoveStatus(path); err != nil {
		t.Fatalf("RemoveStatus() error = %v", err)
	}
	if _, err := daemon.ReadStatus(path); err == nil {
		t.Error("ReadStatus() should fail after removal")
	}
}

func TestStatusPath(t *testing.T) {
	t.Parallel()

	path := daemon.StatusPath("/var/lib/memtrim")
	if path != filepath.Join("/var/lib/memtrim", "memtrimd.status") {
		t.Errorf("StatusPath() = %s", path)
	}
}
