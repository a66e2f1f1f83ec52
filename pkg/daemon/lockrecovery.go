package daemon

import (
	"os"
	"path/filepath"

	"github.com/jamesainslie/memtrim/pkg/memtrim/logging"
)

// RecoverFromStaleDaemon cleans up artifacts left by a crashed daemon:
// the PID file, the unix socket, and the journal's Badger lock. Returns
// ErrDaemonAlreadyRunning if the PID file names a live process.
func RecoverFromStaleDaemon(pidPath, socketPath, journalPath string) error {
	pid, err := ReadPIDFile(pidPath)
	if err != nil {
		// No PID file or unreadable PID: nothing to recover.
		return nil //nolint:nilerr // missing PID file is not an error here
	}

	if IsProcessRunning(pid) {
		return ErrDaemonAlreadyRunning
	}

	logging.Get("daemon").Warn("cleaning up stale daemon files", "stale_pid", pid)

	_ = os.Remove(pidPath)
	_ = os.Remove(socketPath)
	_ = os.Remove(filepath.Join(journalPath, "LOCK"))

	return nil
}
