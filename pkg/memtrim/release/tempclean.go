package release

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"
)

// TempCleaner removes expendable files from temp and cache directories.
// It complements the OS cache trim: standby pages come back on their own,
// stale temp files do not. Files in use (or otherwise undeletable) are
// skipped, never treated as errors.
type TempCleaner struct {
	dirs   []string
	minAge time.Duration

	filesRemoved atomic.Int64
	bytesRemoved atomic.Int64
	skipped      atomic.Int64
}

// NewTempCleaner returns a cleaner for the given directories. Files newer
// than minAge are left alone so active programs keep their scratch space.
func NewTempCleaner(dirs []string, minAge time.Duration) *TempCleaner {
	return &TempCleaner{dirs: dirs, minAge: minAge}
}

// DefaultTempDirs returns the directories cleaned when none are configured.
func DefaultTempDirs() []string {
	return []string{os.TempDir()}
}

// Clean walks the configured directories and removes old regular files.
// Empty directories left behind are removed on a second pass per root.
func (tc *TempCleaner) Clean(ctx context.Context) (TempCleanStat, error) {
	tc.filesRemoved.Store(0)
	tc.bytesRemoved.Store(0)
	tc.skipped.Store(0)

	cutoff := time.Now().Add(-tc.minAge)
	conf := fastwalk.Config{
		Follow: false, // never follow symlinks out of the temp tree
	}

	for _, dir := range tc.dirs {
		if err := ctx.Err(); err != nil {
			return tc.stat(), err
		}
		if _, err := os.Stat(dir); err != nil {
			continue
		}

		err := fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				tc.skipped.Add(1)
				return nil
			}
			if path == dir || d.IsDir() || !d.Type().IsRegular() {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				tc.skipped.Add(1)
				return nil
			}
			if info.ModTime().After(cutoff) {
				tc.skipped.Add(1)
				return nil
			}

			size := info.Size()
			if err := os.Remove(path); err != nil {
				tc.skipped.Add(1)
				return nil
			}
			tc.filesRemoved.Add(1)
			tc.bytesRemoved.Add(size)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return tc.stat(), wrapOSError("tempclean "+dir, err)
		}

		tc.pruneEmptyDirs(dir)
	}

	return tc.stat(), nil
}

// pruneEmptyDirs removes directories emptied by the clean, deepest first.
// Failures are ignored; a non-empty or busy directory just stays.
func (tc *TempCleaner) pruneEmptyDirs(root string) {
	var mu sync.Mutex
	var dirs []string
	conf := fastwalk.Config{Follow: false}
	_ = fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() && path != root {
			mu.Lock()
			dirs = append(dirs, path)
			mu.Unlock()
		}
		return nil
	})

	// Deepest paths first so children go before their parents.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		_ = os.Remove(dir)
	}
}

func (tc *TempCleaner) stat() TempCleanStat {
	return TempCleanStat{
		FilesRemoved: tc.filesRemoved.Load(),
		BytesRemoved: tc.bytesRemoved.Load(),
		Skipped:      tc.skipped.Load(),
	}
}
