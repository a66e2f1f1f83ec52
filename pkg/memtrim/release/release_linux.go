//go:build linux

package release

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	dropCachesPath    = "/proc/sys/vm/drop_caches"
	compactMemoryPath = "/proc/sys/vm/compact_memory"
)

// releaseSystemCache trims the kernel page cache and reclaimable slab
// objects, then asks the kernel to compact memory. Writing to
// /proc/sys/vm/drop_caches requires root.
//
// Dirty pages are synced first; drop_caches only releases clean pages.
func releaseSystemCache(ctx context.Context) error {
	unix.Sync()

	var failed []error
	succeeded := 0

	// "1" drops the page cache, "2" drops dentries and inodes. Written
	// separately so a failure in one still lets the other reclaim.
	for _, step := range []struct {
		path  string
		value string
	}{
		{dropCachesPath, "1"},
		{dropCachesPath, "2"},
	} {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRelease, err)
		}
		if err := writeSysctl(step.path, step.value); err != nil {
			failed = append(failed, wrapOSError(step.path+"="+step.value, err))
			continue
		}
		succeeded++
	}

	// Compaction is best-effort; the file is absent on kernels built
	// without CONFIG_COMPACTION.
	if err := writeSysctl(compactMemoryPath, "1"); err != nil && !os.IsNotExist(err) {
		failed = append(failed, wrapOSError(compactMemoryPath, err))
	}

	switch {
	case len(failed) == 0:
		return nil
	case succeeded == 0:
		// Nothing worked; surface the strongest classification.
		for _, err := range failed {
			if errors.Is(err, ErrInsufficientPrivilege) {
				return err
			}
		}
		return failed[0]
	default:
		return fmt.Errorf("%w: %v", ErrPartialFailure, errors.Join(failed...))
	}
}

// writeSysctl writes a value to a /proc/sys file.
func writeSysctl(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteString(value); err != nil {
		return err
	}
	return nil
}
