//go:build darwin

package meminfo

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// readSystemMemory returns total and available physical memory in bytes.
// Total comes from the hw.memsize sysctl. Available is estimated from the
// free and inactive page counts; inactive pages are reclaimable on macOS,
// so counting only free pages would overstate pressure the same way
// ignoring the page cache would on Linux.
func readSystemMemory() (total, available int64, err error) {
	memsize, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return 0, 0, fmt.Errorf("sysctl hw.memsize: %w", err)
	}
	total = int64(memsize)

	pageSize, err := unix.SysctlUint32("hw.pagesize")
	if err != nil {
		return 0, 0, fmt.Errorf("sysctl hw.pagesize: %w", err)
	}

	free, err := unix.SysctlUint32("vm.page_free_count")
	if err != nil {
		return 0, 0, fmt.Errorf("sysctl vm.page_free_count: %w", err)
	}

	// Purgeable pages are reclaimable without I/O. Not all kernels expose
	// the sysctl; treat absence as zero rather than failing the reading.
	purgeable, err := unix.SysctlUint32("vm.page_purgeable_count")
	if err != nil {
		purgeable = 0
	}

	available = (int64(free) + int64(purgeable)) * int64(pageSize)
	return total, available, nil
}
