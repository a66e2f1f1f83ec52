//go:build linux

package meminfo

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// readSystemMemory returns total and available physical memory in bytes.
// Total comes from sysinfo(2). Available is read from /proc/meminfo's
// MemAvailable line, which accounts for reclaimable page cache; sysinfo's
// freeram does not and would overstate pressure on a healthy system.
func readSystemMemory() (total, available int64, err error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, 0, fmt.Errorf("sysinfo: %w", err)
	}

	total = int64(info.Totalram) * int64(info.Unit)

	available, err = readMemAvailable()
	if err != nil {
		// Older kernels lack MemAvailable; fall back to free + buffers.
		available = (int64(info.Freeram) + int64(info.Bufferram)) * int64(info.Unit)
	}

	return total, available, nil
}

// readMemAvailable parses the MemAvailable field from /proc/meminfo.
// The value is reported in kB.
func readMemAvailable() (int64, error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, fmt.Errorf("malformed MemAvailable line: %q", line)
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing MemAvailable: %w", err)
		}
		return kb * 1024, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("MemAvailable not present in /proc/meminfo")
}
