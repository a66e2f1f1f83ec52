//go:build !linux && !darwin

package meminfo

// readSystemMemory is not implemented on this platform.
func readSystemMemory() (total, available int64, err error) {
	return 0, 0, ErrUnsupported
}
