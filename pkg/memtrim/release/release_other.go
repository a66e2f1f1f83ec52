//go:build !linux && !darwin

package release

import "context"

// releaseSystemCache is not implemented on this platform.
func releaseSystemCache(_ context.Context) error {
	return ErrUnsupported
}
