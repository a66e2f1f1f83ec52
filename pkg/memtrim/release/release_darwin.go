//go:build darwin

package release

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const purgeBinary = "/usr/sbin/purge"

// releaseSystemCache forces the disk cache to be purged via purge(8),
// which is the supported way to flush the unified buffer cache on macOS.
// purge requires root on modern releases.
func releaseSystemCache(ctx context.Context) error {
	if _, err := os.Stat(purgeBinary); err != nil {
		return fmt.Errorf("%w: %s not found", ErrUnsupported, purgeBinary)
	}

	// The process itself is not interruptible once started; the context
	// bounds only how long we wait before giving up on the fork.
	cmd := exec.CommandContext(ctx, purgeBinary)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if strings.Contains(msg, "Operation not permitted") || os.Geteuid() != 0 {
			return fmt.Errorf("%w: purge: %s", ErrInsufficientPrivilege, msg)
		}
		return wrapOSError("purge", err)
	}
	return nil
}
