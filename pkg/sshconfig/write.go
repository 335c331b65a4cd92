//go:build !windows

package sshconfig

import (
	"fmt"
	"os"

	"github.com/google/renameio/v2"
)

// writeAtomic replaces path with data through a pending file in the same
// directory. The rename is skipped when path changed since snap was taken.
func writeAtomic(path string, data []byte, snap snapshot) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithStaticPermissions(snap.mode))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPathNotWritable, err)
	}
	defer func() {
		_ = pending.Cleanup()
	}()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrPathNotWritable, err)
	}
	if info, statErr := os.Stat(path); !snap.matches(info, statErr) {
		return fmt.Errorf("%w: %s", ErrConcurrentModification, path)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("%w: %v", ErrPathNotWritable, err)
	}
	return nil
}
