package sshconfig

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeAtomic writes data next to path and renames it into place.
// MoveFileEx replaces the target but is not atomic across volumes.
func writeAtomic(path string, data []byte, snap snapshot) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPathNotWritable, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrPathNotWritable, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: %v", ErrPathNotWritable, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrPathNotWritable, err)
	}
	if info, statErr := os.Stat(path); !snap.matches(info, statErr) {
		err = fmt.Errorf("%w: %s", ErrConcurrentModification, path)
		return err
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: %v", ErrPathNotWritable, err)
	}
	return nil
}
