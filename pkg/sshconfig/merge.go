package sshconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/projectdiscovery/gologger"
	envutil "github.com/projectdiscovery/utils/env"
	fileutil "github.com/projectdiscovery/utils/file"
)

const newFileMode fs.FileMode = 0o600

// Merger writes host entries into the managed region of a config file.
// Merges to the same path must be serialized by the caller.
type Merger struct {
	// Marker names the region, DefaultMarker when empty
	Marker string
}

// NewMerger creates a merger for the given region marker
func NewMerger(marker string) *Merger {
	return &Merger{Marker: marker}
}

// Merge replaces the managed region of the file at path with entries using
// the default marker. A missing file is treated as empty.
func Merge(path string, entries []HostEntry) error {
	return NewMerger(DefaultMarker).Merge(path, entries)
}

// DefaultPath returns $SSH_CONFIG, or ~/.ssh/config
func DefaultPath() string {
	if path := envutil.GetEnvOrDefault("SSH_CONFIG", ""); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = envutil.GetEnvOrDefault("HOME", ".")
	}
	return filepath.Join(home, ".ssh", "config")
}

type snapshot struct {
	exists  bool
	mode    fs.FileMode
	size    int64
	modTime time.Time
}

func (s snapshot) matches(info fs.FileInfo, err error) bool {
	if !s.exists {
		return errors.Is(err, fs.ErrNotExist)
	}
	if err != nil {
		return false
	}
	return info.Size() == s.size && info.ModTime().Equal(s.modTime)
}

// Merge replaces the managed region of the file at path with entries.
// Nothing is written when validation or parsing fails, or when the
// result is identical to the current content.
func (m *Merger) Merge(path string, entries []HostEntry) error {
	if err := ValidateEntries(entries); err != nil {
		return err
	}

	// a symlinked config is updated in place so the link survives
	path, err := resolvePath(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if !fileutil.FolderExists(dir) {
		return fmt.Errorf("%w: directory %s does not exist", ErrPathNotWritable, dir)
	}

	data, snap, err := readConfig(path)
	if err != nil {
		return err
	}

	doc, err := Parse(data, m.Marker)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := doc.SetManaged(entries); err != nil {
		return err
	}

	out := doc.Bytes()
	if snap.exists && bytes.Equal(out, data) {
		gologger.Verbose().Msgf("%s already up to date", path)
		return nil
	}
	if err := writeAtomic(path, out, snap); err != nil {
		return err
	}
	gologger.Verbose().Msgf("wrote %d entries to %s", len(entries), path)
	return nil
}

// resolvePath follows symlinks in path. A dangling link resolves to the
// file it points at so that the first write creates it.
func resolvePath(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %v", ErrPathNotWritable, err)
	}
	target, linkErr := os.Readlink(path)
	if linkErr != nil {
		return path, nil
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(path), target)
	}
	return target, nil
}

func readConfig(path string) ([]byte, snapshot, error) {
	snap := snapshot{mode: newFileMode}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, snap, nil
	case errors.Is(err, fs.ErrPermission):
		return nil, snap, fmt.Errorf("%w: %v", ErrPathNotWritable, err)
	case err != nil:
		return nil, snap, fmt.Errorf("could not stat %s: %w", path, err)
	case info.IsDir():
		return nil, snap, fmt.Errorf("%w: %s is a directory", ErrPathNotWritable, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, snap, fmt.Errorf("%w: %v", ErrPathNotWritable, err)
		}
		return nil, snap, fmt.Errorf("could not read %s: %w", path, err)
	}

	snap.exists = true
	snap.mode = info.Mode().Perm()
	snap.size = info.Size()
	snap.modTime = info.ModTime()
	return data, snap, nil
}
