package sshconfig

import "errors"

var (
	// ErrPathNotWritable is returned when the config directory is missing
	// or the file cannot be read or replaced
	ErrPathNotWritable = errors.New("ssh config path not writable")
	// ErrCorruptManagedRegion is returned when the region markers are unbalanced,
	// nested or repeated
	ErrCorruptManagedRegion = errors.New("corrupt managed region")
	// ErrDuplicateAlias is returned when two entries share an alias
	ErrDuplicateAlias = errors.New("duplicate host alias")
	// ErrInvalidEntry is returned for entries that cannot be rendered safely
	ErrInvalidEntry = errors.New("invalid host entry")
	// ErrConcurrentModification is returned when the file changed between read and write
	ErrConcurrentModification = errors.New("ssh config modified concurrently")
)
