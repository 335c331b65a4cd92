package sshconfig

import (
	"fmt"
	"strings"
)

const indent = "    "

// Option is a single extra `Key Value` line of a host block
type Option struct {
	Key   string
	Value string
}

// HostEntry is one `Host` block written into the managed region
type HostEntry struct {
	Alias    string
	HostName string
	// User is omitted from the block when empty
	User string
	// Options are rendered after HostName and User in the given order
	Options []Option
}

// Validate checks that the entry renders to a well formed block
func (e HostEntry) Validate() error {
	if e.Alias == "" || hasSpace(e.Alias) {
		return fmt.Errorf("%w: alias %q", ErrInvalidEntry, e.Alias)
	}
	if e.HostName == "" || hasSpace(e.HostName) {
		return fmt.Errorf("%w: %s: hostname %q", ErrInvalidEntry, e.Alias, e.HostName)
	}
	if hasSpace(e.User) {
		return fmt.Errorf("%w: %s: user %q", ErrInvalidEntry, e.Alias, e.User)
	}
	for _, opt := range e.Options {
		if opt.Key == "" || hasSpace(opt.Key) {
			return fmt.Errorf("%w: %s: option key %q", ErrInvalidEntry, e.Alias, opt.Key)
		}
		if strings.ContainsAny(opt.Value, "\r\n") || strings.TrimSpace(opt.Value) == "" {
			return fmt.Errorf("%w: %s: option %s value %q", ErrInvalidEntry, e.Alias, opt.Key, opt.Value)
		}
		switch strings.ToLower(opt.Key) {
		case "host", "match", "hostname", "user":
			return fmt.Errorf("%w: %s: option %s is reserved", ErrInvalidEntry, e.Alias, opt.Key)
		}
	}
	return nil
}

// ValidateEntries validates every entry and the uniqueness of their aliases
func ValidateEntries(entries []HostEntry) error {
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			return err
		}
		if _, ok := seen[entry.Alias]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateAlias, entry.Alias)
		}
		seen[entry.Alias] = struct{}{}
	}
	return nil
}

func (e HostEntry) render(sb *strings.Builder) {
	sb.WriteString("Host " + e.Alias + "\n")
	sb.WriteString(indent + "HostName " + e.HostName + "\n")
	if e.User != "" {
		sb.WriteString(indent + "User " + e.User + "\n")
	}
	for _, opt := range e.Options {
		sb.WriteString(indent + opt.Key + " " + opt.Value + "\n")
	}
}

// String renders the entry as it appears in the config file
func (e HostEntry) String() string {
	var sb strings.Builder
	e.render(&sb)
	return sb.String()
}

func hasSpace(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
	}) >= 0
}
