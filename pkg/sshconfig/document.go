package sshconfig

import (
	"fmt"
	"strings"
)

// DefaultMarker names the managed region in the begin/end comment lines
const DefaultMarker = "find-sshable"

// Segment is either Unmanaged or *Managed
type Segment interface {
	text() string
}

// Unmanaged is free text owned by the user, kept byte for byte
type Unmanaged struct {
	Text string
}

func (u Unmanaged) text() string { return u.Text }

// Managed is the region owned by find-sshable
type Managed struct {
	Entries []HostEntry

	marker string
	// raw is the original text of the region, used until Entries are replaced
	raw   string
	dirty bool
}

func (m *Managed) text() string {
	if !m.dirty {
		return m.raw
	}
	var sb strings.Builder
	sb.WriteString(beginLine(m.marker) + "\n")
	for i, entry := range m.Entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		entry.render(&sb)
	}
	sb.WriteString(endLine(m.marker) + "\n")
	return sb.String()
}

// Document is a parsed ssh config file
type Document struct {
	Segments []Segment

	marker string
}

func beginLine(marker string) string { return "# BEGIN " + marker }
func endLine(marker string) string   { return "# END " + marker }

// Parse splits data into unmanaged text and at most one managed region.
// Markers are recognized on whitespace trimmed lines.
func Parse(data []byte, marker string) (*Document, error) {
	if marker == "" {
		marker = DefaultMarker
	}
	begin, end := beginLine(marker), endLine(marker)

	doc := &Document{marker: marker}
	var (
		free    strings.Builder
		region  strings.Builder
		inside  bool
		regions int
		startAt int
	)

	lines := strings.SplitAfter(string(data), "\n")
	for i, line := range lines {
		if line == "" {
			continue
		}
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == begin:
			if inside {
				return nil, fmt.Errorf("%w: nested begin marker at line %d", ErrCorruptManagedRegion, i+1)
			}
			if regions > 0 {
				return nil, fmt.Errorf("%w: second managed region at line %d", ErrCorruptManagedRegion, i+1)
			}
			if free.Len() > 0 {
				doc.Segments = append(doc.Segments, Unmanaged{Text: free.String()})
				free.Reset()
			}
			inside = true
			startAt = i + 1
			region.WriteString(line)
		case trimmed == end:
			if !inside {
				return nil, fmt.Errorf("%w: end marker without begin at line %d", ErrCorruptManagedRegion, i+1)
			}
			region.WriteString(line)
			raw := region.String()
			doc.Segments = append(doc.Segments, &Managed{
				Entries: parseEntries(raw),
				marker:  marker,
				raw:     raw,
			})
			region.Reset()
			inside = false
			regions++
		case inside:
			region.WriteString(line)
		default:
			free.WriteString(line)
		}
	}
	if inside {
		return nil, fmt.Errorf("%w: begin marker at line %d has no end", ErrCorruptManagedRegion, startAt)
	}
	if free.Len() > 0 {
		doc.Segments = append(doc.Segments, Unmanaged{Text: free.String()})
	}
	return doc, nil
}

// parseEntries reads the Host blocks between the markers
func parseEntries(raw string) []HostEntry {
	var entries []HostEntry
	var current *HostEntry
	for _, line := range strings.Split(raw, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		key := fields[0]
		value := strings.Join(fields[1:], " ")
		if strings.EqualFold(key, "Host") {
			entries = append(entries, HostEntry{Alias: value})
			current = &entries[len(entries)-1]
			continue
		}
		if current == nil {
			continue
		}
		switch strings.ToLower(key) {
		case "hostname":
			current.HostName = value
		case "user":
			current.User = value
		default:
			current.Options = append(current.Options, Option{Key: key, Value: value})
		}
	}
	return entries
}

// Managed returns the managed region, or nil when the document has none
func (d *Document) Managed() *Managed {
	for _, segment := range d.Segments {
		if managed, ok := segment.(*Managed); ok {
			return managed
		}
	}
	return nil
}

// ManagedEntries returns the entries of the managed region
func (d *Document) ManagedEntries() []HostEntry {
	if managed := d.Managed(); managed != nil {
		return managed.Entries
	}
	return nil
}

// SetManaged replaces the managed region with entries, appending the
// region at the end of the document when it has none.
func (d *Document) SetManaged(entries []HostEntry) error {
	if err := ValidateEntries(entries); err != nil {
		return err
	}
	entries = append([]HostEntry(nil), entries...)
	if d.marker == "" {
		d.marker = DefaultMarker
	}

	if managed := d.Managed(); managed != nil {
		managed.Entries = entries
		managed.dirty = true
		return nil
	}

	if current := d.String(); current != "" {
		separator := "\n"
		if !strings.HasSuffix(current, "\n") {
			separator = "\n\n"
		}
		d.Segments = append(d.Segments, Unmanaged{Text: separator})
	}
	d.Segments = append(d.Segments, &Managed{
		Entries: entries,
		marker:  d.marker,
		dirty:   true,
	})
	return nil
}

// Bytes serializes the document
func (d *Document) Bytes() []byte {
	return []byte(d.String())
}

func (d *Document) String() string {
	var sb strings.Builder
	for _, segment := range d.Segments {
		sb.WriteString(segment.text())
	}
	return sb.String()
}
