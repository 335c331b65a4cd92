package types

import (
	"net"
	"time"
)

// HostRecord is the json-lines representation of a discovered host
type HostRecord struct {
	// Required fields
	Name      string `json:"name"`
	IP        string `json:"ip"`
	Port      int    `json:"port"`
	Timestamp string `json:"timestamp"` // RFC3339 format date-time

	// Optional fields
	ScanID      string   `json:"scan_id,omitempty"`
	AuthMethods []string `json:"auth_methods,omitempty"`
	Passive     bool     `json:"passive,omitempty"`
}

// NewHostRecord builds a record for the given host
func NewHostRecord(host Host, scanID string, passive bool) *HostRecord {
	record := &HostRecord{
		Name:        host.Name,
		IP:          host.IP.String(),
		Port:        host.Port,
		ScanID:      scanID,
		AuthMethods: host.AuthMethods,
		Passive:     passive,
	}
	record.SetTimestamp(time.Now())
	return record
}

// Validate checks if the record has all required fields populated
func (r *HostRecord) Validate() error {
	if r.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if r.IP == "" {
		return &ValidationError{Field: "ip", Message: "ip is required"}
	}
	if net.ParseIP(r.IP) == nil {
		return &ValidationError{Field: "ip", Message: "ip is not a valid address: " + r.IP}
	}
	if r.Port <= 0 || r.Port > 65535 {
		return &ValidationError{Field: "port", Message: "port is out of range"}
	}
	return nil
}

// SetTimestamp sets the timestamp from a time.Time value
func (r *HostRecord) SetTimestamp(t time.Time) {
	r.Timestamp = t.UTC().Format(time.RFC3339)
}

// Host converts the record back into a Host
func (r *HostRecord) Host() Host {
	return Host{
		Name:        r.Name,
		IP:          net.ParseIP(r.IP),
		Port:        r.Port,
		AuthMethods: r.AuthMethods,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
