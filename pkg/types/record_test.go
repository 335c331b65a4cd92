package types

import (
	"errors"
	"net"
	"testing"
	"time"
)

func TestHostRecordValidate(t *testing.T) {
	tests := []struct {
		name      string
		record    HostRecord
		wantField string
	}{
		{"valid", HostRecord{Name: "pi", IP: "10.0.0.5", Port: 22}, ""},
		{"missing name", HostRecord{IP: "10.0.0.5", Port: 22}, "name"},
		{"missing ip", HostRecord{Name: "pi", Port: 22}, "ip"},
		{"bad ip", HostRecord{Name: "pi", IP: "10.0.0.500", Port: 22}, "ip"},
		{"bad port", HostRecord{Name: "pi", IP: "10.0.0.5", Port: 0}, "port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if validationErr.Field != tt.wantField {
				t.Errorf("field = %s, want %s", validationErr.Field, tt.wantField)
			}
		})
	}
}

func TestNewHostRecord(t *testing.T) {
	host := Host{Name: "pi", IP: net.ParseIP("10.0.0.5"), Port: 2222, AuthMethods: []string{"publickey"}}
	record := NewHostRecord(host, "scan-1", true)

	if record.IP != "10.0.0.5" || record.Port != 2222 || record.ScanID != "scan-1" || !record.Passive {
		t.Errorf("unexpected record %+v", record)
	}
	if _, err := time.Parse(time.RFC3339, record.Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", record.Timestamp, err)
	}

	back := record.Host()
	if back.Name != host.Name || !back.IP.Equal(host.IP) || back.Port != host.Port {
		t.Errorf("Host() = %+v, want %+v", back, host)
	}
}

func TestProbeResultQualifies(t *testing.T) {
	tests := []struct {
		name    string
		result  ProbeResult
		passive bool
		want    bool
	}{
		{"closed port", ProbeResult{PortOpen: false}, true, false},
		{"open port passive", ProbeResult{PortOpen: true}, true, true},
		{"open port without auth check", ProbeResult{PortOpen: true}, false, false},
		{"auth offered", ProbeResult{PortOpen: true, Auth: AuthOffered}, false, true},
		{"auth not offered", ProbeResult{PortOpen: true, Auth: AuthNotOffered}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Qualifies(tt.passive); got != tt.want {
				t.Errorf("Qualifies(%v) = %v, want %v", tt.passive, got, tt.want)
			}
		})
	}
}
