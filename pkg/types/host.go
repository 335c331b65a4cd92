package types

import (
	"net"
	"time"
)

// Host is a discovered machine exposing an ssh service.
// Identity is the IP; Name is assigned by the naming pass and may change.
type Host struct {
	Name        string
	IP          net.IP
	Port        int
	AuthMethods []string
}

// String renders the host the way it is listed on the terminal
func (h Host) String() string {
	return h.Name + "\t" + h.IP.String()
}

// AuthStatus is the outcome of the authentication method probe
type AuthStatus int

const (
	// AuthUnknown means the probe was not run (passive mode or closed port)
	AuthUnknown AuthStatus = iota
	// AuthOffered means the server listed at least one usable method
	AuthOffered
	// AuthNotOffered means the exchange failed or listed nothing usable
	AuthNotOffered
)

func (s AuthStatus) String() string {
	switch s {
	case AuthOffered:
		return "offered"
	case AuthNotOffered:
		return "not-offered"
	default:
		return "unknown"
	}
}

// ProbeResult is the transient outcome of probing a single address.
type ProbeResult struct {
	IP       net.IP
	PortOpen bool
	Auth     AuthStatus
	Methods  []string
	Duration time.Duration
}

// Qualifies reports whether the result makes the address a discovered host.
func (r *ProbeResult) Qualifies(passive bool) bool {
	if !r.PortOpen {
		return false
	}
	if passive {
		return true
	}
	return r.Auth == AuthOffered
}
