// Package probe implements the two network checks run against a candidate
// address: a TCP connect to the ssh port and an ssh authentication-method
// listing. Unreachable hosts are reported as false, never as errors.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// DefaultPort is the standard ssh port
const DefaultPort = 22

// ErrInvalidAddress is returned when the address or port cannot be probed at all
var ErrInvalidAddress = errors.New("invalid address")

// hostPort validates address and port and joins them for dialing
func hostPort(address string, port int) (string, error) {
	ip := net.ParseIP(address)
	if ip == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	if port <= 0 || port > 65535 {
		return "", fmt.Errorf("%w: port %d out of range", ErrInvalidAddress, port)
	}
	return net.JoinHostPort(ip.String(), strconv.Itoa(port)), nil
}

// Port attempts a TCP connection to address:port.
// A connection established within timeout means open; refused, reset,
// unreachable, timed out or cancelled attempts are reported as closed.
func Port(ctx context.Context, address string, port int, timeout time.Duration) (bool, error) {
	addr, err := hostPort(address, port)
	if err != nil {
		return false, err
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false, nil
	}
	_ = conn.Close()
	return true, nil
}
