package discovery

import (
	"context"
	"time"

	"github.com/projectdiscovery/find-sshable/pkg/discovery/probe"
	"github.com/projectdiscovery/find-sshable/pkg/types"
)

// PortProber reports whether a TCP port accepts connections
type PortProber interface {
	Probe(ctx context.Context, address string, port int) (bool, error)
}

// AuthProber lists the authentication methods an ssh server offers
type AuthProber interface {
	Methods(ctx context.Context, address string, port int) ([]string, error)
}

// PortProberFunc adapts a function to PortProber
type PortProberFunc func(ctx context.Context, address string, port int) (bool, error)

func (f PortProberFunc) Probe(ctx context.Context, address string, port int) (bool, error) {
	return f(ctx, address, port)
}

// AuthProberFunc adapts a function to AuthProber
type AuthProberFunc func(ctx context.Context, address string, port int) ([]string, error)

func (f AuthProberFunc) Methods(ctx context.Context, address string, port int) ([]string, error) {
	return f(ctx, address, port)
}

// Config holds the discovery tunables
type Config struct {
	// Port is the ssh port probed on every candidate
	Port int
	// Timeout bounds each individual probe
	Timeout time.Duration
	// Concurrency is the upper bound of simultaneous in-flight probes
	Concurrency int
	// ProbeUser is sent with the unauthenticated userauth request
	ProbeUser string
	// OnResult, when set, is called for every finished probe in completion order.
	// It does not alter the ordering of the returned hosts.
	OnResult func(*types.ProbeResult)
}

// DefaultConfig returns sensible defaults for a home or office segment
func DefaultConfig() *Config {
	return &Config{
		Port:        probe.DefaultPort,
		Timeout:     2 * time.Second,
		Concurrency: 128,
		ProbeUser:   probe.DefaultProbeUser,
	}
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Port == 0 {
		c.Port = defaults.Port
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaults.Concurrency
	}
	if c.ProbeUser == "" {
		c.ProbeUser = defaults.ProbeUser
	}
}

// Option is a functional option for configuring Engine
type Option func(*Engine)

// WithAddressSource sets the candidate address source
func WithAddressSource(source AddressSource) Option {
	return func(e *Engine) {
		e.addresses = source
	}
}

// WithPortProber replaces the TCP connect probe
func WithPortProber(prober PortProber) Option {
	return func(e *Engine) {
		e.ports = prober
	}
}

// WithAuthProber replaces the ssh authentication-method probe
func WithAuthProber(prober AuthProber) Option {
	return func(e *Engine) {
		e.auth = prober
	}
}

// WithNeighbors replaces the neighbour cache lookup used to order probes
func WithNeighbors(lookup func(ctx context.Context) (map[string]struct{}, error)) Option {
	return func(e *Engine) {
		e.neighbors = lookup
	}
}

// WithNamer replaces the reverse-lookup namer
func WithNamer(namer HostNamer) Option {
	return func(e *Engine) {
		e.namer = namer
	}
}
