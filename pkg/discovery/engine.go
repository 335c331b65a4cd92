package discovery

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync/atomic"
	"time"

	"github.com/projectdiscovery/find-sshable/pkg/discovery/common"
	"github.com/projectdiscovery/find-sshable/pkg/discovery/neighbors"
	"github.com/projectdiscovery/find-sshable/pkg/discovery/prescan"
	"github.com/projectdiscovery/find-sshable/pkg/discovery/probe"
	"github.com/projectdiscovery/find-sshable/pkg/types"
	"github.com/projectdiscovery/gologger"
	mapsutil "github.com/projectdiscovery/utils/maps"
	syncutil "github.com/projectdiscovery/utils/sync"
)

// Result is the outcome of a discovery run
type Result struct {
	// Hosts are sorted by address and unique per address
	Hosts []types.Host
	// Candidates is the number of addresses enumerated
	Candidates int
	// Probed is the number of addresses whose probes completed
	Probed int
	// Partial is set when the run stopped early because its context ended
	Partial bool
}

// Engine runs the probes across the candidate address space
type Engine struct {
	config    *Config
	addresses AddressSource
	ports     PortProber
	auth      AuthProber
	namer     HostNamer
	neighbors func(ctx context.Context) (map[string]struct{}, error)
}

// New creates a discovery engine. Collaborators not set through options
// default to the local interface enumerator, the TCP and ssh probes, the
// reverse-lookup namer and the system neighbour cache.
func New(config *Config, opts ...Option) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	config.applyDefaults()

	e := &Engine{config: config}
	for _, opt := range opts {
		opt(e)
	}

	if e.addresses == nil {
		e.addresses = NewEnumerator()
	}
	if e.ports == nil {
		timeout := config.Timeout
		e.ports = PortProberFunc(func(ctx context.Context, address string, port int) (bool, error) {
			return probe.Port(ctx, address, port, timeout)
		})
	}
	if e.auth == nil {
		authConfig := &probe.AuthConfig{User: config.ProbeUser, Timeout: config.Timeout}
		e.auth = AuthProberFunc(func(ctx context.Context, address string, port int) ([]string, error) {
			return probe.Auth(ctx, address, port, authConfig)
		})
	}
	if e.namer == nil {
		e.namer = NewNamer()
	}
	if e.neighbors == nil {
		e.neighbors = neighbors.Addresses
	}
	return e
}

// Discover probes every candidate and returns the hosts with a reachable
// ssh service. In passive mode an open port is enough; otherwise the server
// must also offer an authentication method. When pattern is set, only hosts
// whose resolved name contains a match are kept.
//
// All probes are awaited before returning. If ctx ends first, no further
// probes start, in-flight ones are abandoned and the completed results are
// returned with Partial set and a nil error.
func (e *Engine) Discover(ctx context.Context, pattern *regexp.Regexp, passive bool) (*Result, error) {
	candidates, err := e.addresses.Candidates()
	if err != nil {
		return nil, err
	}

	result := &Result{Candidates: len(candidates)}
	if len(candidates) == 0 {
		return result, nil
	}

	known, err := e.neighbors(ctx)
	if err != nil {
		gologger.Debug().Msgf("could not read neighbour cache: %s", err)
	}
	targets := make([]prescan.Target, 0, len(candidates))
	for _, c := range candidates {
		_, isKnown := known[c.IP.String()]
		targets = append(targets, prescan.Target{IP: c.IP, Network: c.Network, Known: isKnown})
	}
	targets = prescan.Schedule(targets)

	gologger.Verbose().Msgf("probing %d addresses on port %d (concurrency %d, passive %v)",
		len(targets), e.config.Port, e.config.Concurrency, passive)

	awg, err := syncutil.New(syncutil.WithSize(e.config.Concurrency))
	if err != nil {
		return nil, fmt.Errorf("failed to create adaptive waitgroup: %w", err)
	}

	hosts := mapsutil.NewSyncLockMap[string, *types.Host]()
	var probed atomic.Int64
	var probeErr atomic.Pointer[error]

schedule:
	for _, target := range targets {
		select {
		case <-ctx.Done():
			break schedule
		default:
		}

		awg.Add()
		go func(target prescan.Target) {
			defer awg.Done()

			res, err := e.probe(ctx, target, passive)
			if err != nil {
				probeErr.CompareAndSwap(nil, &err)
				return
			}
			if ctx.Err() != nil && !res.Qualifies(passive) {
				// abandoned, not completed
				return
			}
			probed.Add(1)
			if e.config.OnResult != nil {
				e.config.OnResult(res)
			}
			if !res.Qualifies(passive) {
				return
			}

			// a host found at the deadline still gets its name looked up
			nameCtx, cancelName := context.WithTimeout(context.WithoutCancel(ctx), e.config.Timeout)
			name := e.namer.Name(nameCtx, res.IP)
			cancelName()
			if pattern != nil && !pattern.MatchString(name) {
				gologger.Debug().Msgf("%s (%s) does not match %q", res.IP, name, pattern)
				return
			}

			key := res.IP.String()
			if _, exists := hosts.Get(key); !exists {
				_ = hosts.Set(key, &types.Host{
					Name:        name,
					IP:          res.IP,
					Port:        e.config.Port,
					AuthMethods: res.Methods,
				})
			}
		}(target)
	}

	awg.Wait()

	if errPtr := probeErr.Load(); errPtr != nil {
		return nil, *errPtr
	}

	_ = hosts.Iterate(func(key string, host *types.Host) error {
		if host != nil {
			result.Hosts = append(result.Hosts, *host)
		}
		return nil
	})
	sort.SliceStable(result.Hosts, func(i, j int) bool {
		return common.CompareIP(result.Hosts[i].IP, result.Hosts[j].IP) < 0
	})

	result.Probed = int(probed.Load())
	result.Partial = ctx.Err() != nil && result.Probed < result.Candidates
	if result.Partial {
		gologger.Verbose().Msgf("discovery stopped early: %d of %d addresses probed", result.Probed, result.Candidates)
	}
	return result, nil
}

// probe runs the port probe and, unless passive, the auth probe for one target.
// Only an invalid address is returned as error.
func (e *Engine) probe(ctx context.Context, target prescan.Target, passive bool) (*types.ProbeResult, error) {
	started := time.Now()
	address := target.IP.String()
	res := &types.ProbeResult{IP: target.IP, Auth: types.AuthUnknown}

	open, err := e.ports.Probe(ctx, address, e.config.Port)
	if err != nil {
		if errors.Is(err, probe.ErrInvalidAddress) {
			return nil, err
		}
		open = false
	}
	res.PortOpen = open

	if open && !passive {
		methods, err := e.auth.Methods(ctx, address, e.config.Port)
		if err != nil && errors.Is(err, probe.ErrInvalidAddress) {
			return nil, err
		}
		res.Methods = methods
		if len(methods) > 0 {
			res.Auth = types.AuthOffered
		} else {
			res.Auth = types.AuthNotOffered
		}
	}

	res.Duration = time.Since(started)
	gologger.Debug().Msgf("probed %s: open=%v auth=%s methods=%v (%s)",
		address, res.PortOpen, res.Auth, res.Methods, res.Duration)
	return res, nil
}
