package runner

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/projectdiscovery/find-sshable/pkg/discovery"
	"github.com/projectdiscovery/find-sshable/pkg/discovery/probe"
	"github.com/projectdiscovery/find-sshable/pkg/sshconfig"
	"github.com/projectdiscovery/find-sshable/pkg/types"
	"github.com/projectdiscovery/gologger"
	errorutil "github.com/projectdiscovery/utils/errors"
	"github.com/rs/xid"
)

// ErrInterrupted is returned when the run was cancelled before completion
var ErrInterrupted = errors.New("interrupted")

// Runner contains the internal logic of the program
type Runner struct {
	options *Options
	engine  *discovery.Engine
	merger  *sshconfig.Merger
	scanID  string

	openPorts atomic.Int64
}

// NewRunner instance
func NewRunner(options *Options) (*Runner, error) {
	r := &Runner{
		options: options,
		merger:  sshconfig.NewMerger(options.Marker),
		scanID:  xid.New().String(),
	}

	enumerator := discovery.NewEnumerator()
	enumerator.Targets = options.Targets
	enumerator.IncludeLinkLocal = options.IncludeLinkLocal

	config := &discovery.Config{
		Port:        options.Port,
		Timeout:     options.Timeout,
		Concurrency: options.Concurrency,
		ProbeUser:   options.ProbeUser,
		OnResult:    r.onResult,
	}
	r.engine = discovery.New(config,
		discovery.WithAddressSource(enumerator),
		discovery.WithNamer(discovery.NewNamer(discovery.WithShortNames(options.ShortNames))),
	)
	return r, nil
}

func (r *Runner) onResult(result *types.ProbeResult) {
	if result.PortOpen {
		r.openPorts.Add(1)
		gologger.Verbose().Msgf("port %d open on %s (auth %s)", r.options.Port, result.IP, result.Auth)
	}
}

// Run the instance
func (r *Runner) Run(ctx context.Context) error {
	gologger.Verbose().Msgf("scan id %s", r.scanID)

	hosts, err := r.collect(ctx)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ErrInterrupted
	}

	if len(hosts) == 0 {
		gologger.Silent().Msg(noHostsMessage)
		return nil
	}

	if r.options.JSON {
		if err := writeJSON(hosts, r.scanID, r.options.Passive); err != nil {
			return errorutil.NewWithErr(err).Msgf("could not write json output")
		}
	} else {
		gologger.Silent().Msg(formatFound(hosts))
	}

	if !r.options.UpdateSSHConfig {
		gologger.Verbose().Msgf("-update-ssh-config not specified, will not create ssh config entries")
		return nil
	}

	named := discovery.NameAndDedupe(hosts, r.options.HostPrefix)
	if !r.options.JSON {
		gologger.Silent().Msg(formatPlan(named))
	}

	entries := buildEntries(named, r.options.SSHUser)
	if err := r.merger.Merge(r.options.SSHConfig, entries); err != nil {
		return errorutil.NewWithErr(err).Msgf("could not update ssh config %s", r.options.SSHConfig)
	}
	gologger.Info().Msgf("Added %d hosts to %s", len(entries), r.options.SSHConfig)
	return nil
}

// collect returns the hosts either from a previous json run or from a scan
func (r *Runner) collect(ctx context.Context) ([]types.Host, error) {
	if r.options.InputJSON != "" {
		hosts, err := loadHosts(r.options.InputJSON, r.options.Port)
		if err != nil {
			return nil, errorutil.NewWithErr(err).Msgf("could not load hosts from %s", r.options.InputJSON)
		}
		if r.options.pattern != nil {
			hosts = filterHosts(hosts, r.options.pattern.MatchString)
		}
		return hosts, nil
	}

	discoverCtx := ctx
	if r.options.Deadline > 0 {
		var cancel context.CancelFunc
		discoverCtx, cancel = context.WithTimeout(ctx, r.options.Deadline)
		defer cancel()
	}

	result, err := r.engine.Discover(discoverCtx, r.options.pattern, r.options.Passive)
	if err != nil {
		return nil, errorutil.NewWithErr(err).Msgf("discovery failed")
	}
	gologger.Verbose().Msgf("probed %d of %d addresses, %d with port %d open",
		result.Probed, result.Candidates, r.openPorts.Load(), r.options.Port)
	if result.Partial && ctx.Err() == nil {
		gologger.Warning().Msgf("Discovery deadline of %s reached, results are partial (%d of %d addresses probed)",
			r.options.Deadline, result.Probed, result.Candidates)
	}
	return result.Hosts, nil
}

// buildEntries converts named hosts into ssh config entries
func buildEntries(hosts []types.Host, user string) []sshconfig.HostEntry {
	entries := make([]sshconfig.HostEntry, 0, len(hosts))
	for _, host := range hosts {
		entry := sshconfig.HostEntry{
			Alias:    host.Name,
			HostName: host.IP.String(),
			User:     user,
		}
		if host.Port != 0 && host.Port != probe.DefaultPort {
			entry.Options = append(entry.Options, sshconfig.Option{Key: "Port", Value: strconv.Itoa(host.Port)})
		}
		entries = append(entries, entry)
	}
	return entries
}

func filterHosts(hosts []types.Host, keep func(string) bool) []types.Host {
	filtered := hosts[:0:0]
	for _, host := range hosts {
		if keep(host.Name) {
			filtered = append(filtered, host)
		}
	}
	return filtered
}
