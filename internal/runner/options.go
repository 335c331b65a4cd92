package runner

import (
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/logrusorgru/aurora"
	"github.com/projectdiscovery/find-sshable/pkg/discovery"
	"github.com/projectdiscovery/find-sshable/pkg/discovery/probe"
	"github.com/projectdiscovery/find-sshable/pkg/sshconfig"
	"github.com/projectdiscovery/find-sshable/pkg/version"
	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/formatter"
	"github.com/projectdiscovery/gologger/levels"
	envutil "github.com/projectdiscovery/utils/env"
	fileutil "github.com/projectdiscovery/utils/file"
)

var au aurora.Aurora = aurora.NewAurora(true)

var (
	SSHUserEnv     = envutil.GetEnvOrDefault("FIND_SSHABLE_SSH_USER", "")
	HostPrefixEnv  = envutil.GetEnvOrDefault("FIND_SSHABLE_HOST_PREFIX", "find-sshable.")
	ConcurrencyEnv = envutil.GetEnvOrDefault("FIND_SSHABLE_CONCURRENCY", "128")
	ProbeUserEnv   = envutil.GetEnvOrDefault("FIND_SSHABLE_PROBE_USER", probe.DefaultProbeUser)
)

// Options contains the configuration options for tuning the discovery process.
type Options struct {
	ConfigFile string

	HostPattern      string
	Passive          bool
	Port             int
	Timeout          time.Duration
	Concurrency      int
	Deadline         time.Duration
	Targets          goflags.StringSlice
	IncludeLinkLocal bool
	ProbeUser        string
	ShortNames       bool

	UpdateSSHConfig bool
	HostPrefix      string
	SSHUser         string
	SSHConfig       string
	Marker          string

	JSON      bool
	InputJSON string

	Silent  bool
	NoColor bool
	Verbose bool
	Debug   bool
	Version bool

	// pattern is the compiled HostPattern
	pattern *regexp.Regexp
}

// ParseOptions parses the command line flags provided by a user
func ParseOptions() *Options {
	options := &Options{}
	flagSet := goflags.NewFlagSet()

	flagSet.SetDescription(`find-sshable finds the machines on your local network that you can ssh into and optionally adds them to your ssh config`)

	flagSet.CreateGroup("discovery", "Discovery",
		flagSet.StringVarP(&options.HostPattern, "host-pattern", "hp", "", "only keep hosts whose name matches the regex (searched, not anchored)"),
		flagSet.BoolVar(&options.Passive, "passive", false, "an open port is enough, skip the ssh authentication method check"),
		flagSet.IntVarP(&options.Port, "port", "p", probe.DefaultPort, "ssh port to probe"),
		flagSet.DurationVarP(&options.Timeout, "timeout", "t", 2*time.Second, "timeout of a single probe"),
		flagSet.IntVarP(&options.Concurrency, "concurrency", "c", defaultConcurrency(), "maximum number of probes in flight"),
		flagSet.DurationVar(&options.Deadline, "deadline", 0, "overall discovery deadline, partial results are kept (0 = none)"),
		flagSet.StringSliceVarP(&options.Targets, "target", "tg", nil, "cidr or ip to scan instead of the local subnets (comma separated)", goflags.CommaSeparatedStringSliceOptions),
		flagSet.BoolVar(&options.IncludeLinkLocal, "include-link-local", false, "also scan link-local (169.254.0.0/16) subnets"),
		flagSet.StringVar(&options.ProbeUser, "probe-user", ProbeUserEnv, "user name sent when listing authentication methods"),
		flagSet.BoolVar(&options.ShortNames, "short-names", false, "keep only the first label of resolved host names"),
	)

	flagSet.CreateGroup("ssh-config", "SSH Config",
		flagSet.BoolVarP(&options.UpdateSSHConfig, "update-ssh-config", "usc", false, "write the discovered hosts into the ssh config"),
		flagSet.StringVar(&options.HostPrefix, "host-prefix", HostPrefixEnv, "prefix of the host aliases written to the ssh config"),
		flagSet.StringVar(&options.SSHUser, "ssh-user", SSHUserEnv, "user to set on the written host entries"),
		flagSet.StringVar(&options.SSHConfig, "ssh-config", sshconfig.DefaultPath(), "ssh config file to update"),
		flagSet.StringVar(&options.Marker, "marker", sshconfig.DefaultMarker, "name of the managed region in the ssh config"),
	)

	flagSet.CreateGroup("output", "Output",
		flagSet.BoolVar(&options.JSON, "json", false, "write discovered hosts as json lines"),
		flagSet.StringVar(&options.InputJSON, "input-json", "", "load hosts from a previous -json run instead of scanning"),
		flagSet.BoolVar(&options.Silent, "silent", false, "show only results in output"),
		flagSet.BoolVarP(&options.NoColor, "no-color", "nc", false, "disable output content coloring (ANSI escape codes)"),
	)

	flagSet.CreateGroup("debug", "Debug",
		flagSet.StringVar(&options.ConfigFile, "config", "", "cli flag configuration file"),
		flagSet.BoolVar(&options.Version, "version", false, "show version of the project"),
		flagSet.BoolVarP(&options.Verbose, "verbose", "v", false, "show verbose output"),
		flagSet.BoolVar(&options.Debug, "debug", false, "show debug output"),
	)

	if err := flagSet.Parse(); err != nil {
		gologger.Fatal().Msgf("%s\n", err)
	}

	if options.ConfigFile != "" {
		if !fileutil.FileExists(options.ConfigFile) {
			gologger.Fatal().Msgf("config file %s does not exist\n", options.ConfigFile)
		}
		if err := flagSet.MergeConfigFile(options.ConfigFile); err != nil {
			gologger.Fatal().Msgf("could not read config file %s: %s\n", options.ConfigFile, err)
		}
	}

	options.configureOutput()

	if options.Version {
		gologger.Info().Msgf("Current Version: %s\n", version.GetVersion())
		os.Exit(0)
	}

	if err := options.validate(); err != nil {
		gologger.Fatal().Msgf("Program exiting: %s\n", err)
	}

	return options
}

func defaultConcurrency() int {
	if n, err := strconv.Atoi(ConcurrencyEnv); err == nil && n > 0 {
		return n
	}
	return discovery.DefaultConfig().Concurrency
}

// configureOutput configures the output on the screen
func (options *Options) configureOutput() {
	// If the user desires verbose output, show verbose output
	if options.Verbose {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelVerbose)
	}
	if options.Debug {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelDebug)
	}
	if options.NoColor {
		gologger.DefaultLogger.SetFormatter(formatter.NewCLI(true))
		au = aurora.NewAurora(false)
	}
	if options.Silent {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelSilent)
	}
}
