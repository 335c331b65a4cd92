package discovery

import (
	"errors"
	"fmt"
	"net"
	"sort"

	"github.com/projectdiscovery/find-sshable/pkg/discovery/common"
	"github.com/projectdiscovery/find-sshable/pkg/discovery/probe"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/mapcidr"
	sliceutil "github.com/projectdiscovery/utils/slice"
)

// ErrNoUsableInterface is returned when no interface provides a subnet to probe
var ErrNoUsableInterface = errors.New("no usable network interface")

// DefaultMinPrefixLen is the narrowest enumeration block for wide subnets
const DefaultMinPrefixLen = 24

// Candidate is an address worth probing, together with the network it was derived from
type Candidate struct {
	IP      net.IP
	Network *net.IPNet
}

// AddressSource produces the candidate address space for a discovery run
type AddressSource interface {
	Candidates() ([]Candidate, error)
}

// Enumerator derives candidates from the directly connected IPv4 subnets,
// or from an explicit target list when one is given.
type Enumerator struct {
	// Targets are CIDRs or single IPs replacing interface discovery
	Targets []string
	// IncludeLinkLocal also enumerates 169.254.0.0/16 subnets
	IncludeLinkLocal bool
	// MinPrefixLen narrows wider subnets to the block around the local address
	MinPrefixLen int

	// Interfaces lists local interfaces, defaults to common.SystemInterfaces
	Interfaces func() ([]common.InterfaceAddrs, error)
	// LocalAddresses lists addresses owned by this machine, defaults to common.LocalAddresses
	LocalAddresses func() map[string]struct{}
}

// NewEnumerator returns an enumerator over the local interfaces
func NewEnumerator() *Enumerator {
	return &Enumerator{MinPrefixLen: DefaultMinPrefixLen}
}

// Candidates returns the sorted, de-duplicated candidate addresses.
// Every call recomputes the list, so the sequence can be restarted.
func (e *Enumerator) Candidates() ([]Candidate, error) {
	networks, err := e.networks()
	if err != nil {
		return nil, err
	}

	local := e.localAddresses()
	seen := make(map[string]struct{})
	var candidates []Candidate

	for _, network := range networks {
		ips, err := mapcidr.IPAddresses(network.String())
		if err != nil {
			return nil, fmt.Errorf("failed to expand CIDR %s: %w", network, err)
		}

		for _, ipStr := range ips {
			ip := net.ParseIP(ipStr)
			if ip == nil {
				continue
			}
			if ip4 := ip.To4(); ip4 != nil {
				ip = ip4
			}
			if common.IsNetworkOrBroadcast(ip, network) {
				continue
			}
			key := ip.String()
			if _, own := local[key]; own {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			candidates = append(candidates, Candidate{IP: ip, Network: network})
		}
	}

	sortCandidates(candidates)
	return candidates, nil
}

// networks resolves the networks to expand
func (e *Enumerator) networks() ([]*net.IPNet, error) {
	if len(e.Targets) > 0 {
		return parseTargets(e.Targets)
	}

	list := e.Interfaces
	if list == nil {
		list = common.SystemInterfaces
	}
	interfaces, err := list()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoUsableInterface, err)
	}

	subnets := common.SubnetsFrom(interfaces, e.IncludeLinkLocal)
	if len(subnets) == 0 {
		return nil, ErrNoUsableInterface
	}

	minPrefix := e.MinPrefixLen
	if minPrefix <= 0 {
		minPrefix = DefaultMinPrefixLen
	}

	var networks []*net.IPNet
	seen := make(map[string]struct{})
	for _, subnet := range subnets {
		network := common.Narrow(subnet.Network, subnet.Local, minPrefix)
		if network != subnet.Network {
			gologger.Verbose().Msgf("narrowing %s on %s to %s", subnet.Network, subnet.Interface, network)
		}
		key := network.String()
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		gologger.Debug().Msgf("enumerating %s (interface %s, local %s)", network, subnet.Interface, subnet.Local)
		networks = append(networks, network)
	}
	return networks, nil
}

func (e *Enumerator) localAddresses() map[string]struct{} {
	if e.LocalAddresses != nil {
		return e.LocalAddresses()
	}
	return common.LocalAddresses()
}

// parseTargets parses CIDRs and single IPv4 addresses into networks
func parseTargets(targets []string) ([]*net.IPNet, error) {
	var networks []*net.IPNet
	for _, target := range sliceutil.Dedupe(targets) {
		// Try to parse as CIDR first
		if _, ipNet, err := net.ParseCIDR(target); err == nil {
			if ipNet.IP.To4() == nil {
				return nil, fmt.Errorf("%w: %s is not IPv4", probe.ErrInvalidAddress, target)
			}
			networks = append(networks, ipNet)
			continue
		}

		// Try to parse as individual IP
		ip := net.ParseIP(target)
		if ip == nil || ip.To4() == nil {
			return nil, fmt.Errorf("%w: %s (must be IPv4 CIDR or IP)", probe.ErrInvalidAddress, target)
		}
		networks = append(networks, &net.IPNet{IP: ip.To4(), Mask: net.CIDRMask(32, 32)})
	}
	return networks, nil
}

func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return common.CompareIP(candidates[i].IP, candidates[j].IP) < 0
	})
}
