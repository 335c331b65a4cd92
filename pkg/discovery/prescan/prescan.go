// Package prescan decides the order in which candidate addresses are probed.
//
// Probing gateways and the usual DHCP pool starts first means a run cut short by
// a deadline has most likely already seen the live part of the network.
// The order only affects scheduling; discovery output is always address sorted.
package prescan

import (
	"net"
	"sort"

	"github.com/projectdiscovery/find-sshable/pkg/discovery/common"
)

// Target is an address scheduled for probing
type Target struct {
	IP      net.IP
	Network *net.IPNet
	// Known marks addresses found in the neighbour cache
	Known    bool
	Priority int
}

// Schedule scores every target and returns them highest priority first,
// ties broken by address for a stable order. Known neighbours are raised
// to PriorityNeighbor. The input is not modified.
func Schedule(targets []Target) []Target {
	scheduled := make([]Target, len(targets))
	copy(scheduled, targets)

	for i := range scheduled {
		priority := Priority(scheduled[i].IP, scheduled[i].Network)
		if scheduled[i].Known && priority > PriorityNever && priority < PriorityNeighbor {
			priority = PriorityNeighbor
		}
		scheduled[i].Priority = priority
	}

	sort.SliceStable(scheduled, func(i, j int) bool {
		if scheduled[i].Priority != scheduled[j].Priority {
			return scheduled[i].Priority > scheduled[j].Priority
		}
		return common.CompareIP(scheduled[i].IP, scheduled[j].IP) < 0
	})
	return scheduled
}
