package prescan

import (
	"net"

	"github.com/projectdiscovery/find-sshable/pkg/discovery/common"
)

// band maps a range of host octets to a priority
type band struct {
	first, last int
	priority    int
}

// Priority tiers, derived from how small networks usually hand out addresses
const (
	PriorityGateway  = 100 // .1, .254
	PriorityNeighbor = 95  // already in the neighbour cache
	PriorityReserved = 90  // .2-.5, .250-.253
	PriorityEarly    = 80  // .6-.10, first static/DHCP leases
	PriorityPeak     = 70  // .50, .100, .150, common DHCP pool starts
	PriorityPool     = 50  // remaining common DHCP pool space
	PriorityTail     = 20  // everything else
	PriorityNever    = 0   // network and broadcast
)

var bands = []band{
	{1, 1, PriorityGateway},
	{254, 254, PriorityGateway},
	{2, 5, PriorityReserved},
	{250, 253, PriorityReserved},
	{6, 10, PriorityEarly},
	{50, 50, PriorityPeak},
	{100, 100, PriorityPeak},
	{150, 150, PriorityPeak},
	{51, 99, PriorityPool},
	{101, 149, PriorityPool},
	{151, 200, PriorityPool},
}

// octetPriority scores the last octet of an IPv4 address
func octetPriority(octet int) int {
	for _, b := range bands {
		if octet >= b.first && octet <= b.last {
			return b.priority
		}
	}
	return PriorityTail
}

// Priority returns a score (0-100) for ip within network.
// Higher scores are more likely to be live and are probed first.
func Priority(ip net.IP, network *net.IPNet) int {
	ip4 := ip.To4()
	if ip4 == nil || network == nil {
		return PriorityTail
	}
	if common.IsNetworkOrBroadcast(ip4, network) {
		return PriorityNever
	}
	return octetPriority(int(ip4[3]))
}
