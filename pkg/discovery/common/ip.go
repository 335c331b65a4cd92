package common

import (
	"bytes"
	"net"
	"sort"
)

// IsNetworkOrBroadcast checks if an IP is the network or broadcast address.
// Networks with fewer than four addresses (/31, /32) have neither.
func IsNetworkOrBroadcast(ip net.IP, network *net.IPNet) bool {
	if network == nil {
		return false
	}

	ones, bits := network.Mask.Size()
	if bits-ones < 2 {
		return false
	}

	// Check if IP equals network address
	if ip.Equal(network.IP) {
		return true
	}

	if ip4 := ip.To4(); ip4 != nil {
		base := network.IP.To4()
		if base == nil {
			return false
		}
		mask := network.Mask
		if len(mask) == net.IPv6len {
			mask = mask[12:]
		}
		broadcast := make(net.IP, net.IPv4len)
		for i := range broadcast {
			broadcast[i] = base[i] | ^mask[i]
		}
		return ip4.Equal(broadcast)
	}

	return ip.IsMulticast()
}

// CompareIP compares two IPs. Returns -1 if ip1 < ip2, 0 if equal, 1 if ip1 > ip2.
// IPv4 always comes before IPv6.
func CompareIP(ip1, ip2 net.IP) int {
	ip1v4 := ip1.To4()
	ip2v4 := ip2.To4()

	switch {
	case ip1v4 != nil && ip2v4 == nil:
		return -1
	case ip1v4 == nil && ip2v4 != nil:
		return 1
	case ip1v4 != nil && ip2v4 != nil:
		return bytes.Compare(ip1v4, ip2v4)
	}
	return bytes.Compare(ip1.To16(), ip2.To16())
}

// SortIPs sorts ips in place by address value
func SortIPs(ips []net.IP) {
	sort.SliceStable(ips, func(i, j int) bool {
		return CompareIP(ips[i], ips[j]) < 0
	})
}
