package common

import (
	"net"
)

// Subnet is a directly connected IPv4 network seen on a local interface
type Subnet struct {
	Interface string
	Local     net.IP
	Network   *net.IPNet
}

// InterfaceAddrs is the subset of net.Interface used to collect subnets.
// It exists so tests can feed synthetic interfaces.
type InterfaceAddrs struct {
	Name  string
	Flags net.Flags
	Addrs []net.Addr
}

// SystemInterfaces returns the local interfaces with their addresses
func SystemInterfaces() ([]InterfaceAddrs, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	result := make([]InterfaceAddrs, 0, len(interfaces))
	for _, iface := range interfaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		result = append(result, InterfaceAddrs{
			Name:  iface.Name,
			Flags: iface.Flags,
			Addrs: addrs,
		})
	}
	return result, nil
}

// LocalSubnets returns the IPv4 subnets of all up, non-loopback interfaces.
// Link-local networks (169.254.0.0/16) are skipped unless includeLinkLocal is set.
func LocalSubnets(includeLinkLocal bool) ([]Subnet, error) {
	interfaces, err := SystemInterfaces()
	if err != nil {
		return nil, err
	}
	return SubnetsFrom(interfaces, includeLinkLocal), nil
}

// SubnetsFrom extracts the IPv4 subnets from the given interfaces
func SubnetsFrom(interfaces []InterfaceAddrs, includeLinkLocal bool) []Subnet {
	var subnets []Subnet
	seen := make(map[string]struct{})

	for _, iface := range interfaces {
		// Skip loopback and down interfaces
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagUp == 0 {
			continue
		}

		for _, addr := range iface.Addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}

			// Only process IPv4 addresses
			ip := ipNet.IP.To4()
			if ip == nil || ip.IsLoopback() {
				continue
			}
			if ip.IsLinkLocalUnicast() && !includeLinkLocal {
				continue
			}

			ones, bits := ipNet.Mask.Size()
			if bits != 32 || ones == 32 {
				// point-to-point or host routes carry no neighbours
				continue
			}

			network := &net.IPNet{
				IP:   ip.Mask(ipNet.Mask),
				Mask: ipNet.Mask,
			}

			// Avoid duplicates
			key := iface.Name + "/" + ip.String() + "/" + network.String()
			if _, exists := seen[key]; exists {
				continue
			}
			seen[key] = struct{}{}

			subnets = append(subnets, Subnet{
				Interface: iface.Name,
				Local:     ip,
				Network:   network,
			})
		}
	}

	return subnets
}

// LocalAddresses returns every unicast address assigned to this machine
func LocalAddresses() map[string]struct{} {
	local := make(map[string]struct{})

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return local
	}
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok {
			local[ipNet.IP.String()] = struct{}{}
			if ip4 := ipNet.IP.To4(); ip4 != nil {
				local[ip4.String()] = struct{}{}
			}
		}
	}
	return local
}

// Narrow returns the /prefixLen block of network containing ip.
// Networks already at least as specific are returned unchanged.
func Narrow(network *net.IPNet, ip net.IP, prefixLen int) *net.IPNet {
	ones, bits := network.Mask.Size()
	if ones >= prefixLen || prefixLen > bits {
		return network
	}
	mask := net.CIDRMask(prefixLen, bits)
	return &net.IPNet{
		IP:   ip.Mask(mask),
		Mask: mask,
	}
}
