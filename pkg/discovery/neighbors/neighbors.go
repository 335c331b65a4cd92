// Package neighbors reads the operating system's IPv4 neighbour (ARP) cache.
//
// Addresses already resolved at the link layer are known to be alive, so
// discovery probes them before the rest of the subnet. Nothing is sent on
// the network; the cache is only read.
package neighbors

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strings"

	osutils "github.com/projectdiscovery/utils/os"
)

// ErrUnsupported is returned on platforms without a known neighbour table
var ErrUnsupported = errors.New("neighbour table not supported on this platform")

// Neighbor is a resolved entry of the neighbour cache
type Neighbor struct {
	IP  net.IP
	MAC net.HardwareAddr
}

// Table returns the IPv4 neighbours currently known to the kernel
func Table(ctx context.Context) ([]Neighbor, error) {
	switch {
	case osutils.IsLinux():
		file, err := os.Open("/proc/net/arp")
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = file.Close()
		}()
		return parseProcNetARP(file)
	case osutils.IsOSX():
		output, err := exec.CommandContext(ctx, "arp", "-an").Output()
		if err != nil {
			return nil, fmt.Errorf("failed to execute arp -an: %w", err)
		}
		return parseBSDArp(strings.NewReader(string(output)))
	case osutils.IsWindows():
		output, err := exec.CommandContext(ctx, "arp", "-a").Output()
		if err != nil {
			return nil, fmt.Errorf("failed to execute arp -a: %w", err)
		}
		return parseWindowsArp(strings.NewReader(string(output)))
	}
	return nil, ErrUnsupported
}

// Addresses returns the neighbour addresses as a set keyed by IP string
func Addresses(ctx context.Context) (map[string]struct{}, error) {
	table, err := Table(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(table))
	for _, n := range table {
		set[n.IP.String()] = struct{}{}
	}
	return set, nil
}

func newNeighbor(ipStr, macStr string) (Neighbor, bool) {
	ip := net.ParseIP(ipStr).To4()
	if ip == nil {
		return Neighbor{}, false
	}
	mac, err := net.ParseMAC(macStr)
	if err != nil {
		return Neighbor{}, false
	}
	// incomplete and broadcast entries carry no live host
	if isAll(mac, 0x00) || isAll(mac, 0xff) {
		return Neighbor{}, false
	}
	return Neighbor{IP: ip, MAC: mac}, true
}

func isAll(mac net.HardwareAddr, b byte) bool {
	for _, octet := range mac {
		if octet != b {
			return false
		}
	}
	return true
}

// parseProcNetARP parses the Linux /proc/net/arp format:
//
//	IP address       HW type     Flags       HW address            Mask     Device
//	192.168.1.1      0x1         0x2         aa:bb:cc:dd:ee:ff     *        eth0
func parseProcNetARP(r io.Reader) ([]Neighbor, error) {
	var table []Neighbor
	scanner := bufio.NewScanner(r)
	header := true
	for scanner.Scan() {
		if header {
			header = false
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 6 {
			continue
		}
		// flags 0x0 marks an incomplete entry
		if fields[2] == "0x0" {
			continue
		}
		if n, ok := newNeighbor(fields[0], fields[3]); ok {
			table = append(table, n)
		}
	}
	return table, scanner.Err()
}

// parseBSDArp parses `arp -an` output:
//
//	? (192.168.1.1) at aa:bb:cc:dd:ee:ff on en0 ifscope [ethernet]
func parseBSDArp(r io.Reader) ([]Neighbor, error) {
	var table []Neighbor
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		open, closing := strings.Index(line, "("), strings.Index(line, ")")
		if open == -1 || closing <= open {
			continue
		}
		fields := strings.Fields(line[closing+1:])
		if len(fields) < 2 || fields[0] != "at" {
			continue
		}
		if n, ok := newNeighbor(line[open+1:closing], padMAC(fields[1])); ok {
			table = append(table, n)
		}
	}
	return table, scanner.Err()
}

// padMAC restores the leading zeros BSD arp drops ("0:1b:..." -> "00:1b:...")
func padMAC(mac string) string {
	parts := strings.Split(mac, ":")
	for i, part := range parts {
		if len(part) == 1 {
			parts[i] = "0" + part
		}
	}
	return strings.Join(parts, ":")
}

// parseWindowsArp parses `arp -a` output:
//
//	Interface: 192.168.1.100 --- 0xa
//	  Internet Address      Physical Address      Type
//	  192.168.1.1           aa-bb-cc-dd-ee-ff     dynamic
func parseWindowsArp(r io.Reader) ([]Neighbor, error) {
	var table []Neighbor
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || fields[2] != "dynamic" {
			continue
		}
		if n, ok := newNeighbor(fields[0], fields[1]); ok {
			table = append(table, n)
		}
	}
	return table, scanner.Err()
}
