package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/projectdiscovery/find-sshable/pkg/discovery/common"
	"github.com/projectdiscovery/find-sshable/pkg/types"
	"github.com/projectdiscovery/gcache"
)

// AddrLookuper performs reverse name resolution; *net.Resolver satisfies it
type AddrLookuper interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// HostNamer assigns a human readable name to an address
type HostNamer interface {
	Name(ctx context.Context, ip net.IP) string
}

// Namer resolves names through reverse lookups, memoizing the answers
type Namer struct {
	resolver   AddrLookuper
	shortNames bool
	cache      gcache.Cache[string, string]
}

// NamerOption configures a Namer
type NamerOption func(*Namer)

// WithResolver replaces the system resolver
func WithResolver(resolver AddrLookuper) NamerOption {
	return func(n *Namer) {
		n.resolver = resolver
	}
}

// WithShortNames keeps only the first label of resolved names
func WithShortNames(short bool) NamerOption {
	return func(n *Namer) {
		n.shortNames = short
	}
}

// NewNamer creates a namer backed by net.DefaultResolver
func NewNamer(opts ...NamerOption) *Namer {
	n := &Namer{
		resolver: net.DefaultResolver,
		cache: gcache.New[string, string](4096).
			LRU().
			Expiration(10 * time.Minute).
			Build(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Name returns the reverse-resolved name of ip, or its string form when
// resolution fails.
func (n *Namer) Name(ctx context.Context, ip net.IP) string {
	key := ip.String()
	if name, err := n.cache.Get(key); err == nil {
		return name
	}

	name := key
	names, err := n.resolver.LookupAddr(ctx, key)
	if err == nil {
		for _, candidate := range names {
			if cleaned := n.clean(candidate); cleaned != "" {
				name = cleaned
				break
			}
		}
	}

	// a cancelled lookup says nothing about the address, do not remember it
	if ctx.Err() == nil {
		_ = n.cache.Set(key, name)
	}
	return name
}

func (n *Namer) clean(name string) string {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".")
	if n.shortNames {
		if idx := strings.Index(name, "."); idx > 0 {
			name = name[:idx]
		}
	}
	return name
}

// NameAndDedupe returns the hosts in address order with collision-free names.
// The first host carrying a base name keeps it, later ones get "-1", "-2", ...
// skipping any suffixed name another host already holds. prefix is prepended
// to every name. The counters live only for this call.
func NameAndDedupe(hosts []types.Host, prefix string) []types.Host {
	sorted := make([]types.Host, len(hosts))
	copy(sorted, hosts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return common.CompareIP(sorted[i].IP, sorted[j].IP) < 0
	})

	nameCount := make(map[string]int)
	assigned := make(map[string]struct{}, len(sorted))
	updated := make([]types.Host, 0, len(sorted))
	for _, host := range sorted {
		count := nameCount[host.Name]
		name := dedupeName(prefix, host.Name, count)
		for {
			if _, taken := assigned[name]; !taken {
				break
			}
			count++
			name = dedupeName(prefix, host.Name, count)
		}
		nameCount[host.Name] = count + 1
		assigned[name] = struct{}{}

		host.Name = name
		updated = append(updated, host)
	}
	return updated
}

func dedupeName(prefix, base string, count int) string {
	if count == 0 {
		return prefix + base
	}
	return fmt.Sprintf("%s%s-%d", prefix, base, count)
}
