package allocator

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/openmohaa/matchmaker/internal/models"
)

// Region is a static game server endpoint.
type Region struct {
	Name string
	Host string
	Port int
}

// ParseRegions reads a comma separated list of region=host:port entries.
func ParseRegions(raw string) ([]Region, error) {
	var regions []Region
	seen := make(map[string]bool)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, addr, ok := strings.Cut(entry, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("region entry %q: expected region=host:port", entry)
		}
		host, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("region %s: %w", name, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("region %s: invalid port %q", name, portStr)
		}
		if seen[name] {
			return nil, fmt.Errorf("region %s listed twice", name)
		}
		seen[name] = true
		regions = append(regions, Region{Name: name, Host: host, Port: port})
	}
	return regions, nil
}

// RegionAllocator picks among a fixed list of regional endpoints. It has no
// load awareness: closest follows the first ticket's region attribute and
// balanced rotates over the list.
type RegionAllocator struct {
	regions       []Region
	byName        map[string]Region
	defaultRegion string
	next          atomic.Uint64
}

func NewRegionAllocator(regions []Region, defaultRegion string) *RegionAllocator {
	a := &RegionAllocator{
		regions:       regions,
		byName:        make(map[string]Region, len(regions)),
		defaultRegion: defaultRegion,
	}
	for _, r := range regions {
		a.byName[r.Name] = r
	}
	if _, ok := a.byName[defaultRegion]; !ok && len(regions) > 0 {
		a.defaultRegion = regions[0].Name
	}
	return a
}

func (a *RegionAllocator) AllocateServer(ctx context.Context, titleID string, strategy models.AllocationStrategy, tickets []models.TicketProjection) (models.ServerInfo, error) {
	if len(a.regions) == 0 {
		return models.ServerInfo{}, ErrNoCapacity
	}
	switch strategy {
	case models.AllocationClosest, "":
		return a.closest(tickets), nil
	case models.AllocationBalanced:
		return a.balanced(), nil
	default:
		return models.ServerInfo{}, fmt.Errorf("%w: %s", ErrUnknownStrategy, strategy)
	}
}

func (a *RegionAllocator) closest(tickets []models.TicketProjection) models.ServerInfo {
	if r, ok := a.byName[preferredRegion(tickets)]; ok {
		return serverInfo(r)
	}
	return serverInfo(a.byName[a.defaultRegion])
}

func (a *RegionAllocator) balanced() models.ServerInfo {
	n := a.next.Add(1) - 1
	return serverInfo(a.regions[n%uint64(len(a.regions))])
}

func serverInfo(r Region) models.ServerInfo {
	return models.ServerInfo{Host: r.Host, Port: r.Port, Region: r.Name}
}
