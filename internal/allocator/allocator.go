// Package allocator assigns game servers to newly formed matches.
//
// The engine calls an Allocator synchronously on the match-creation path; a
// failed allocation aborts the match and leaves its tickets waiting.
package allocator

import (
	"context"
	"errors"

	"github.com/openmohaa/matchmaker/internal/models"
)

// RegionAttribute is the ticket attribute read for region locality.
const RegionAttribute = "region"

var (
	ErrNoCapacity      = errors.New("no game server available")
	ErrUnknownStrategy = errors.New("unknown allocation strategy")
)

// Allocator returns connection info for a match made of the given tickets.
type Allocator interface {
	AllocateServer(ctx context.Context, titleID string, strategy models.AllocationStrategy, tickets []models.TicketProjection) (models.ServerInfo, error)
}

// preferredRegion is the region attribute of the first selected ticket.
func preferredRegion(tickets []models.TicketProjection) string {
	if len(tickets) == 0 {
		return ""
	}
	region, _ := tickets[0].Attributes.String(RegionAttribute)
	return region
}
