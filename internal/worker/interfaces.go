package worker

import (
	"context"

	"github.com/openmohaa/matchmaker/internal/models"
)

// QueueConfigSource lists queue definitions at each poll.
type QueueConfigSource interface {
	ListActiveQueueConfigs(ctx context.Context) ([]models.QueueConfig, error)
}

// WaitingIndex is the engine's working set of unmatched tickets.
type WaitingIndex interface {
	ReadWaitingTickets(ctx context.Context, titleID, queueName string) ([]models.TicketProjection, error)
	RemoveWaitingTicket(ctx context.Context, titleID, queueName, ticketID string) error
	MarkMatched(ctx context.Context, p models.TicketProjection) error
}

// TicketStore is the authoritative ticket record store.
type TicketStore interface {
	UpdateTicketStatus(ctx context.Context, ticketID string, status models.TicketStatus, matchID string) error
	GetTickets(ctx context.Context, ticketIDs []string) (map[string]models.Ticket, error)
}

// MatchStore persists finalized matches.
type MatchStore interface {
	CreateMatch(ctx context.Context, m *models.Match) (string, error)
}

// MatchHistory receives every created match for analytics.
type MatchHistory interface {
	Record(ctx context.Context, m *models.Match) error
}

// Allocator assigns a game server to a match.
type Allocator interface {
	AllocateServer(ctx context.Context, titleID string, strategy models.AllocationStrategy, tickets []models.TicketProjection) (models.ServerInfo, error)
}

// Notifier publishes events to title and player channels.
type Notifier interface {
	Publish(ctx context.Context, channel string, event models.Event) error
}
