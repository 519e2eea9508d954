package logic

import (
	"context"

	"github.com/openmohaa/matchmaker/internal/models"
)

// TicketRecords is the durable ticket store as seen by the ticket service.
type TicketRecords interface {
	CreateTicket(ctx context.Context, t *models.Ticket) error
	GetTicket(ctx context.Context, ticketID string) (*models.Ticket, error)
	UpdateTicketStatus(ctx context.Context, ticketID string, status models.TicketStatus, matchID string) error
	ListWaitingTickets(ctx context.Context, titleID, queueName string) ([]models.Ticket, error)
}

// QueueIndex is the waiting-queue index as seen by the ticket service.
type QueueIndex interface {
	AddWaitingTicket(ctx context.Context, p models.TicketProjection) error
	RemoveWaitingTicket(ctx context.Context, titleID, queueName, ticketID string) error
	Members(ctx context.Context, titleID, queueName string) ([]string, error)
}

// QueueLookup resolves a queue definition.
type QueueLookup interface {
	GetQueueConfig(ctx context.Context, titleID, queueName string) (*models.QueueConfig, error)
}
