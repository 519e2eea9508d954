package logic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openmohaa/matchmaker/internal/models"
)

// ErrQueueDisabled is returned when enqueueing into a disabled queue.
var ErrQueueDisabled = errors.New("queue is disabled")

// TicketService performs the API-side ticket operations: creating and
// cancelling tickets, and rebuilding a queue's index from the records.
type TicketService struct {
	tickets TicketRecords
	index   QueueIndex
	queues  QueueLookup
	logger  *zap.SugaredLogger
	now     func() time.Time
	newID   func() string
}

func NewTicketService(tickets TicketRecords, index QueueIndex, queues QueueLookup, logger *zap.Logger) *TicketService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets: tickets,
		index:   index,
		queues:  queues,
		logger:  logger.Sugar(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Enqueue creates a waiting ticket, record first and projection second. If
// the projection write fails the record stays and Rebuild restores it.
func (s *TicketService) Enqueue(ctx context.Context, req models.EnqueueRequest) (*models.Ticket, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid enqueue request: %w", err)
	}
	q, err := s.queues.GetQueueConfig(ctx, req.TitleID, req.QueueName)
	if err != nil {
		return nil, err
	}
	if !q.Enabled {
		return nil, fmt.Errorf("%s: %w", q.Key(), ErrQueueDisabled)
	}

	now := s.now().UTC()
	t := &models.Ticket{
		TicketID:   s.newID(),
		PlayerID:   req.PlayerID,
		TitleID:    req.TitleID,
		QueueName:  req.QueueName,
		Attributes: req.Attributes,
		Status:     models.StatusWaiting,
		CreatedAt:  now,
	}
	timeout := q.TimeoutSeconds
	if req.TimeoutSeconds > 0 {
		timeout = req.TimeoutSeconds
	}
	if timeout > 0 {
		giveUp := now.Add(time.Duration(timeout) * time.Second)
		t.GiveUpAfter = &giveUp
	}

	if err := s.tickets.CreateTicket(ctx, t); err != nil {
		return nil, err
	}
	if err := s.index.AddWaitingTicket(ctx, t.Projection()); err != nil {
		s.logger.Errorw("Ticket stored but not indexed", "ticketId", t.TicketID, "titleId", t.TitleID, "queueName", t.QueueName, "error", err)
		return t, fmt.Errorf("index ticket %s: %w", t.TicketID, err)
	}

	s.logger.Infow("Ticket enqueued",
		"ticketId", t.TicketID,
		"playerId", t.PlayerID,
		"titleId", t.TitleID,
		"queueName", t.QueueName,
	)
	return t, nil
}

// Cancel moves a waiting ticket to cancelled and drops it from the index.
// Cancelling a ticket that already left waiting fails with the store's
// invalid-transition error.
func (s *TicketService) Cancel(ctx context.Context, ticketID string) error {
	t, err := s.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := s.tickets.UpdateTicketStatus(ctx, ticketID, models.StatusCancelled, ""); err != nil {
		return err
	}
	if err := s.index.RemoveWaitingTicket(ctx, t.TitleID, t.QueueName, ticketID); err != nil {
		// The engine purges the entry on its next read.
		s.logger.Warnw("Cancelled ticket left in index", "ticketId", ticketID, "error", err)
	}
	s.logger.Infow("Ticket cancelled", "ticketId", ticketID, "playerId", t.PlayerID)
	return nil
}

// Rebuild re-adds every waiting ticket record of a queue to the index and
// removes index members whose record is no longer waiting.
func (s *TicketService) Rebuild(ctx context.Context, titleID, queueName string) (models.RebuildResult, error) {
	res := models.RebuildResult{TitleID: titleID, QueueName: queueName}

	records, err := s.tickets.ListWaitingTickets(ctx, titleID, queueName)
	if err != nil {
		return res, fmt.Errorf("list waiting tickets: %w", err)
	}
	waiting := make(map[string]bool, len(records))
	for i := range records {
		t := &records[i]
		waiting[t.TicketID] = true
		if err := s.index.AddWaitingTicket(ctx, t.Projection()); err != nil {
			return res, fmt.Errorf("restore ticket %s: %w", t.TicketID, err)
		}
		res.Restored++
	}

	members, err := s.index.Members(ctx, titleID, queueName)
	if err != nil {
		return res, fmt.Errorf("list index members: %w", err)
	}
	for _, id := range members {
		if waiting[id] {
			continue
		}
		if err := s.index.RemoveWaitingTicket(ctx, titleID, queueName, id); err != nil {
			return res, fmt.Errorf("purge ticket %s: %w", id, err)
		}
		res.Purged++
	}

	s.logger.Infow("Queue index rebuilt",
		"titleId", titleID,
		"queueName", queueName,
		"restored", res.Restored,
		"purged", res.Purged,
	)
	return res, nil
}
