package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/openmohaa/matchmaker/internal/logic"
	"github.com/openmohaa/matchmaker/internal/models"
	"github.com/openmohaa/matchmaker/internal/store"
)

type queueResult struct {
	matches int
	expired int
}

// processQueue runs one queue through expiry, reconciliation, grouping and
// match creation.
func (e *Engine) processQueue(ctx context.Context, q *models.QueueConfig) (res queueResult, err error) {
	ctx, span := e.tracer.Start(ctx, "matchmaker.queue", trace.WithAttributes(
		attribute.String("titleId", q.TitleID),
		attribute.String("queueName", q.QueueName),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "queue processing failed")
		}
		span.End()
	}()

	if err := q.Validate(); err != nil {
		queueErrors.WithLabelValues(stageConfig).Inc()
		return res, err
	}

	entries, err := e.config.Index.ReadWaitingTickets(ctx, q.TitleID, q.QueueName)
	if err != nil {
		queueErrors.WithLabelValues(stageRead).Inc()
		return res, err
	}
	// Expiry is judged against the read time, not the write time.
	now := e.config.Now()

	eligible, expired := e.expireTickets(ctx, q, entries, now)
	res.expired = expired

	eligible, err = e.purgeStale(ctx, q, eligible)
	if err != nil {
		queueErrors.WithLabelValues(stageReconcile).Inc()
		return res, err
	}

	remaining := len(eligible)
	defer func() {
		waitingTickets.WithLabelValues(q.TitleID, q.QueueName).Set(float64(remaining))
	}()

	if len(eligible) < q.MinPlayers {
		return res, nil
	}

	grouper := logic.NewGrouper(q.MatchingRules)
	groups := grouper.Group(eligible)
	span.SetAttributes(
		attribute.String("grouper", grouper.Name()),
		attribute.Int("eligible", len(eligible)),
		attribute.Int("groups", len(groups)),
	)

	for _, group := range groups {
		for len(group) >= q.MinPlayers {
			selected, rest := logic.SelectForMatch(group, q.MaxPlayers)
			if _, err := e.createMatch(ctx, q, selected); err != nil {
				// Tickets stay waiting; the next poll retries with a fresh grouping.
				e.logger.Warnw("Match creation failed",
					"titleId", q.TitleID,
					"queueName", q.QueueName,
					"players", len(selected),
					"error", err,
				)
				break
			}
			res.matches++
			remaining -= len(selected)
			group = rest
		}
	}
	return res, nil
}

// expireTickets moves every entry whose give-up time has passed to expired
// and returns the rest in their original order. An expired entry is excluded
// even when its store write fails, so expiry always wins over matching.
func (e *Engine) expireTickets(ctx context.Context, q *models.QueueConfig, entries []models.TicketProjection, now time.Time) ([]models.TicketProjection, int) {
	eligible := make([]models.TicketProjection, 0, len(entries))
	expired := 0
	for _, p := range entries {
		if !p.Expired(now) {
			eligible = append(eligible, p)
			continue
		}
		if e.expireTicket(ctx, q, p, now) {
			expired++
		}
	}
	return eligible, expired
}

// expireTicket reports whether this call performed the transition.
func (e *Engine) expireTicket(ctx context.Context, q *models.QueueConfig, p models.TicketProjection, now time.Time) bool {
	err := e.config.Tickets.UpdateTicketStatus(ctx, p.TicketID, models.StatusExpired, "")
	switch {
	case err == nil:
	case errors.Is(err, store.ErrInvalidTransition), errors.Is(err, store.ErrTicketNotFound):
		// Already terminal or gone: only the index entry is stale.
		e.logger.Infow("Dropping stale expired entry", "ticketId", p.TicketID, "queueName", q.QueueName, "reason", err)
		e.removeEntry(ctx, q, p.TicketID)
		staleEntriesPurged.Inc()
		return false
	default:
		queueErrors.WithLabelValues(stageExpire).Inc()
		e.logger.Errorw("Failed to expire ticket", "ticketId", p.TicketID, "titleId", q.TitleID, "queueName", q.QueueName, "error", err)
		return false
	}

	ticketsExpired.Inc()
	e.removeEntry(ctx, q, p.TicketID)
	e.publish(ctx, models.PlayerChannel(p.PlayerID), models.Event{
		Type:      models.EventTicketExpired,
		Timestamp: now.UTC(),
		Data: models.TicketExpiredData{
			TicketID:  p.TicketID,
			TitleID:   q.TitleID,
			QueueName: q.QueueName,
			ExpiredAt: now.UTC(),
		},
	})
	e.logger.Infow("Ticket expired", "ticketId", p.TicketID, "playerId", p.PlayerID, "titleId", q.TitleID, "queueName", q.QueueName)
	return true
}

// purgeStale checks the eligible entries against the ticket records. An entry
// whose record is missing, no longer waiting or already carries a match id is
// dropped from the index; the record is the source of truth.
func (e *Engine) purgeStale(ctx context.Context, q *models.QueueConfig, eligible []models.TicketProjection) ([]models.TicketProjection, error) {
	if len(eligible) == 0 {
		return eligible, nil
	}
	ids := make([]string, len(eligible))
	for i, p := range eligible {
		ids[i] = p.TicketID
	}
	records, err := e.config.Tickets.GetTickets(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load ticket records: %w", err)
	}

	kept := eligible[:0:0]
	for _, p := range eligible {
		rec, ok := records[p.TicketID]
		if ok && rec.Status == models.StatusWaiting && rec.MatchID == "" {
			kept = append(kept, p)
			continue
		}

		reason := "missing"
		if ok {
			reason = string(rec.Status)
		}
		staleEntriesPurged.Inc()
		e.logger.Warnw("Purging stale waiting entry",
			"ticketId", p.TicketID,
			"titleId", q.TitleID,
			"queueName", q.QueueName,
			"recordStatus", reason,
			"matchId", rec.MatchID,
		)

		if ok && rec.MatchID != "" {
			p.MatchID = rec.MatchID
			if err := e.config.Index.MarkMatched(ctx, p); err != nil {
				queueErrors.WithLabelValues(stageIndex).Inc()
				e.logger.Errorw("Failed to mark stale entry matched", "ticketId", p.TicketID, "error", err)
			}
			continue
		}
		e.removeEntry(ctx, q, p.TicketID)
	}
	return kept, nil
}

func (e *Engine) removeEntry(ctx context.Context, q *models.QueueConfig, ticketID string) {
	if err := e.config.Index.RemoveWaitingTicket(ctx, q.TitleID, q.QueueName, ticketID); err != nil {
		queueErrors.WithLabelValues(stageIndex).Inc()
		e.logger.Errorw("Failed to remove waiting entry", "ticketId", ticketID, "titleId", q.TitleID, "queueName", q.QueueName, "error", err)
	}
}

func (e *Engine) publish(ctx context.Context, channel string, event models.Event) {
	if err := e.config.Notifier.Publish(ctx, channel, event); err != nil {
		queueErrors.WithLabelValues(stageNotify).Inc()
		e.logger.Warnw("Failed to publish event", "channel", channel, "type", event.Type, "error", err)
	}
}
