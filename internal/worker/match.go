package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openmohaa/matchmaker/internal/logic"
	"github.com/openmohaa/matchmaker/internal/models"
	"github.com/openmohaa/matchmaker/internal/store"
)

// createMatch allocates a server, persists the match and moves every
// selected ticket to matched. Nothing is written unless allocation succeeds.
//
// The ticket record and index writes that follow the match insert are not
// transactional. A crash in between leaves entries that the next poll's
// stale purge resolves from the ticket records.
func (e *Engine) createMatch(ctx context.Context, q *models.QueueConfig, selected []models.TicketProjection) (*models.Match, error) {
	players := logic.AssignTeams(selected, q.TeamConfiguration)

	start := time.Now()
	server, err := e.config.Allocator.AllocateServer(ctx, q.TitleID, q.Strategy(), selected)
	if err != nil {
		allocationDuration.WithLabelValues("failure").Observe(time.Since(start).Seconds())
		queueErrors.WithLabelValues(stageAllocate).Inc()
		return nil, fmt.Errorf("allocate server: %w", err)
	}
	allocationDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())

	m := &models.Match{
		MatchID:    e.config.NewID(),
		TitleID:    q.TitleID,
		QueueName:  q.QueueName,
		Players:    players,
		ServerInfo: server,
		CreatedAt:  e.config.Now().UTC(),
	}
	matchID, err := e.config.Matches.CreateMatch(ctx, m)
	if err != nil {
		queueErrors.WithLabelValues(stagePersist).Inc()
		return nil, fmt.Errorf("persist match: %w", err)
	}
	if matchID != "" {
		m.MatchID = matchID
	}
	matchesCreated.WithLabelValues(q.TitleID, q.QueueName).Inc()

	// Tickets that left the queue between the read and this write, such as
	// a concurrent cancel. They get no match_found and lose their entry.
	departed := make(map[string]bool)
	for _, p := range selected {
		err := e.config.Tickets.UpdateTicketStatus(ctx, p.TicketID, models.StatusMatched, m.MatchID)
		switch {
		case err == nil:
		case errors.Is(err, store.ErrInvalidTransition), errors.Is(err, store.ErrTicketNotFound):
			queueErrors.WithLabelValues(stageTicketWrite).Inc()
			e.logger.Warnw("Ticket left the queue before the match committed",
				"ticketId", p.TicketID,
				"playerId", p.PlayerID,
				"matchId", m.MatchID,
				"reason", err,
			)
			departed[p.TicketID] = true
			e.removeEntry(ctx, q, p.TicketID)
			continue
		default:
			queueErrors.WithLabelValues(stageTicketWrite).Inc()
			e.logger.Errorw("Failed to mark ticket matched",
				"ticketId", p.TicketID,
				"matchId", m.MatchID,
				"error", err,
			)
		}
		p.Status = models.StatusMatched
		p.MatchID = m.MatchID
		if err := e.config.Index.MarkMatched(ctx, p); err != nil {
			queueErrors.WithLabelValues(stageIndex).Inc()
			e.logger.Errorw("Failed to update waiting index", "ticketId", p.TicketID, "matchId", m.MatchID, "error", err)
		}
	}

	e.logger.Infow("Match created",
		"matchId", m.MatchID,
		"titleId", m.TitleID,
		"queueName", m.QueueName,
		"players", len(m.Players),
		"region", server.Region,
		"host", server.Host,
	)

	if e.config.History != nil {
		if err := e.config.History.Record(ctx, m); err != nil {
			queueErrors.WithLabelValues(stageHistory).Inc()
			e.logger.Warnw("Failed to record match history", "matchId", m.MatchID, "error", err)
		}
	}

	e.publishMatch(ctx, m, departed)
	return m, nil
}

func (e *Engine) publishMatch(ctx context.Context, m *models.Match, skip map[string]bool) {
	e.publish(ctx, models.TitleChannel(m.TitleID), models.Event{
		Type:      models.EventMatchCreated,
		Timestamp: m.CreatedAt,
		Data: models.MatchCreatedData{
			MatchID:    m.MatchID,
			TitleID:    m.TitleID,
			QueueName:  m.QueueName,
			Players:    m.Players,
			ServerInfo: m.ServerInfo,
		},
	})
	for _, p := range m.Players {
		if skip[p.TicketID] {
			continue
		}
		e.publish(ctx, models.PlayerChannel(p.PlayerID), models.Event{
			Type:      models.EventMatchFound,
			Timestamp: m.CreatedAt,
			Data: models.MatchFoundData{
				MatchID:    m.MatchID,
				TicketID:   p.TicketID,
				TitleID:    m.TitleID,
				QueueName:  m.QueueName,
				TeamID:     p.TeamID,
				ServerInfo: m.ServerInfo,
			},
		})
	}
}
