package store

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/openmohaa/matchmaker/internal/models"
)

// MatchHistory appends finalized matches to the ClickHouse analytics table,
// one row per player.
type MatchHistory struct {
	ch driver.Conn
}

func NewMatchHistory(ch driver.Conn) *MatchHistory {
	return &MatchHistory{ch: ch}
}

// HistoryRows flattens a match into per-player analytics rows.
func HistoryRows(m *models.Match) []models.MatchHistoryRow {
	rows := make([]models.MatchHistoryRow, 0, len(m.Players))
	for _, p := range m.Players {
		skill, _ := p.Attributes.Float(models.SkillAttribute)
		var wait float64
		if !p.EnqueuedAt.IsZero() && m.CreatedAt.After(p.EnqueuedAt) {
			wait = m.CreatedAt.Sub(p.EnqueuedAt).Seconds()
		}
		rows = append(rows, models.MatchHistoryRow{
			MatchID:     m.MatchID,
			TitleID:     m.TitleID,
			QueueName:   m.QueueName,
			PlayerID:    p.PlayerID,
			TicketID:    p.TicketID,
			TeamID:      p.TeamID,
			Region:      m.ServerInfo.Region,
			ServerHost:  m.ServerInfo.Host,
			ServerPort:  uint16(m.ServerInfo.Port),
			SkillRating: skill,
			WaitSeconds: wait,
			CreatedAt:   m.CreatedAt,
		})
	}
	return rows
}

// Record writes the match's rows in a single batch.
func (h *MatchHistory) Record(ctx context.Context, m *models.Match) error {
	batch, err := h.ch.PrepareBatch(ctx, `
		INSERT INTO matchmaking.match_history (
			match_id, title_id, queue_name, player_id, ticket_id, team_id,
			region, server_host, server_port, skill_rating, wait_seconds, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare match history batch: %w", err)
	}

	for _, r := range HistoryRows(m) {
		if err := batch.Append(
			r.MatchID,
			r.TitleID,
			r.QueueName,
			r.PlayerID,
			r.TicketID,
			r.TeamID,
			r.Region,
			r.ServerHost,
			r.ServerPort,
			r.SkillRating,
			r.WaitSeconds,
			r.CreatedAt,
		); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append match history row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send match history batch: %w", err)
	}
	return nil
}
