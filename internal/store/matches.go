package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/openmohaa/matchmaker/internal/models"
)

// MatchStore persists finalized matches. Matches are immutable; there is no
// update path.
type MatchStore struct {
	pg PgPool
}

func NewMatchStore(pg PgPool) *MatchStore {
	return &MatchStore{pg: pg}
}

// CreateMatch inserts the match record and returns its id.
func (s *MatchStore) CreateMatch(ctx context.Context, m *models.Match) (string, error) {
	if m.MatchID == "" {
		return "", errors.New("create match: empty match id")
	}
	players, err := json.Marshal(m.Players)
	if err != nil {
		return "", fmt.Errorf("marshal players: %w", err)
	}
	server, err := json.Marshal(m.ServerInfo)
	if err != nil {
		return "", fmt.Errorf("marshal server info: %w", err)
	}

	_, err = s.pg.Exec(ctx, `
		INSERT INTO matches (match_id, title_id, queue_name, players, server_info, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.MatchID, m.TitleID, m.QueueName, players, server, m.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert match %s: %w", m.MatchID, err)
	}
	return m.MatchID, nil
}

// GetMatch loads a match record.
func (s *MatchStore) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	var (
		m       models.Match
		players []byte
		server  []byte
	)
	err := s.pg.QueryRow(ctx, `
		SELECT match_id, title_id, queue_name, players, server_info, created_at
		FROM matches WHERE match_id = $1
	`, matchID).Scan(&m.MatchID, &m.TitleID, &m.QueueName, &players, &server, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get match %s: %w", matchID, err)
	}
	if err := json.Unmarshal(players, &m.Players); err != nil {
		return nil, fmt.Errorf("match %s players: %w", matchID, err)
	}
	if err := json.Unmarshal(server, &m.ServerInfo); err != nil {
		return nil, fmt.Errorf("match %s server info: %w", matchID, err)
	}
	return &m, nil
}
