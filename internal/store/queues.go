package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/openmohaa/matchmaker/internal/models"
)

const queueColumns = `title_id, queue_name, COALESCE(display_name, ''), min_players, max_players,
	team_configuration, matching_rules, COALESCE(server_allocation_strategy, ''), timeout_seconds, enabled`

// QueueConfigStore reads queue definitions. Writes belong to the
// configuration API; the engine only reads snapshots.
type QueueConfigStore struct {
	pg PgPool
}

func NewQueueConfigStore(pg PgPool) *QueueConfigStore {
	return &QueueConfigStore{pg: pg}
}

// ListActiveQueueConfigs returns every enabled queue of every title.
func (s *QueueConfigStore) ListActiveQueueConfigs(ctx context.Context) ([]models.QueueConfig, error) {
	return s.list(ctx, `SELECT `+queueColumns+` FROM queue_configs WHERE enabled ORDER BY title_id, queue_name`)
}

// ListQueueConfigs returns every queue, enabled or not.
func (s *QueueConfigStore) ListQueueConfigs(ctx context.Context) ([]models.QueueConfig, error) {
	return s.list(ctx, `SELECT `+queueColumns+` FROM queue_configs ORDER BY title_id, queue_name`)
}

// GetQueueConfig loads one queue definition.
func (s *QueueConfigStore) GetQueueConfig(ctx context.Context, titleID, queueName string) (*models.QueueConfig, error) {
	row := s.pg.QueryRow(ctx, `SELECT `+queueColumns+` FROM queue_configs WHERE title_id = $1 AND queue_name = $2`, titleID, queueName)
	q, err := scanQueueConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrQueueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get queue %s/%s: %w", titleID, queueName, err)
	}
	return q, nil
}

func (s *QueueConfigStore) list(ctx context.Context, query string) ([]models.QueueConfig, error) {
	rows, err := s.pg.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list queue configs: %w", err)
	}
	defer rows.Close()

	var queues []models.QueueConfig
	for rows.Next() {
		q, err := scanQueueConfig(rows)
		if err != nil {
			return nil, err
		}
		queues = append(queues, *q)
	}
	return queues, rows.Err()
}

// scanQueueConfig decodes one row. A malformed JSON column does not fail the
// listing: the error is kept on the config so only that queue is skipped.
func scanQueueConfig(row pgx.Row) (*models.QueueConfig, error) {
	var (
		q        models.QueueConfig
		teams    []byte
		rules    []byte
		strategy string
	)
	if err := row.Scan(&q.TitleID, &q.QueueName, &q.DisplayName, &q.MinPlayers, &q.MaxPlayers,
		&teams, &rules, &strategy, &q.TimeoutSeconds, &q.Enabled); err != nil {
		return nil, err
	}
	q.ServerAllocationStrategy = models.AllocationStrategy(strategy)
	if len(teams) > 0 && string(teams) != "null" {
		q.TeamConfiguration = &models.TeamConfiguration{}
		if err := json.Unmarshal(teams, q.TeamConfiguration); err != nil {
			q.LoadErr = fmt.Errorf("queue %s team configuration: %w", q.Key(), err)
		}
	}
	if len(rules) > 0 && string(rules) != "null" {
		q.MatchingRules = &models.MatchingRules{}
		if err := json.Unmarshal(rules, q.MatchingRules); err != nil {
			q.LoadErr = fmt.Errorf("queue %s matching rules: %w", q.Key(), err)
		}
	}
	return &q, nil
}
