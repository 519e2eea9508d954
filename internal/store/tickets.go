package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/openmohaa/matchmaker/internal/models"
)

const ticketColumns = `ticket_id, player_id, title_id, queue_name, attributes, status,
	created_at, give_up_after, COALESCE(match_id, ''), updated_at`

// uniqueViolation is the Postgres error code raised by the one-waiting-ticket index.
const uniqueViolation = "23505"

// TicketStore is the durable ticket record store backed by the
// matchmaking_tickets table.
type TicketStore struct {
	pg  PgPool
	now func() time.Time
}

func NewTicketStore(pg PgPool) *TicketStore {
	return &TicketStore{pg: pg, now: time.Now}
}

// CreateTicket inserts a new waiting ticket. A player may hold only one
// waiting ticket per title; a second one fails with ErrPlayerAlreadyQueued.
func (s *TicketStore) CreateTicket(ctx context.Context, t *models.Ticket) error {
	if t.Status == "" {
		t.Status = models.StatusWaiting
	}
	if t.Status != models.StatusWaiting {
		return fmt.Errorf("create ticket %s with status %s: %w", t.TicketID, t.Status, ErrInvalidTransition)
	}
	attrs, err := json.Marshal(t.Attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}
	t.UpdatedAt = t.CreatedAt

	_, err = s.pg.Exec(ctx, `
		INSERT INTO matchmaking_tickets (
			ticket_id, player_id, title_id, queue_name, attributes, status,
			created_at, give_up_after, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.TicketID, t.PlayerID, t.TitleID, t.QueueName, attrs, string(t.Status),
		t.CreatedAt, t.GiveUpAfter, t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrPlayerAlreadyQueued
		}
		return fmt.Errorf("insert ticket %s: %w", t.TicketID, err)
	}
	return nil
}

// GetTicket loads a single ticket record.
func (s *TicketStore) GetTicket(ctx context.Context, ticketID string) (*models.Ticket, error) {
	row := s.pg.QueryRow(ctx, `SELECT `+ticketColumns+` FROM matchmaking_tickets WHERE ticket_id = $1`, ticketID)
	t, err := scanTicket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket %s: %w", ticketID, err)
	}
	return t, nil
}

// GetTickets batch-loads ticket records keyed by id. Unknown ids are absent
// from the result.
func (s *TicketStore) GetTickets(ctx context.Context, ticketIDs []string) (map[string]models.Ticket, error) {
	out := make(map[string]models.Ticket, len(ticketIDs))
	if len(ticketIDs) == 0 {
		return out, nil
	}
	rows, err := s.pg.Query(ctx, `SELECT `+ticketColumns+` FROM matchmaking_tickets WHERE ticket_id = ANY($1)`, ticketIDs)
	if err != nil {
		return nil, fmt.Errorf("get tickets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		out[t.TicketID] = *t
	}
	return out, rows.Err()
}

// ListWaitingTickets returns every waiting ticket of a queue in enqueue order.
func (s *TicketStore) ListWaitingTickets(ctx context.Context, titleID, queueName string) ([]models.Ticket, error) {
	rows, err := s.pg.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM matchmaking_tickets
		WHERE title_id = $1 AND queue_name = $2 AND status = 'waiting'
		ORDER BY created_at ASC, ticket_id ASC
	`, titleID, queueName)
	if err != nil {
		return nil, fmt.Errorf("list waiting tickets: %w", err)
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

// UpdateTicketStatus moves a waiting ticket to a terminal status. The write is
// guarded on the current status so a ticket never leaves a terminal state;
// such an attempt returns ErrInvalidTransition.
func (s *TicketStore) UpdateTicketStatus(ctx context.Context, ticketID string, status models.TicketStatus, matchID string) error {
	if !models.CanTransition(models.StatusWaiting, status) {
		return fmt.Errorf("ticket %s -> %s: %w", ticketID, status, ErrInvalidTransition)
	}
	if status == models.StatusMatched && matchID == "" {
		return fmt.Errorf("ticket %s: matched status requires a match id", ticketID)
	}

	tag, err := s.pg.Exec(ctx, `
		UPDATE matchmaking_tickets
		SET status = $2, match_id = NULLIF($3, ''), updated_at = $4
		WHERE ticket_id = $1 AND status = 'waiting'
	`, ticketID, string(status), matchID, s.now().UTC())
	if err != nil {
		return fmt.Errorf("update ticket %s: %w", ticketID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current string
	err = s.pg.QueryRow(ctx, `SELECT status FROM matchmaking_tickets WHERE ticket_id = $1`, ticketID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrTicketNotFound
	}
	if err != nil {
		return fmt.Errorf("read ticket %s status: %w", ticketID, err)
	}
	return fmt.Errorf("ticket %s is %s, cannot become %s: %w", ticketID, current, status, ErrInvalidTransition)
}

func scanTicket(row pgx.Row) (*models.Ticket, error) {
	var (
		t      models.Ticket
		attrs  []byte
		status string
	)
	if err := row.Scan(&t.TicketID, &t.PlayerID, &t.TitleID, &t.QueueName, &attrs, &status,
		&t.CreatedAt, &t.GiveUpAfter, &t.MatchID, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = models.TicketStatus(status)
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &t.Attributes); err != nil {
			return nil, fmt.Errorf("ticket %s attributes: %w", t.TicketID, err)
		}
	}
	return &t, nil
}
