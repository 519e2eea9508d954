package models

import (
	"time"
)

// TicketStatus is the lifecycle state of a matchmaking ticket.
type TicketStatus string

const (
	StatusWaiting   TicketStatus = "waiting"
	StatusMatched   TicketStatus = "matched"
	StatusCancelled TicketStatus = "cancelled"
	StatusExpired   TicketStatus = "expired"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s TicketStatus) IsTerminal() bool {
	switch s {
	case StatusMatched, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	return s == StatusWaiting || s.IsTerminal()
}

// allowedFrom maps a target status to the statuses it may be reached from.
var allowedFrom = map[TicketStatus][]TicketStatus{
	StatusMatched:   {StatusWaiting},
	StatusCancelled: {StatusWaiting},
	StatusExpired:   {StatusWaiting},
}

// CanTransition reports whether a ticket may move from one status to another.
func CanTransition(from, to TicketStatus) bool {
	for _, s := range allowedFrom[to] {
		if s == from {
			return true
		}
	}
	return false
}

// Ticket is the durable record of a player's request to be matched.
type Ticket struct {
	TicketID    string       `json:"ticketId"`
	PlayerID    string       `json:"playerId"`
	TitleID     string       `json:"titleId"`
	QueueName   string       `json:"queueName"`
	Attributes  Attributes   `json:"attributes,omitempty"`
	Status      TicketStatus `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	GiveUpAfter *time.Time   `json:"giveUpAfter,omitempty"`
	MatchID     string       `json:"matchId,omitempty"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Projection returns the lightweight view kept in the waiting-queue index.
func (t *Ticket) Projection() TicketProjection {
	return TicketProjection{
		TicketID:    t.TicketID,
		PlayerID:    t.PlayerID,
		TitleID:     t.TitleID,
		QueueName:   t.QueueName,
		Attributes:  t.Attributes,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		GiveUpAfter: t.GiveUpAfter,
		MatchID:     t.MatchID,
	}
}

// TicketProjection is the cached form of a ticket held in the waiting-queue index.
// Status and MatchID are only set once the engine overwrites a matched entry.
type TicketProjection struct {
	TicketID    string       `json:"ticketId"`
	PlayerID    string       `json:"playerId"`
	TitleID     string       `json:"titleId"`
	QueueName   string       `json:"queueName"`
	Attributes  Attributes   `json:"attributes,omitempty"`
	Status      TicketStatus `json:"status,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	GiveUpAfter *time.Time   `json:"giveUpAfter,omitempty"`
	MatchID     string       `json:"matchId,omitempty"`
}

// Expired reports whether the ticket's give-up time has passed at now.
// A ticket without a give-up time never expires on its own.
func (p TicketProjection) Expired(now time.Time) bool {
	return p.GiveUpAfter != nil && !now.Before(*p.GiveUpAfter)
}
