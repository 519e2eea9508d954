package models

import (
	"time"
)

// DefaultTeamID is assigned when a queue has no team configuration.
const DefaultTeamID = "default"

// ServerInfo is the connection info returned by the server allocator.
type ServerInfo struct {
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Region string `json:"region"`
}

// MatchPlayer is one participant of a finalized match.
type MatchPlayer struct {
	PlayerID   string     `json:"playerId"`
	TicketID   string     `json:"ticketId"`
	TeamID     string     `json:"teamId"`
	Attributes Attributes `json:"attributes,omitempty"`
	EnqueuedAt time.Time  `json:"enqueuedAt"`
}

// Match is a finalized grouping of tickets. Immutable once created.
type Match struct {
	MatchID    string        `json:"matchId"`
	TitleID    string        `json:"titleId"`
	QueueName  string        `json:"queueName"`
	Players    []MatchPlayer `json:"players"`
	ServerInfo ServerInfo    `json:"serverInfo"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// TicketIDs returns the ticket ids of the match players in roster order.
func (m *Match) TicketIDs() []string {
	ids := make([]string, 0, len(m.Players))
	for _, p := range m.Players {
		ids = append(ids, p.TicketID)
	}
	return ids
}

// MatchHistoryRow is one player's row in the ClickHouse match history table.
type MatchHistoryRow struct {
	MatchID     string
	TitleID     string
	QueueName   string
	PlayerID    string
	TicketID    string
	TeamID      string
	Region      string
	ServerHost  string
	ServerPort  uint16
	SkillRating float64
	WaitSeconds float64
	CreatedAt   time.Time
}
