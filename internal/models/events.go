package models

import (
	"time"
)

// EventType names a notification delivered through the notifier.
type EventType string

const (
	EventMatchCreated  EventType = "match.created"
	EventMatchFound    EventType = "match_found"
	EventTicketExpired EventType = "ticket.expired"
)

// Event is the envelope published on title and player channels.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// MatchCreatedData is published on the title channel.
type MatchCreatedData struct {
	MatchID    string        `json:"matchId"`
	TitleID    string        `json:"titleId"`
	QueueName  string        `json:"queueName"`
	Players    []MatchPlayer `json:"players"`
	ServerInfo ServerInfo    `json:"serverInfo"`
}

// MatchFoundData is published on each matched player's channel.
type MatchFoundData struct {
	MatchID    string     `json:"matchId"`
	TicketID   string     `json:"ticketId"`
	TitleID    string     `json:"titleId"`
	QueueName  string     `json:"queueName"`
	TeamID     string     `json:"teamId"`
	ServerInfo ServerInfo `json:"serverInfo"`
}

// TicketExpiredData is published on the owning player's channel.
type TicketExpiredData struct {
	TicketID  string    `json:"ticketId"`
	TitleID   string    `json:"titleId"`
	QueueName string    `json:"queueName"`
	ExpiredAt time.Time `json:"expiredAt"`
}

// TitleChannel is the channel carrying title-wide match events.
func TitleChannel(titleID string) string {
	return "title:" + titleID + ":matches"
}

// PlayerChannel is the channel carrying events for a single player.
func PlayerChannel(playerID string) string {
	return "player:" + playerID
}
