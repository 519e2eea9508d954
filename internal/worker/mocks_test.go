package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/openmohaa/matchmaker/internal/models"
	"github.com/openmohaa/matchmaker/internal/store"
)

// memQueues implements QueueConfigSource
type memQueues struct {
	configs []models.QueueConfig
	err     error
	// ListFunc overrides the static configs when set.
	ListFunc func(ctx context.Context) ([]models.QueueConfig, error)
}

func (m *memQueues) ListActiveQueueConfigs(ctx context.Context) ([]models.QueueConfig, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.QueueConfig, len(m.configs))
	copy(out, m.configs)
	return out, nil
}

// memTickets implements TicketStore and enforces the ticket state machine.
type memTickets struct {
	mu        sync.Mutex
	records   map[string]*models.Ticket
	updateErr map[string]error
	getErr    error
	// illegal counts attempts to leave a terminal status.
	illegal     int
	transitions map[string]int
}

func newMemTickets() *memTickets {
	return &memTickets{
		records:     make(map[string]*models.Ticket),
		updateErr:   make(map[string]error),
		transitions: make(map[string]int),
	}
}

func (m *memTickets) UpdateTicketStatus(ctx context.Context, ticketID string, status models.TicketStatus, matchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.updateErr[ticketID]; err != nil {
		return err
	}
	t, ok := m.records[ticketID]
	if !ok {
		return store.ErrTicketNotFound
	}
	if !models.CanTransition(t.Status, status) {
		m.illegal++
		return fmt.Errorf("ticket %s %s -> %s: %w", ticketID, t.Status, status, store.ErrInvalidTransition)
	}
	t.Status = status
	t.MatchID = matchID
	m.transitions[ticketID]++
	return nil
}

func (m *memTickets) GetTickets(ctx context.Context, ids []string) (map[string]models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make(map[string]models.Ticket, len(ids))
	for _, id := range ids {
		if t, ok := m.records[id]; ok {
			out[id] = *t
		}
	}
	return out, nil
}

func (m *memTickets) status(id string) models.TicketStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id].Status
}

func (m *memTickets) get(id string) models.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.records[id]
}

// memIndex implements WaitingIndex over per-queue maps.
type memIndex struct {
	mu      sync.Mutex
	queues  map[string]map[string]models.TicketProjection
	matched map[string]models.TicketProjection
	readErr map[string]error
	removes int
}

func newMemIndex() *memIndex {
	return &memIndex{
		queues:  make(map[string]map[string]models.TicketProjection),
		matched: make(map[string]models.TicketProjection),
		readErr: make(map[string]error),
	}
}

func indexKey(titleID, queueName string) string { return titleID + "/" + queueName }

func (m *memIndex) add(p models.TicketProjection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := indexKey(p.TitleID, p.QueueName)
	if m.queues[k] == nil {
		m.queues[k] = make(map[string]models.TicketProjection)
	}
	m.queues[k][p.TicketID] = p
}

func (m *memIndex) ReadWaitingTickets(ctx context.Context, titleID, queueName string) ([]models.TicketProjection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := indexKey(titleID, queueName)
	if err := m.readErr[k]; err != nil {
		return nil, err
	}
	out := make([]models.TicketProjection, 0, len(m.queues[k]))
	for _, p := range m.queues[k] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].TicketID < out[j].TicketID
	})
	return out, nil
}

func (m *memIndex) RemoveWaitingTicket(ctx context.Context, titleID, queueName, ticketID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removes++
	delete(m.queues[indexKey(titleID, queueName)], ticketID)
	return nil
}

func (m *memIndex) MarkMatched(ctx context.Context, p models.TicketProjection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.queues[indexKey(p.TitleID, p.QueueName)], p.TicketID)
	p.Status = models.StatusMatched
	m.matched[p.TicketID] = p
	return nil
}

func (m *memIndex) waiting(titleID, queueName string) []string {
	ps, _ := m.ReadWaitingTickets(context.Background(), titleID, queueName)
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.TicketID
	}
	return ids
}

// memMatches implements MatchStore
type memMatches struct {
	mu      sync.Mutex
	matches []*models.Match
	err     error
}

func (m *memMatches) CreateMatch(ctx context.Context, match *models.Match) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.matches = append(m.matches, match)
	return match.MatchID, nil
}

func (m *memMatches) all() []*models.Match {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Match, len(m.matches))
	copy(out, m.matches)
	return out
}

// MockAllocator implements Allocator
type MockAllocator struct {
	mu           sync.Mutex
	AllocateFunc func(ctx context.Context, titleID string, strategy models.AllocationStrategy, tickets []models.TicketProjection) (models.ServerInfo, error)
	Calls        []models.AllocationStrategy
}

func (m *MockAllocator) AllocateServer(ctx context.Context, titleID string, strategy models.AllocationStrategy, tickets []models.TicketProjection) (models.ServerInfo, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, strategy)
	fn := m.AllocateFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, titleID, strategy, tickets)
	}
	return models.ServerInfo{Host: "10.0.0.1", Port: 12203, Region: "eu"}, nil
}

// MockHistory implements MatchHistory
type MockHistory struct {
	mu       sync.Mutex
	Recorded []string
	Err      error
}

func (m *MockHistory) Record(ctx context.Context, match *models.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Recorded = append(m.Recorded, match.MatchID)
	return nil
}

type PublishedEvent struct {
	Channel string
	Event   models.Event
}

// MockNotifier records published events
type MockNotifier struct {
	mu     sync.Mutex
	Events []PublishedEvent
	Err    error
}

func (m *MockNotifier) Publish(ctx context.Context, channel string, event models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, PublishedEvent{Channel: channel, Event: event})
	return nil
}

func (m *MockNotifier) byType(t models.EventType) []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PublishedEvent
	for _, e := range m.Events {
		if e.Event.Type == t {
			out = append(out, e)
		}
	}
	return out
}

var baseTime = time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
