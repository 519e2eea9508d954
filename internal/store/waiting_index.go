package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/openmohaa/matchmaker/internal/models"
)

// DefaultProjectionTTL bounds how long a matched projection stays readable
// after it has left the queue.
const DefaultProjectionTTL = time.Hour

// WaitingIndex is the Redis-backed working set of unmatched tickets.
//
// Each (title, queue) pair is a sorted set of ticket ids scored by enqueue
// time in milliseconds; each ticket's projection is a JSON string under its
// own key. The index is a cache: it can be rebuilt from the ticket store.
type WaitingIndex struct {
	redis         RedisClient
	projectionTTL time.Duration
	logger        *zap.SugaredLogger
}

func NewWaitingIndex(client RedisClient, projectionTTL time.Duration, logger *zap.Logger) *WaitingIndex {
	if projectionTTL <= 0 {
		projectionTTL = DefaultProjectionTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WaitingIndex{redis: client, projectionTTL: projectionTTL, logger: logger.Sugar()}
}

// QueueKey is the sorted set holding a queue's waiting ticket ids.
func QueueKey(titleID, queueName string) string {
	return "mm:queue:" + titleID + ":" + queueName
}

// TicketKey is the key holding a ticket's cached projection.
func TicketKey(ticketID string) string {
	return "mm:ticket:" + ticketID
}

func enqueueScore(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// AddWaitingTicket stores the projection and adds the ticket to its queue.
// Re-adding an existing ticket keeps its position.
func (w *WaitingIndex) AddWaitingTicket(ctx context.Context, p models.TicketProjection) error {
	p.Status = models.StatusWaiting
	p.MatchID = ""
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal projection %s: %w", p.TicketID, err)
	}
	_, err = w.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, TicketKey(p.TicketID), data, 0)
		pipe.ZAdd(ctx, QueueKey(p.TitleID, p.QueueName), redis.Z{
			Score:  enqueueScore(p.CreatedAt),
			Member: p.TicketID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("add waiting ticket %s: %w", p.TicketID, err)
	}
	return nil
}

// ReadWaitingTickets returns every waiting projection of a queue, oldest first.
// Members whose projection is missing, unreadable or no longer waiting are
// purged from the queue and left out.
func (w *WaitingIndex) ReadWaitingTickets(ctx context.Context, titleID, queueName string) ([]models.TicketProjection, error) {
	key := QueueKey(titleID, queueName)
	members, err := w.redis.ZRangeWithScores(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read queue %s: %w", key, err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(members))
	keys := make([]string, 0, len(members))
	for _, z := range members {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		ids = append(ids, id)
		keys = append(keys, TicketKey(id))
	}

	values, err := w.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read projections for %s: %w", key, err)
	}

	projections := make([]models.TicketProjection, 0, len(ids))
	var orphans []string
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			orphans = append(orphans, ids[i])
			continue
		}
		var p models.TicketProjection
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			w.logger.Warnw("Unreadable ticket projection", "ticketId", ids[i], "error", err)
			orphans = append(orphans, ids[i])
			continue
		}
		if p.Status != "" && p.Status != models.StatusWaiting {
			orphans = append(orphans, ids[i])
			continue
		}
		p.TicketID = ids[i]
		p.TitleID = titleID
		p.QueueName = queueName
		projections = append(projections, p)
	}
	// Scores have millisecond precision and Redis breaks ties by member, so
	// order by the full enqueue time.
	sort.SliceStable(projections, func(i, j int) bool {
		return projections[i].CreatedAt.Before(projections[j].CreatedAt)
	})

	if len(orphans) > 0 {
		if err := w.removeMembers(ctx, key, orphans); err != nil {
			// Left in place; the next read tries again.
			w.logger.Warnw("Failed to purge orphaned queue members", "queue", key, "count", len(orphans), "error", err)
		} else {
			w.logger.Infow("Purged orphaned queue members", "queue", key, "count", len(orphans))
		}
	}
	return projections, nil
}

// RemoveWaitingTicket drops a ticket from its queue and deletes its
// projection. Removing an absent ticket is a no-op.
func (w *WaitingIndex) RemoveWaitingTicket(ctx context.Context, titleID, queueName, ticketID string) error {
	_, err := w.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, QueueKey(titleID, queueName), ticketID)
		pipe.Del(ctx, TicketKey(ticketID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove waiting ticket %s: %w", ticketID, err)
	}
	return nil
}

// MarkMatched drops a ticket from its queue and overwrites its projection with
// the matched state, kept for the projection TTL. Safe to repeat.
func (w *WaitingIndex) MarkMatched(ctx context.Context, p models.TicketProjection) error {
	p.Status = models.StatusMatched
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal projection %s: %w", p.TicketID, err)
	}
	_, err = w.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, QueueKey(p.TitleID, p.QueueName), p.TicketID)
		pipe.Set(ctx, TicketKey(p.TicketID), data, w.projectionTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("mark ticket %s matched: %w", p.TicketID, err)
	}
	return nil
}

// Depth returns the number of tickets currently queued.
func (w *WaitingIndex) Depth(ctx context.Context, titleID, queueName string) (int64, error) {
	n, err := w.redis.ZCard(ctx, QueueKey(titleID, queueName)).Result()
	if err != nil {
		return 0, fmt.Errorf("queue depth: %w", err)
	}
	return n, nil
}

// Members returns the ticket ids currently queued, oldest first.
func (w *WaitingIndex) Members(ctx context.Context, titleID, queueName string) ([]string, error) {
	members, err := w.redis.ZRangeWithScores(ctx, QueueKey(titleID, queueName), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("queue members: %w", err)
	}
	ids := make([]string, 0, len(members))
	for _, z := range members {
		if id, ok := z.Member.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (w *WaitingIndex) removeMembers(ctx context.Context, key string, ids []string) error {
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	_, err := w.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, key, members...)
		return nil
	})
	return err
}
