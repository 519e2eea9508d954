package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/openmohaa/matchmaker/internal/models"
)

// RedisPublisher is the subset of redis.Client used for pub/sub.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier publishes events with PUBLISH on the channel name as is.
type RedisNotifier struct {
	client RedisPublisher
}

func NewRedisNotifier(client RedisPublisher) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) Publish(ctx context.Context, channel string, event models.Event) error {
	payload, err := encode(channel, event)
	if err != nil {
		return err
	}
	if err := n.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}
