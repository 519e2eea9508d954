// Package notify fans matchmaking events out to title and player channels.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openmohaa/matchmaker/internal/models"
)

// Notifier publishes an event on a named channel.
type Notifier interface {
	Publish(ctx context.Context, channel string, event models.Event) error
}

// Multi publishes every event to all backends. One backend failing does not
// stop the others.
type Multi []Notifier

func (m Multi) Publish(ctx context.Context, channel string, event models.Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Publish(ctx, channel, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, string, models.Event) error { return nil }

func encode(channel string, event models.Event) ([]byte, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event for %s: %w", event.Type, channel, err)
	}
	return b, nil
}
