package notify

import (
	"context"
	"fmt"
	"sync"

	gpubsub "cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/openmohaa/matchmaker/internal/models"
)

// PubSubNotifier publishes every event to a single GCP Pub/Sub topic. The
// channel and event type travel as message attributes so subscribers can
// filter on them.
type PubSubNotifier struct {
	projectID string
	topicID   string
	credsFile string
	logger    *zap.SugaredLogger

	mu     sync.Mutex
	client *gpubsub.Client
	topic  *gpubsub.Topic
}

func NewPubSubNotifier(projectID, topicID, credsFile string, logger *zap.Logger) *PubSubNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PubSubNotifier{projectID: projectID, topicID: topicID, credsFile: credsFile, logger: logger.Sugar()}
}

func (p *PubSubNotifier) ensureTopic(ctx context.Context) (*gpubsub.Topic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.topic != nil {
		return p.topic, nil
	}

	var opts []option.ClientOption
	if p.credsFile != "" {
		opts = append(opts, option.WithCredentialsFile(p.credsFile))
	}
	client, err := gpubsub.NewClient(ctx, p.projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client for %s: %w", p.projectID, err)
	}
	p.client = client
	p.topic = client.Topic(p.topicID)
	p.logger.Infow("Pub/Sub notifier initialized", "projectId", p.projectID, "topic", p.topicID)
	return p.topic, nil
}

func (p *PubSubNotifier) Publish(ctx context.Context, channel string, event models.Event) error {
	topic, err := p.ensureTopic(ctx)
	if err != nil {
		return err
	}
	payload, err := encode(channel, event)
	if err != nil {
		return err
	}
	// Publish and wait for server ack
	r := topic.Publish(ctx, &gpubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"channel": channel,
			"type":    string(event.Type),
		},
	})
	id, err := r.Get(ctx)
	if err != nil {
		return fmt.Errorf("pubsub publish %s: %w", channel, err)
	}
	p.logger.Debugw("Published event", "messageId", id, "channel", channel, "type", event.Type)
	return nil
}

// Close flushes pending publishes and releases the client.
func (p *PubSubNotifier) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.topic != nil {
		p.topic.Stop()
	}
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
