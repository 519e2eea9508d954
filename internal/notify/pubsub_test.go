package notify

import (
	"context"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestPubSubNotifier_Publish(t *testing.T) {
	if testing.Short() {
		t.Skip("short")
	}

	// In-memory Pub/Sub server
	srv := pstest.NewServer()
	defer srv.Close()

	ctx := context.Background()
	conn, err := grpc.Dial(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	client, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	if err != nil {
		t.Fatalf("client error: %v", err)
	}
	defer client.Close()

	topic, err := client.CreateTopic(ctx, "matchmaking-events")
	if err != nil {
		t.Fatalf("create topic: %v", err)
	}

	n := NewPubSubNotifier("test-project", "matchmaking-events", "", zap.NewNop())
	n.client, n.topic = client, topic

	if err := n.Publish(ctx, "player:p1", testEvent()); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	msgs := srv.Messages()
	if len(msgs) != 1 {
		t.Fatalf("server holds %d messages, want 1", len(msgs))
	}
	if got := msgs[0].Attributes["channel"]; got != "player:p1" {
		t.Errorf("channel attribute = %q", got)
	}
	if got := msgs[0].Attributes["type"]; got != "match_found" {
		t.Errorf("type attribute = %q", got)
	}

	missing := NewPubSubNotifier("test-project", "missing", "", nil)
	missing.client, missing.topic = client, client.Topic("missing")
	if err := missing.Publish(ctx, "player:p1", testEvent()); err == nil {
		t.Error("expected error publishing to a missing topic")
	}
}
