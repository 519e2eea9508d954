package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openmohaa/matchmaker/internal/store"
)

// Prints a queue's waiting index as the engine sees it.
func main() {
	if len(os.Args) < 3 {
		log.Fatalf("usage: %s <titleId> <queueName>", os.Args[0])
	}
	titleID, queueName := os.Args[1], os.Args[2]

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("Failed to parse REDIS_URL: %v", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	index := store.NewWaitingIndex(client, 0, nil)

	depth, err := index.Depth(ctx, titleID, queueName)
	if err != nil {
		log.Fatalf("Depth failed: %v", err)
	}
	fmt.Printf("Queue %s: %d members\n", store.QueueKey(titleID, queueName), depth)

	tickets, err := index.ReadWaitingTickets(ctx, titleID, queueName)
	if err != nil {
		log.Fatalf("Read failed: %v", err)
	}
	now := time.Now()
	for _, t := range tickets {
		fmt.Printf("%s player=%s waited=%s attrs=%v\n",
			t.TicketID, t.PlayerID, now.Sub(t.CreatedAt).Truncate(time.Second), t.Attributes)
	}
	if len(tickets) == 0 {
		fmt.Println("NO WAITING TICKETS")
	}
}
