package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// Summarizes recent match history per queue.
func main() {
	chURL := os.Getenv("CLICKHOUSE_URL")
	if chURL == "" {
		chURL = "clickhouse://localhost:9000/matchmaking"
	}

	opts, err := clickhouse.ParseDSN(chURL)
	if err != nil {
		log.Fatalf("Failed to parse DSN: %v", err)
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open connection: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	rows, err := conn.Query(ctx, `
		SELECT
			title_id,
			queue_name,
			uniqExact(match_id) AS matches,
			count() AS players,
			avg(wait_seconds) AS avg_wait,
			max(wait_seconds) AS max_wait
		FROM matchmaking.match_history
		WHERE created_at > now() - INTERVAL 1 DAY
		GROUP BY title_id, queue_name
		ORDER BY matches DESC
	`)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		var (
			title, queue     string
			matches, players uint64
			avgWait, maxWait float64
		)
		if err := rows.Scan(&title, &queue, &matches, &players, &avgWait, &maxWait); err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		found = true
		fmt.Printf("%s/%s: matches=%d players=%d avgWait=%.1fs maxWait=%.1fs\n", title, queue, matches, players, avgWait, maxWait)
	}
	if !found {
		fmt.Println("NO MATCHES IN THE LAST DAY")
	}
}
