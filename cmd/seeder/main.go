package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/openmohaa/matchmaker/internal/config"
	"github.com/openmohaa/matchmaker/internal/logic"
	"github.com/openmohaa/matchmaker/internal/models"
	"github.com/openmohaa/matchmaker/internal/store"
)

// Seeder enqueues synthetic players so a local engine has something to match.
func main() {
	var (
		titleID = flag.String("title", "mohaa", "title id")
		queue   = flag.String("queue", "tdm", "queue name")
		count   = flag.Int("n", 16, "number of tickets")
		regions = flag.String("regions", "eu,us", "comma separated regions to spread players over")
		skillLo = flag.Float64("skill-min", 800, "lowest skill rating")
		skillHi = flag.Float64("skill-max", 2200, "highest skill rating")
		timeout = flag.Int("timeout", 0, "per-ticket timeout override in seconds")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()
	log := logger.Sugar()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pgPool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalw("Failed to connect to PostgreSQL", "error", err)
	}
	defer pgPool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalw("Invalid REDIS_URL", "error", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	svc := logic.NewTicketService(
		store.NewTicketStore(pgPool),
		store.NewWaitingIndex(redisClient, cfg.ProjectionTTL, logger),
		store.NewQueueConfigStore(pgPool),
		logger,
	)

	regionList := strings.Split(*regions, ",")
	created := 0
	for i := 0; i < *count; i++ {
		req := models.EnqueueRequest{
			PlayerID:  "seed-" + uuid.NewString()[:8],
			TitleID:   *titleID,
			QueueName: *queue,
			Attributes: models.Attributes{
				models.SkillAttribute: *skillLo + rand.Float64()*(*skillHi-*skillLo),
				"region":              strings.TrimSpace(regionList[rand.IntN(len(regionList))]),
			},
			TimeoutSeconds: *timeout,
		}
		ticket, err := svc.Enqueue(ctx, req)
		if err != nil {
			log.Errorw("Enqueue failed", "playerId", req.PlayerID, "error", err)
			continue
		}
		created++
		log.Infow("Enqueued", "ticketId", ticket.TicketID, "playerId", req.PlayerID,
			"skill", req.Attributes[models.SkillAttribute], "region", req.Attributes["region"])
	}
	log.Infow("Seeding complete", "created", created, "requested", *count)
}
