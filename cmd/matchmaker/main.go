package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/openmohaa/matchmaker/internal/allocator"
	"github.com/openmohaa/matchmaker/internal/config"
	"github.com/openmohaa/matchmaker/internal/handlers"
	"github.com/openmohaa/matchmaker/internal/logic"
	"github.com/openmohaa/matchmaker/internal/models"
	"github.com/openmohaa/matchmaker/internal/notify"
	"github.com/openmohaa/matchmaker/internal/store"
	"github.com/openmohaa/matchmaker/internal/telemetry"
	"github.com/openmohaa/matchmaker/internal/worker"
)

var version = "source"

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	defer logger.Sync()
	log := logger.Sugar()
	log.Infow("Starting matchmaker", "version", version, "config", cfg.Redacted())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: "matchmaker",
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
	}, logger)

	// PostgreSQL
	pgPool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalw("Failed to connect to PostgreSQL", "error", err)
	}
	defer pgPool.Close()
	if err := pgPool.Ping(ctx); err != nil {
		log.Fatalw("PostgreSQL ping failed", "error", err)
	}

	// Redis
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalw("Invalid REDIS_URL", "error", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalw("Redis ping failed", "error", err)
	}

	// ClickHouse, optional
	var (
		chConn  driver.Conn
		history worker.MatchHistory
	)
	if cfg.ClickHouseURL != "" {
		chOpts, err := clickhouse.ParseDSN(cfg.ClickHouseURL)
		if err != nil {
			log.Fatalw("Invalid CLICKHOUSE_URL", "error", err)
		}
		chConn, err = clickhouse.Open(chOpts)
		if err != nil {
			log.Fatalw("Failed to connect to ClickHouse", "error", err)
		}
		defer chConn.Close()
		if err := chConn.Ping(ctx); err != nil {
			log.Warnw("ClickHouse ping failed, match history writes will be retried per match", "error", err)
		}
		history = store.NewMatchHistory(chConn)
	}

	tickets := store.NewTicketStore(pgPool)
	queues := store.NewQueueConfigStore(pgPool)
	matches := store.NewMatchStore(pgPool)
	index := store.NewWaitingIndex(redisClient, cfg.ProjectionTTL, logger)

	alloc, err := buildAllocator(cfg, logger)
	if err != nil {
		log.Fatalw("Failed to configure server allocation", "error", err)
	}

	notifier, closeNotifiers, err := buildNotifier(cfg, redisClient, logger)
	if err != nil {
		log.Fatalw("Failed to configure notifications", "error", err)
	}
	defer closeNotifiers()

	engine := worker.NewEngine(worker.EngineConfig{
		PollInterval: cfg.PollInterval,
		Concurrency:  cfg.QueueConcurrency,
		Queues:       queues,
		Index:        index,
		Tickets:      tickets,
		Matches:      matches,
		History:      history,
		Allocator:    alloc,
		Notifier:     notifier,
		Logger:       logger,
	})
	engine.Start(ctx)

	ticketService := logic.NewTicketService(tickets, index, queues, logger)

	hcfg := handlers.Config{
		Postgres:       pgPool,
		Redis:          redisClient,
		Queues:         queues,
		Index:          index,
		Tickets:        ticketService,
		Engine:         engine,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
	}
	if chConn != nil {
		hcfg.ClickHouse = chConn
	}
	h := handlers.New(hcfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Infow("Starting HTTP server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	// Let the in-flight iteration finish before closing the stores.
	engine.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server graceful shutdown failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warnw("Tracer shutdown failed", "error", err)
	}
	log.Info("Shutdown complete")
}

func buildAllocator(cfg *config.Config, logger *zap.Logger) (*allocator.Router, error) {
	router := allocator.NewRouter()

	regions, err := allocator.ParseRegions(cfg.AllocatorRegions)
	if err != nil {
		return nil, err
	}
	static := allocator.NewRegionAllocator(regions, cfg.AllocatorDefaultRegion)
	router.Handle(models.AllocationClosest, static).Handle(models.AllocationBalanced, static)

	if cfg.AgonesFleet != "" {
		router.Handle(models.AllocationCustom, allocator.NewAgonesAllocator(cfg.AgonesNamespace, cfg.AgonesFleet, logger))
	}
	return router, nil
}

func buildNotifier(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) (notify.Notifier, func(), error) {
	var (
		multi   notify.Multi
		closers []func()
	)
	for _, backend := range cfg.NotifierBackends {
		switch backend {
		case config.NotifierRedis:
			multi = append(multi, notify.NewRedisNotifier(redisClient))
		case config.NotifierNATS:
			conn, err := notify.ConnectNATS(cfg.NATSURL, logger)
			if err != nil {
				return nil, nil, fmt.Errorf("connect nats: %w", err)
			}
			n := notify.NewNATSNotifier(conn)
			multi = append(multi, n)
			closers = append(closers, n.Close)
		case config.NotifierPubSub:
			n := notify.NewPubSubNotifier(cfg.PubSubProjectID, cfg.PubSubTopic, cfg.GoogleCredsFile, logger)
			multi = append(multi, n)
			closers = append(closers, func() { _ = n.Close() })
		}
	}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(multi) == 0 {
		return notify.Nop{}, closeAll, nil
	}
	return multi, closeAll, nil
}
