// Package handlers serves the matchmaker's operational HTTP surface:
// health probes, metrics and queue inspection.
package handlers

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/openmohaa/matchmaker/internal/models"
)

// PostgresConn is the subset of pgxpool.Pool used here
type PostgresConn interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ClickHouseConn is the subset of driver.Conn used here
type ClickHouseConn interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, query string, args ...any) error
}

// RedisPinger is the subset of redis.Client used here
type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// QueueSource lists and resolves queue definitions.
type QueueSource interface {
	ListQueueConfigs(ctx context.Context) ([]models.QueueConfig, error)
	GetQueueConfig(ctx context.Context, titleID, queueName string) (*models.QueueConfig, error)
}

// DepthReader reports how many tickets wait in a queue.
type DepthReader interface {
	Depth(ctx context.Context, titleID, queueName string) (int64, error)
}

// Rebuilder restores a queue's waiting index from the ticket records.
type Rebuilder interface {
	Rebuild(ctx context.Context, titleID, queueName string) (models.RebuildResult, error)
}

// EngineStatus reports whether the matchmaking loop is running.
type EngineStatus interface {
	Running() bool
}

type Config struct {
	Postgres       PostgresConn
	ClickHouse     ClickHouseConn // optional
	Redis          RedisPinger
	Queues         QueueSource
	Index          DepthReader
	Tickets        Rebuilder
	Engine         EngineStatus
	Logger         *zap.Logger
	AllowedOrigins []string
	// MigrationsDir holds postgres/ and clickhouse/ schema files.
	MigrationsDir string
}

type Handler struct {
	pg             PostgresConn
	ch             ClickHouseConn
	redis          RedisPinger
	queues         QueueSource
	index          DepthReader
	tickets        Rebuilder
	engine         EngineStatus
	logger         *zap.SugaredLogger
	allowedOrigins []string
	migrationsDir  string
}

func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MigrationsDir == "" {
		cfg.MigrationsDir = "migrations"
	}
	return &Handler{
		pg:             cfg.Postgres,
		ch:             cfg.ClickHouse,
		redis:          cfg.Redis,
		queues:         cfg.Queues,
		index:          cfg.Index,
		tickets:        cfg.Tickets,
		engine:         cfg.Engine,
		logger:         cfg.Logger.Sugar(),
		allowedOrigins: cfg.AllowedOrigins,
		migrationsDir:  cfg.MigrationsDir,
	}
}
