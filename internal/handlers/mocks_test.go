package handlers

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	"github.com/openmohaa/matchmaker/internal/models"
)

type MockPostgres struct {
	PingErr  error
	ExecFunc func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Executed []string
}

func (m *MockPostgres) Ping(ctx context.Context) error { return m.PingErr }

func (m *MockPostgres) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.Executed = append(m.Executed, sql)
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

type MockClickHouse struct {
	PingErr  error
	ExecErr  error
	Executed []string
}

func (m *MockClickHouse) Ping(ctx context.Context) error { return m.PingErr }

func (m *MockClickHouse) Exec(ctx context.Context, query string, args ...any) error {
	m.Executed = append(m.Executed, query)
	return m.ExecErr
}

type MockRedis struct {
	PingErr error
}

func (m *MockRedis) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", m.PingErr)
}

type MockQueues struct {
	ListFunc func(ctx context.Context) ([]models.QueueConfig, error)
	GetFunc  func(ctx context.Context, titleID, queueName string) (*models.QueueConfig, error)
}

func (m *MockQueues) ListQueueConfigs(ctx context.Context) ([]models.QueueConfig, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *MockQueues) GetQueueConfig(ctx context.Context, titleID, queueName string) (*models.QueueConfig, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, titleID, queueName)
	}
	return nil, nil
}

type MockDepth struct {
	Depths map[string]int64
	Err    error
}

func (m *MockDepth) Depth(ctx context.Context, titleID, queueName string) (int64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Depths[titleID+"/"+queueName], nil
}

type MockRebuilder struct {
	RebuildFunc func(ctx context.Context, titleID, queueName string) (models.RebuildResult, error)
}

func (m *MockRebuilder) Rebuild(ctx context.Context, titleID, queueName string) (models.RebuildResult, error) {
	if m.RebuildFunc != nil {
		return m.RebuildFunc(ctx, titleID, queueName)
	}
	return models.RebuildResult{TitleID: titleID, QueueName: queueName}, nil
}

type MockEngine struct {
	running bool
}

func (m *MockEngine) Running() bool { return m.running }
