// Package worker runs the matchmaking engine: a single background loop that
// polls every enabled queue, expires stale tickets, groups the rest by the
// queue's matching rules and turns full groups into matches.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/openmohaa/matchmaker/internal/models"
	"github.com/openmohaa/matchmaker/internal/notify"
)

const tracerName = "github.com/openmohaa/matchmaker/internal/worker"

// EngineConfig configures the matchmaking engine
type EngineConfig struct {
	PollInterval time.Duration
	// Concurrency bounds how many queues are processed in parallel. Each
	// queue is handled by exactly one goroutine per iteration.
	Concurrency int

	Queues    QueueConfigSource
	Index     WaitingIndex
	Tickets   TicketStore
	Matches   MatchStore
	History   MatchHistory // optional
	Allocator Allocator
	Notifier  Notifier // optional
	Logger    *zap.Logger

	Now   func() time.Time
	NewID func() string
}

// Stats summarizes one poll iteration.
type Stats struct {
	Queues         int
	FailedQueues   int
	MatchesCreated int
	TicketsExpired int
}

func (s *Stats) add(r queueResult, err error) {
	s.Queues++
	if err != nil {
		s.FailedQueues++
	}
	s.MatchesCreated += r.matches
	s.TicketsExpired += r.expired
}

// Engine owns the polling loop. Construct it once and control it with
// Start and Stop; it holds no package-level state.
type Engine struct {
	config EngineConfig
	logger *zap.SugaredLogger
	tracer trace.Tracer

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewEngine creates a new engine
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Nop{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Engine{
		config: cfg,
		logger: cfg.Logger.Sugar(),
		tracer: otel.Tracer(tracerName),
	}
}

// Start launches the polling loop. Calling Start on a running engine is a no-op.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true
	e.stop = make(chan struct{})
	e.done = make(chan struct{})

	go e.loop(ctx, e.stop, e.done)

	e.logger.Infow("Matchmaking engine started",
		"pollInterval", e.config.PollInterval,
		"concurrency", e.config.Concurrency,
	)
}

// Stop signals the loop to exit and waits for the current iteration to
// finish. An iteration in progress is never interrupted.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stop)
	done := e.done
	e.mu.Unlock()

	e.logger.Info("Stopping matchmaking engine...")
	<-done
	e.logger.Info("Matchmaking engine stopped")
}

// Running reports whether the loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Engine) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.config.PollInterval)
	defer ticker.Stop()

	// Iterations outlive ctx cancellation so a match is never half written.
	iterCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		e.RunOnce(iterCtx)

		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single poll over every enabled queue. Failures are
// isolated per queue and never returned.
func (e *Engine) RunOnce(ctx context.Context) Stats {
	ctx, span := e.tracer.Start(ctx, "matchmaker.poll")
	defer span.End()

	start := time.Now()
	defer func() {
		pollIterations.Inc()
		pollDuration.Observe(time.Since(start).Seconds())
	}()

	var stats Stats
	configs, err := e.config.Queues.ListActiveQueueConfigs(ctx)
	if err != nil {
		queueErrors.WithLabelValues(stageList).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "list queue configs")
		e.logger.Errorw("Failed to load queue configurations", "error", err)
		return stats
	}

	var (
		mu   sync.Mutex
		g    errgroup.Group
		seen = make(map[string]bool, len(configs))
	)
	g.SetLimit(e.config.Concurrency)

	for i := range configs {
		q := configs[i]
		if !q.Enabled {
			continue
		}
		if seen[q.Key()] {
			e.logger.Warnw("Duplicate queue configuration ignored", "titleId", q.TitleID, "queueName", q.QueueName)
			continue
		}
		seen[q.Key()] = true

		g.Go(func() error {
			res, err := e.safeProcessQueue(ctx, &q)
			if err != nil {
				e.logger.Errorw("Queue processing failed",
					"titleId", q.TitleID,
					"queueName", q.QueueName,
					"error", err,
				)
			}
			mu.Lock()
			stats.add(res, err)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	span.SetAttributes(
		attribute.Int("queues", stats.Queues),
		attribute.Int("matches", stats.MatchesCreated),
		attribute.Int("expired", stats.TicketsExpired),
	)
	if stats.MatchesCreated > 0 || stats.TicketsExpired > 0 || stats.FailedQueues > 0 {
		e.logger.Infow("Poll iteration complete",
			"queues", stats.Queues,
			"failedQueues", stats.FailedQueues,
			"matches", stats.MatchesCreated,
			"expired", stats.TicketsExpired,
			"duration", time.Since(start),
		)
	}
	return stats
}

func (e *Engine) safeProcessQueue(ctx context.Context, q *models.QueueConfig) (res queueResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			queueErrors.WithLabelValues(stagePanic).Inc()
			err = fmt.Errorf("panic processing queue %s: %v", q.Key(), r)
		}
	}()
	return e.processQueue(ctx, q)
}
