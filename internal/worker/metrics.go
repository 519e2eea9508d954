package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Error stages reported by queueErrors.
const (
	stageList        = "list_queues"
	stageConfig      = "config"
	stageRead        = "read"
	stageExpire      = "expire"
	stageReconcile   = "reconcile"
	stageAllocate    = "allocate"
	stagePersist     = "persist"
	stageTicketWrite = "ticket_update"
	stageIndex       = "index"
	stageNotify      = "notify"
	stageHistory     = "history"
	stagePanic       = "panic"
)

var (
	pollIterations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchmaker_poll_iterations_total",
		Help: "Total number of completed poll iterations",
	})

	pollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "matchmaker_poll_duration_seconds",
		Help:    "Duration of a full poll iteration over all queues",
		Buckets: prometheus.DefBuckets,
	})

	queueErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchmaker_queue_errors_total",
		Help: "Errors while processing queues, by stage",
	}, []string{"stage"})

	matchesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchmaker_matches_created_total",
		Help: "Total number of matches created",
	}, []string{"title", "queue"})

	ticketsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchmaker_tickets_expired_total",
		Help: "Total number of tickets moved to expired",
	})

	allocationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "matchmaker_allocation_duration_seconds",
		Help:    "Duration of server allocation calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	waitingTickets = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "matchmaker_waiting_tickets",
		Help: "Tickets left waiting after the last poll of a queue",
	}, []string{"title", "queue"})

	staleEntriesPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchmaker_stale_entries_purged_total",
		Help: "Waiting-index entries dropped because their ticket record was no longer waiting",
	})
)
