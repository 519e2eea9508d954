package allocator

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/openmohaa/matchmaker/internal/models"
)

var allocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "matchmaker_allocator_requests_total",
	Help: "Allocation attempts by strategy and result",
}, []string{"strategy", "result"})

// Router dispatches each allocation to the allocator registered for the
// queue's strategy.
type Router struct {
	routes map[models.AllocationStrategy]Allocator
}

func NewRouter() *Router {
	return &Router{routes: make(map[models.AllocationStrategy]Allocator)}
}

// Handle registers the allocator serving a strategy.
func (r *Router) Handle(strategy models.AllocationStrategy, a Allocator) *Router {
	r.routes[strategy] = a
	return r
}

func (r *Router) AllocateServer(ctx context.Context, titleID string, strategy models.AllocationStrategy, tickets []models.TicketProjection) (models.ServerInfo, error) {
	if strategy == "" {
		strategy = models.AllocationClosest
	}
	a, ok := r.routes[strategy]
	if !ok {
		allocationsTotal.WithLabelValues(string(strategy), "unrouted").Inc()
		return models.ServerInfo{}, fmt.Errorf("%w: %s", ErrUnknownStrategy, strategy)
	}

	info, err := a.AllocateServer(ctx, titleID, strategy, tickets)
	if err != nil {
		allocationsTotal.WithLabelValues(string(strategy), "failure").Inc()
		return models.ServerInfo{}, err
	}
	allocationsTotal.WithLabelValues(string(strategy), "success").Inc()
	return info, nil
}
