package allocator

import (
	"context"
	"fmt"
	"sync"

	allocationv1 "agones.dev/agones/pkg/apis/allocation/v1"
	agonesclientset "agones.dev/agones/pkg/client/clientset/versioned"
	"go.uber.org/zap"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/openmohaa/matchmaker/internal/models"
)

const (
	fleetLabel  = "agones.dev/fleet"
	regionLabel = "matchmaker.openmohaa.org/region"
	titleLabel  = "matchmaker.openmohaa.org/title"
)

// AgonesAllocator allocates a ready GameServer from an Agones fleet. It backs
// the custom strategy.
type AgonesAllocator struct {
	namespace string
	fleet     string
	logger    *zap.SugaredLogger

	mu     sync.Mutex
	agones agonesclientset.Interface
}

func NewAgonesAllocator(namespace, fleet string, logger *zap.Logger) *AgonesAllocator {
	if namespace == "" {
		namespace = "default"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgonesAllocator{namespace: namespace, fleet: fleet, logger: logger.Sugar()}
}

// NewAgonesAllocatorWithClient uses an existing clientset.
func NewAgonesAllocatorWithClient(client agonesclientset.Interface, namespace, fleet string, logger *zap.Logger) *AgonesAllocator {
	a := NewAgonesAllocator(namespace, fleet, logger)
	a.agones = client
	return a
}

func (a *AgonesAllocator) client() (agonesclientset.Interface, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.agones == nil {
		cli, err := newAgonesClient()
		if err != nil {
			return nil, fmt.Errorf("agones client init: %w", err)
		}
		a.agones = cli
		a.logger.Infow("Agones client initialized", "namespace", a.namespace, "fleet", a.fleet)
	}
	return a.agones, nil
}

func (a *AgonesAllocator) AllocateServer(ctx context.Context, titleID string, strategy models.AllocationStrategy, tickets []models.TicketProjection) (models.ServerInfo, error) {
	cli, err := a.client()
	if err != nil {
		return models.ServerInfo{}, err
	}

	region := preferredRegion(tickets)
	gsa := &allocationv1.GameServerAllocation{
		TypeMeta: metav1.TypeMeta{
			APIVersion: allocationv1.SchemeGroupVersion.String(),
			Kind:       "GameServerAllocation",
		},
		Spec: allocationv1.GameServerAllocationSpec{
			Selectors: a.selectors(region),
			MetaPatch: allocationv1.MetaPatch{
				Labels: map[string]string{titleLabel: titleID},
			},
		},
	}

	created, err := cli.AllocationV1().GameServerAllocations(a.namespace).Create(ctx, gsa, metav1.CreateOptions{})
	if err != nil {
		return models.ServerInfo{}, fmt.Errorf("create GameServerAllocation in %s: %w", a.namespace, err)
	}
	if created.Status.State != allocationv1.GameServerAllocationAllocated {
		return models.ServerInfo{}, fmt.Errorf("%w: fleet %s allocation state %s", ErrNoCapacity, a.fleet, created.Status.State)
	}

	addr := created.Status.Address
	var port int32
	if len(created.Status.Ports) > 0 {
		port = created.Status.Ports[0].Port
	}
	if addr == "" || port == 0 {
		return models.ServerInfo{}, fmt.Errorf("allocated GameServer %s missing address/port", created.Status.GameServerName)
	}

	a.logger.Infow("Allocated game server",
		"titleId", titleID,
		"gameServer", created.Status.GameServerName,
		"address", addr,
		"port", port,
	)
	return models.ServerInfo{Host: addr, Port: int(port), Region: region}, nil
}

// selectors prefers servers labelled with the tickets' region and falls back
// to any server of the fleet.
func (a *AgonesAllocator) selectors(region string) []allocationv1.GameServerSelector {
	fleetOnly := allocationv1.GameServerSelector{
		LabelSelector: metav1.LabelSelector{
			MatchLabels: map[string]string{fleetLabel: a.fleet},
		},
	}
	if region == "" {
		return []allocationv1.GameServerSelector{fleetOnly}
	}
	regional := allocationv1.GameServerSelector{
		LabelSelector: metav1.LabelSelector{
			MatchLabels: map[string]string{fleetLabel: a.fleet, regionLabel: region},
		},
	}
	return []allocationv1.GameServerSelector{regional, fleetOnly}
}

// newAgonesClient returns an Agones typed clientset using in-cluster config or local kubeconfig.
func newAgonesClient() (agonesclientset.Interface, error) {
	if cfg, err := rest.InClusterConfig(); err == nil {
		return agonesclientset.NewForConfig(cfg)
	}
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	clientConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, &clientcmd.ConfigOverrides{})
	cfg, err := clientConfig.ClientConfig()
	if err != nil {
		return nil, err
	}
	return agonesclientset.NewForConfig(cfg)
}
