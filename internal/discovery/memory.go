package discovery

import (
	"context"
	"sync"

	"github.com/clusterhub/clustercore/internal/configmanager"
	apperr "github.com/clusterhub/clustercore/internal/errors"
	"github.com/clusterhub/clustercore/internal/plugin"
)

// InMemoryDiscovery is a process-local Handler used by tests and by
// single-node deployments that have no NATS broker to discover nodes
// from. Nodes are seeded directly rather than observed off the wire.
type InMemoryDiscovery struct {
	mu       sync.RWMutex
	detected map[string]DetectedNode
}

// NewInMemoryDiscovery constructs an empty InMemoryDiscovery.
func NewInMemoryDiscovery() *InMemoryDiscovery {
	return &InMemoryDiscovery{detected: map[string]DetectedNode{}}
}

// Seed records a node as detected, as if a discovery probe had just
// observed it.
func (d *InMemoryDiscovery) Seed(node DetectedNode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detected[node.Name] = node
}

// Adopt removes a node from the detected set, as if an operator had
// just managed it into configmanager.
func (d *InMemoryDiscovery) Adopt(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.detected, name)
}

func (d *InMemoryDiscovery) HandleAPIRequest(ctx context.Context, mgr configmanager.Manager, input []byte, operation plugin.Operation, pathComponents []string) (any, error) {
	if len(pathComponents) == 0 || pathComponents[0] != "detected" {
		return nil, apperr.NotFound("discovery path")
	}
	if operation != plugin.Retrieve {
		return nil, apperr.NotImplemented("discovery " + string(operation))
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	nodes := make([]DetectedNode, 0, len(d.detected))
	for _, n := range d.detected {
		nodes = append(nodes, n)
	}
	return map[string]any{"nodes": nodes}, nil
}
