// Package discovery implements the external discovery collaborator
// spec.md §2 names: `disco.handle_api_request(configmanager, inputdata,
// operation, pathcomponents)` in core.py, formalized here as a named
// Handler interface so internal/core can call it without caring which
// discovery backend is wired in (spec.md §5, SPEC_FULL.md §D.3).
//
// core.py's handle_discovery is a separate, long-dead code path — both
// of its definitions reduce to `if pathcomponents[0] == 'detected':
// pass` — and is deliberately NOT reproduced here: there is nothing in
// it to supplement, and inventing behavior for a no-op would not be
// carrying the original forward, it would be making something up.
package discovery

import (
	"context"

	"github.com/clusterhub/clustercore/internal/configmanager"
	"github.com/clusterhub/clustercore/internal/plugin"
)

// DetectedNode describes one node discovery has observed on the
// network but that configmanager does not yet know about.
type DetectedNode struct {
	Name       string            `json:"name"`
	Address    string            `json:"address"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Handler is the named interface internal/core depends on: the live
// counterpart to core.py's disco.handle_api_request call.
type Handler interface {
	HandleAPIRequest(ctx context.Context, mgr configmanager.Manager, input []byte, operation plugin.Operation, pathComponents []string) (any, error)
}

var (
	_ Handler = (*NATSDiscovery)(nil)
	_ Handler = (*InMemoryDiscovery)(nil)
)
