// Package plugin implements the plugin registry and handler contract
// described in spec.md §3–§5 (C3): a name keyed, factory-based registry
// that the Resolver's chosen handler name (a FixedRoute.Handler, or the
// plugin name a PluginRoute/PluginCollection selects from node
// attributes) is looked up in before the Executor spawns a worker for
// it.
//
// The factory-registration pattern is carried over from the teacher's
// internal/plugins/registry.go: plugins register a constructor, not an
// instance, so the registry never shares mutable state between
// requests for the same handler name.
package plugin

import (
	"context"

	apperr "github.com/clusterhub/clustercore/internal/errors"
)

// Operation is one of the four verbs the dispatch core understands
// (spec.md §4.3).
type Operation string

const (
	Create   Operation = "create"
	Retrieve Operation = "retrieve"
	Update   Operation = "update"
	Delete   Operation = "delete"
)

// Request is everything a plugin handler needs to service one group of
// nodes that all resolved to the same handler name (spec.md §5, C4):
// the node group itself, the path left over after handler selection
// (always empty for FixedRoute/PluginRoute, possibly non-empty for
// PluginCollection), the requested operation, and the raw request body
// for create/update.
type Request struct {
	Nodes []string
	// Path is whatever remained of the request path after handler
	// selection — always empty for FixedRoute/PluginRoute, possibly
	// non-empty for PluginCollection (spec.md §3).
	Path []string
	// Segments is the full path the Resolver matched, including the
	// leaf segment that selected this handler (e.g. ["attributes",
	// "expression"]) — FixedRoute leaves that share one Handler name
	// across several sibling leaves (attributes/all, /current,
	// /expression) use this to tell the leaves apart.
	Segments  []string
	Operation Operation
	Input     []byte
}

// Result is one streamed answer for one node. A handler may emit zero,
// one, or many Results per node in its group (e.g. a log handler
// streaming multiple lines) but must tag every Result with the node it
// belongs to so the Executor's fan-in can route it to the right place
// in the merged response (spec.md §5).
type Result struct {
	Node  string
	Value any
	Err   error
}

// Handler is the interface every plugin implements. Each method is
// responsible for producing a Result on out for every node in
// req.Nodes before returning — the Executor does not retry or
// fill in missing nodes. Handlers must not close out; the Executor
// owns the channel's lifecycle (spec.md §5, C4's end-of-worker
// sentinel).
type Handler interface {
	Create(ctx context.Context, req Request, out chan<- Result)
	Retrieve(ctx context.Context, req Request, out chan<- Result)
	Update(ctx context.Context, req Request, out chan<- Result)
	Delete(ctx context.Context, req Request, out chan<- Result)
}

// BasePlugin provides default NotImplemented implementations for every
// Handler method so a concrete plugin can embed it and override only
// the operations it supports, exactly like the teacher's BasePlugin.
type BasePlugin struct {
	Name string
}

func (p *BasePlugin) Create(ctx context.Context, req Request, out chan<- Result) {
	notImplemented(req, out, "create")
}

func (p *BasePlugin) Retrieve(ctx context.Context, req Request, out chan<- Result) {
	notImplemented(req, out, "retrieve")
}

func (p *BasePlugin) Update(ctx context.Context, req Request, out chan<- Result) {
	notImplemented(req, out, "update")
}

func (p *BasePlugin) Delete(ctx context.Context, req Request, out chan<- Result) {
	notImplemented(req, out, "delete")
}

func notImplemented(req Request, out chan<- Result, op string) {
	for _, node := range req.Nodes {
		out <- Result{Node: node, Err: apperr.NotImplemented(op)}
	}
}
