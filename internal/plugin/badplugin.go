package plugin

import (
	"context"

	apperr "github.com/clusterhub/clustercore/internal/errors"
)

// badPlugin is a synthetic Handler that reports the same error for
// every node in its group. The Executor hands it nodes whose attribute
// value named a handler that isn't registered, and nodes whose
// PluginRoute/PluginCollection had neither a matching attribute nor a
// Default — so the fan-out loop never needs a special case for
// "couldn't pick a handler": it just dispatches to this handler like
// any other (spec.md §4.4, §5).
type badPlugin struct {
	err error
}

// NewBadPlugin returns a Handler whose every operation fails with err
// for every node it is asked to service.
func NewBadPlugin(err error) Handler {
	return &badPlugin{err: err}
}

func (p *badPlugin) Create(ctx context.Context, req Request, out chan<- Result)   { p.fail(req, out) }
func (p *badPlugin) Retrieve(ctx context.Context, req Request, out chan<- Result) { p.fail(req, out) }
func (p *badPlugin) Update(ctx context.Context, req Request, out chan<- Result)   { p.fail(req, out) }
func (p *badPlugin) Delete(ctx context.Context, req Request, out chan<- Result)   { p.fail(req, out) }

func (p *badPlugin) fail(req Request, out chan<- Result) {
	for _, node := range req.Nodes {
		out <- Result{Node: node, Err: p.err}
	}
}

// NewBadCollective is the collective counterpart of NewBadPlugin: the
// Executor hands it nodes that a collective cannot place — a collective
// is active but the node has no owner, or its owner is not a known
// member — so the whole group reports err uniformly rather than the
// Executor special-casing them (spec.md §5, C5). peer is not used.
func NewBadCollective(peer string, err error) Handler {
	return NewBadPlugin(err)
}

// UnresolvedHandler builds a NotImplemented error naming attr, for a
// PluginRoute/PluginCollection that had no attribute match and no
// Default.
func UnresolvedHandler(attr string) error {
	return apperr.NotImplemented("no handler resolved for " + attr)
}
