// Package executor implements the fan-out/fan-in dispatch engine
// described in spec.md §5 (C4): given a resolved Route and a set of
// target nodes, group the nodes by the handler each one resolves to,
// spawn one worker per group, and merge every worker's streamed
// results into a single ordered result set.
//
// Grouping mirrors core.py's own dispatch loop: nodes sharing a
// FixedRoute always share one handler; nodes under a PluginRoute or
// PluginCollection are grouped by whichever of PluginAttrs (in order)
// is set on that node, falling back to Default. Nodes that can't be
// resolved to any handler are routed to a synthetic badPlugin worker
// that runs like every other worker — the fan-out loop never
// special-cases that failure path (spec.md §5). Nodes owned by a
// collective peer go to the PeerDispatcher instead; a peer that can't
// be reached answers with one TargetResourceUnavailable Result per node.
package executor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clusterhub/clustercore/internal/configmanager"
	apperr "github.com/clusterhub/clustercore/internal/errors"
	"github.com/clusterhub/clustercore/internal/logger"
	"github.com/clusterhub/clustercore/internal/metrics"
	"github.com/clusterhub/clustercore/internal/noderange"
	"github.com/clusterhub/clustercore/internal/plugin"
	"github.com/clusterhub/clustercore/internal/schema"
)

// PeerDispatcher is the subset of internal/collective.Dispatcher the
// Executor needs, kept as a narrow interface here so this package
// never imports internal/collective directly (spec.md §5 wires C4 and
// C5 together at the internal/core layer, not here).
type PeerDispatcher interface {
	Dispatch(ctx context.Context, member configmanager.CollectiveMember, req ExecRequest) (<-chan plugin.Result, error)
}

// ExecRequest is everything the Executor needs to dispatch one
// request across a set of nodes.
type ExecRequest struct {
	Nodes     []string
	Route     schema.Route
	Path      []string // remainder past a PluginCollection leaf
	Segments  []string // full matched path, for FixedRoute sibling leaves
	Operation plugin.Operation
	Input     []byte
	// AutoStrip is true when the request named exactly one node
	// directly (e.g. /nodes/n1/...) rather than through noderange —
	// such requests answer with the bare value instead of a
	// {"node": value} map (spec.md §5).
	AutoStrip bool
}

// quorumPlugins is the set of handler names the quorum gate applies
// to — currently just "ipmi", matching core.py's inline quorum check
// (SPEC_FULL.md §D.4).
var quorumPlugins = map[string]bool{"ipmi": true}

// Executor wires the schema-driven handler selection described above
// to a configmanager.Manager for attributes/ownership/quorum and a
// PeerDispatcher for collective forwarding.
type Executor struct {
	mgr        configmanager.Manager
	dispatcher PeerDispatcher
}

// New constructs an Executor. dispatcher may be nil if this process
// never needs to forward to collective peers (e.g. single-member
// deployments and tests).
func New(mgr configmanager.Manager, dispatcher PeerDispatcher) *Executor {
	return &Executor{mgr: mgr, dispatcher: dispatcher}
}

type group struct {
	name    string
	handler plugin.Handler
	nodes   []string
}

// Run dispatches req and returns every node's Result, sorted into
// natural node order. It does not itself decide response shape —
// callers use req.AutoStrip plus the single-result case to decide
// between a bare value and a {node: value} map (spec.md §5).
func (e *Executor) Run(ctx context.Context, req ExecRequest) ([]plugin.Result, error) {
	if len(req.Nodes) == 0 {
		return nil, apperr.InvalidArgument("no target nodes")
	}

	workerID := uuid.NewString()
	log := logger.Executor().With().Str("worker_request", workerID).Logger()
	started := time.Now()

	localGroups, remoteGroups, err := e.partition(ctx, req)
	if err != nil {
		metrics.RecordDispatch(string(req.Operation), "error", time.Since(started).Seconds())
		return nil, err
	}
	for _, g := range localGroups {
		metrics.RecordHandlerNodes(g.name, len(g.nodes))
	}

	results := make(chan plugin.Result)
	// fatal carries errors that abort the whole request rather than
	// degrading to a per-node result — currently just a collective
	// peer's pinned-certificate mismatch (spec.md §5, §7). Buffered to
	// the number of remote groups so every sender proceeds without a
	// reader, even if several peers all fail the same way at once.
	fatal := make(chan error, len(remoteGroups))
	var wg sync.WaitGroup

	for _, g := range localGroups {
		wg.Add(1)
		go func(g group) {
			defer wg.Done()
			e.runLocal(ctx, g, req, results)
		}(g)
	}
	for member, nodes := range remoteGroups {
		wg.Add(1)
		go func(member configmanager.CollectiveMember, nodes []string) {
			defer wg.Done()
			e.runRemote(ctx, member, nodes, req, results, fatal)
		}(member, nodes)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]plugin.Result, 0, len(req.Nodes))
	for r := range results {
		collected = append(collected, r)
	}

	select {
	case ferr := <-fatal:
		metrics.RecordDispatch(string(req.Operation), "error", time.Since(started).Seconds())
		return nil, ferr
	default:
	}

	sortResults(collected)
	log.Debug().Int("nodes", len(req.Nodes)).Int("results", len(collected)).Msg("dispatch complete")
	metrics.RecordDispatch(string(req.Operation), "ok", time.Since(started).Seconds())
	return collected, nil
}

// sortResults orders results into the same natural node order noderange
// uses for listings and abbreviation, so a multi-node response reads in
// the order an operator expects regardless of which worker finished first.
func sortResults(results []plugin.Result) {
	sort.Slice(results, func(i, j int) bool {
		return noderange.Compare(results[i].Node, results[j].Node) < 0
	})
}

// partition groups req.Nodes into per-handler local groups and
// per-peer remote groups, following spec.md §4.4 step 3 exactly:
// handler selection happens first (it depends only on the node's own
// attributes), and only handlers in the dispatchable/quorum set are
// ever eligible for collective forwarding or quorum gating at all —
// a node resolving to a non-dispatchable handler (e.g. "redfish") is
// always handled locally, even if it has a collective.manager
// attribute naming a peer.
func (e *Executor) partition(ctx context.Context, req ExecRequest) ([]group, map[configmanager.CollectiveMember][]string, error) {
	var byHandler = make(map[string][]string)
	var unresolved []string
	var badCollective []string
	var remote = make(map[configmanager.CollectiveMember][]string)

	hasCollective := e.mgr.HasCollective(ctx)

	for _, node := range req.Nodes {
		name, ok := e.resolveHandler(ctx, req.Route, node)
		if !ok {
			unresolved = append(unresolved, node)
			continue
		}

		if !quorumPlugins[name] {
			byHandler[name] = append(byHandler[name], node)
			continue
		}

		if !e.mgr.Quorum(ctx) {
			// Quorum loss aborts the whole request synchronously rather
			// than degrading to a per-node result (spec.md §4.4 step 3,
			// §5, §7 — matching core.py's cfm.check_quorum(), which
			// raises rather than returning a per-node failure).
			metrics.RecordQuorumBlocked(name)
			return nil, nil, apperr.TargetResourceUnavailable("collective quorum lost")
		}

		owner := e.mgr.NodeOwner(ctx, node)
		switch {
		case owner != "" && owner != e.mgr.MyName():
			member, ok := e.mgr.CollectiveMember(ctx, owner)
			if !ok {
				badCollective = append(badCollective, node)
				continue
			}
			remote[member] = append(remote[member], node)
		case owner == "" && hasCollective:
			// A collective is active, but this node has no
			// collective.manager attribute at all — spec.md §4.4 step
			// 3's BadCollective branch. A node whose collective.manager
			// explicitly names this member (owner == MyName()) falls
			// through to the local case below instead.
			badCollective = append(badCollective, node)
		default:
			byHandler[name] = append(byHandler[name], node)
		}
	}

	var groups []group
	for name, nodes := range byHandler {
		handler, ok := plugin.Get(name)
		if !ok {
			handler = plugin.NewBadPlugin(apperr.NotImplemented("handler " + name + " not registered"))
		}
		groups = append(groups, group{name: name, handler: handler, nodes: nodes})
	}

	if len(unresolved) > 0 {
		groups = append(groups, group{
			name:    "unresolved",
			handler: plugin.NewBadPlugin(apperr.NotImplemented("no handler resolved")),
			nodes:   unresolved,
		})
	}

	if len(badCollective) > 0 {
		groups = append(groups, group{
			name:    "bad_collective",
			handler: plugin.NewBadCollective("", apperr.TargetResourceUnavailable("node has no collective.manager")),
			nodes:   badCollective,
		})
	}

	return groups, remote, nil
}

// resolveHandler implements PluginAttrs/Default selection for
// PluginRoute and PluginCollection, and the trivial case for
// FixedRoute (spec.md §3).
func (e *Executor) resolveHandler(ctx context.Context, route schema.Route, node string) (string, bool) {
	switch r := route.(type) {
	case schema.FixedRoute:
		return r.Handler, true
	case schema.PluginRoute:
		return e.selectFromAttrs(ctx, node, r.PluginAttrs, r.Default)
	case schema.PluginCollection:
		return e.selectFromAttrs(ctx, node, r.PluginAttrs, r.Default)
	default:
		return "", false
	}
}

func (e *Executor) selectFromAttrs(ctx context.Context, node string, pluginAttrs []string, def string) (string, bool) {
	if len(pluginAttrs) > 0 {
		attrs, err := e.mgr.Attributes(ctx, node)
		if err == nil {
			for _, attr := range pluginAttrs {
				if v, ok := attrs[attr]; ok && v != "" {
					return v, true
				}
			}
		}
	}
	if def != "" {
		return def, true
	}
	return "", false
}

func (e *Executor) runLocal(ctx context.Context, g group, req ExecRequest, out chan<- plugin.Result) {
	local := make(chan plugin.Result)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range local {
			out <- r
		}
	}()

	pluginReq := plugin.Request{
		Nodes:     g.nodes,
		Path:      req.Path,
		Segments:  req.Segments,
		Operation: req.Operation,
		Input:     req.Input,
	}

	switch req.Operation {
	case plugin.Create:
		g.handler.Create(ctx, pluginReq, local)
	case plugin.Retrieve:
		g.handler.Retrieve(ctx, pluginReq, local)
	case plugin.Update:
		g.handler.Update(ctx, pluginReq, local)
	case plugin.Delete:
		g.handler.Delete(ctx, pluginReq, local)
	}
	close(local)
	<-done
}

func (e *Executor) runRemote(ctx context.Context, member configmanager.CollectiveMember, nodes []string, req ExecRequest, out chan<- plugin.Result, fatal chan<- error) {
	if e.dispatcher == nil {
		for _, node := range nodes {
			out <- plugin.Result{Node: node, Err: apperr.TargetResourceUnavailable(node)}
		}
		return
	}

	remoteReq := req
	remoteReq.Nodes = nodes
	ch, err := e.dispatcher.Dispatch(ctx, member, remoteReq)
	if err != nil {
		if isPeerCertificateMismatch(err) {
			// Fatal to the whole request, not just this peer's nodes
			// (spec.md §5, §7 — matching core.py's collective forwarding,
			// which raises on an invalid peer certificate).
			fatal <- err
			return
		}
		for _, node := range nodes {
			out <- plugin.Result{Node: node, Err: apperr.TargetResourceUnavailable(node)}
		}
		return
	}
	for r := range ch {
		out <- r
	}
}

func isPeerCertificateMismatch(err error) bool {
	var appErr *apperr.AppError
	return errors.As(err, &appErr) && appErr.Code == apperr.ErrCodePeerCertificateMismatch
}

// Strip shapes a completed Run() result set per spec.md §5: a single
// node requested directly (AutoStrip) answers with its bare value (or
// error), while every other case answers with a node-keyed map.
func Strip(results []plugin.Result, autoStrip bool) (any, error) {
	if autoStrip && len(results) == 1 {
		if results[0].Err != nil {
			return nil, results[0].Err
		}
		return results[0].Value, nil
	}

	out := make(map[string]any, len(results))
	for _, r := range results {
		if r.Err != nil {
			out[r.Node] = map[string]string{"error": r.Err.Error()}
			continue
		}
		out[r.Node] = r.Value
	}
	return out, nil
}
