package core

import (
	"context"

	apperr "github.com/clusterhub/clustercore/internal/errors"
	"github.com/clusterhub/clustercore/internal/executor"
	"github.com/clusterhub/clustercore/internal/noderange"
	"github.com/clusterhub/clustercore/internal/plugin"
	"github.com/clusterhub/clustercore/internal/resolver"
	"github.com/clusterhub/clustercore/internal/schema"
)

// dispatchNodes implements `/nodes/` (spec.md §6): the flat collection
// of every known node name at the root, and internal/schema.NodeSchema
// underneath each individual node. A single node named directly here
// (as opposed to through `/noderange/<expr>/...`) is not a range —
// AutoStrip is always true, so a successful single-node response comes
// back as a bare value rather than a {node: value} map (spec.md §5).
func (c *Core) dispatchNodes(ctx context.Context, rest []string, op plugin.Operation, input []byte) (any, error) {
	if len(rest) == 0 {
		if op != plugin.Retrieve {
			return nil, apperr.NotImplemented("nodes " + string(op))
		}
		nodes, err := c.Mgr.Nodes(ctx)
		if err != nil {
			return nil, err
		}
		noderange.Sort(nodes)
		return nodes, nil
	}

	node := rest[0]
	return c.dispatchSingleNode(ctx, node, rest[1:], op, input)
}

// dispatchSingleNode resolves subpath against NodeSchema for exactly
// one node and runs it through the Executor, stripped. Used only by
// `/nodes/<n>/...`; `/noderange/<expr>/...` always runs as a range,
// even when expr expands to a single node (see dispatchNodeRange).
func (c *Core) dispatchSingleNode(ctx context.Context, node string, subpath []string, op plugin.Operation, input []byte) (any, error) {
	outcome := resolver.Resolve(schema.NodeSchema, subpath)

	switch outcome.Kind {
	case resolver.NotFound:
		return nil, apperr.NotFound("nodes/" + node)
	case resolver.Collection:
		return childListing(outcome.Node, outcome.Children), nil
	case resolver.CustomInterface:
		return nil, errCustomInterface(node)
	case resolver.Matched:
		results, err := c.Exec.Run(ctx, executor.ExecRequest{
			Nodes:     []string{node},
			Route:     outcome.Route,
			Path:      outcome.Remainder,
			Segments:  subpath,
			Operation: op,
			Input:     input,
			AutoStrip: true,
		})
		if err != nil {
			return nil, err
		}
		return executor.Strip(results, true)
	default:
		return nil, apperr.NotFound("nodes/" + node)
	}
}

// errCustomInterface is the "custom interface required" outcome
// spec.md §4.2 names for Opaque leaves (e.g. console session upgrade):
// the dispatch core can't answer it itself, so it reports
// NotImplemented to a plain request/response caller — the HTTP front
// end checks for an Opaque route before ever calling Dispatch on a
// console path, and upgrades the connection directly instead
// (cmd/clustercored).
func errCustomInterface(node string) error {
	return apperr.NotImplemented("nodes/" + node + " requires a custom interface (e.g. console upgrade)")
}
