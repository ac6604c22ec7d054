package core

import (
	"context"
	"encoding/json"

	apperr "github.com/clusterhub/clustercore/internal/errors"
	"github.com/clusterhub/clustercore/internal/executor"
	"github.com/clusterhub/clustercore/internal/noderange"
	"github.com/clusterhub/clustercore/internal/plugin"
	"github.com/clusterhub/clustercore/internal/resolver"
	"github.com/clusterhub/clustercore/internal/schema"
)

// abbreviateInput is the body of `POST /noderange/<list>/abbreviate`
// (spec.md §4.4, §8 scenario 6): the node names to reverse-expand, not
// the expression in the path itself (which is ignored for this leaf —
// core.py's own abbreviate handler reads only the body).
type abbreviateInput struct {
	Nodes []string `json:"nodes"`
}

// dispatchNodeRange implements `/noderange/<expr>/...` (spec.md §4.4,
// §6): expand expr via internal/noderange, then either run the
// abbreviate/enumerate special cases or fall through to the same
// schema-driven dispatch `/nodes/<n>/...` uses, across every expanded
// node at once with no autostrip (this is always a range, even when
// expr happens to expand to exactly one node).
func (c *Core) dispatchNodeRange(ctx context.Context, rest []string, op plugin.Operation, input []byte) (any, error) {
	if len(rest) == 0 {
		return nil, apperr.InvalidArgument("noderange requires an expression segment")
	}
	expr := rest[0]
	subpath := rest[1:]

	// Per spec.md's Open Question / Design Note, noderange paths
	// bypass child-validity checks: expansion never consults the
	// Schema, only the expression grammar plus group membership.
	groupResolver := func(group string) ([]string, error) {
		return c.Mgr.NodesInGroup(ctx, group)
	}

	// The abbreviate leaf ignores expr entirely and reads its node
	// list from the request body (spec.md §4.4, §8 scenario 6) — no
	// expansion, no fan-out.
	if len(subpath) == 1 && subpath[0] == "abbreviate" {
		if op != plugin.Create {
			return nil, apperr.NotImplemented("noderange abbreviate " + string(op))
		}
		var body abbreviateInput
		if err := json.Unmarshal(input, &body); err != nil {
			return nil, apperr.InvalidArgument("malformed abbreviate body")
		}
		return map[string]string{"noderange": noderange.Abbreviate(body.Nodes)}, nil
	}

	nodes, err := noderange.Expand(expr, groupResolver)
	if err != nil {
		return nil, err
	}

	// `GET /noderange/<expr>/` with no subpath enumerates the expanded
	// membership (SPEC_FULL.md §D.2), not a schema collection listing.
	if len(subpath) == 0 {
		if op != plugin.Retrieve {
			return nil, apperr.NotImplemented("noderange " + string(op))
		}
		return enumerateNodes(nodes), nil
	}

	if len(nodes) == 0 {
		// "Node range with zero resolved nodes under retrieve: return
		// an empty collection listing" (spec.md §4.4).
		if op == plugin.Retrieve {
			return enumerateNodes(nodes), nil
		}
		return nil, apperr.NotFound("noderange/" + expr)
	}

	outcome := resolver.Resolve(schema.NodeSchema, subpath)
	switch outcome.Kind {
	case resolver.NotFound:
		return nil, apperr.NotFound("noderange/" + expr)
	case resolver.Collection:
		return childListing(outcome.Node, outcome.Children), nil
	case resolver.CustomInterface:
		return nil, errCustomInterface(expr)
	case resolver.Matched:
		results, err := c.Exec.Run(ctx, executor.ExecRequest{
			Nodes:     nodes,
			Route:     outcome.Route,
			Path:      outcome.Remainder,
			Segments:  subpath,
			Operation: op,
			Input:     input,
			AutoStrip: false,
		})
		if err != nil {
			return nil, err
		}
		return executor.Strip(results, false)
	default:
		return nil, apperr.NotFound("noderange/" + expr)
	}
}

// enumerateNodes renders an expanded node set in the {"nodes": {...}}
// shape SPEC_FULL.md §D.2 describes for `GET /noderange/<expr>/`: each
// member node maps to an empty object, mirroring core.py's
// enumerate_node_collection (a membership listing, not an attribute
// dump).
func enumerateNodes(nodes []string) map[string]any {
	members := make(map[string]any, len(nodes))
	for _, n := range nodes {
		members[n] = map[string]any{}
	}
	return map[string]any{"nodes": members}
}
