package core

import (
	"context"
	"encoding/json"
	"sort"

	apperr "github.com/clusterhub/clustercore/internal/errors"
	"github.com/clusterhub/clustercore/internal/executor"
	"github.com/clusterhub/clustercore/internal/plugin"
	"github.com/clusterhub/clustercore/internal/resolver"
	"github.com/clusterhub/clustercore/internal/schema"
)

// dispatchNodeGroups implements the `nodegroups` resource tree
// (spec.md §6): a flat collection of group names at the root, then
// internal/schema.NodeGroupSchema (just `attributes/{all,current}`,
// per spec.md §6) underneath each one.
func (c *Core) dispatchNodeGroups(ctx context.Context, rest []string, op plugin.Operation, input []byte) (any, error) {
	if len(rest) == 0 {
		switch op {
		case plugin.Retrieve:
			groups, err := c.Mgr.Groups(ctx)
			if err != nil {
				return nil, err
			}
			sort.Strings(groups)
			return groups, nil
		case plugin.Create:
			var body map[string]string
			if err := json.Unmarshal(input, &body); err != nil {
				return nil, apperr.InvalidArgument("malformed nodegroup creation body")
			}
			name := body["name"]
			if name == "" {
				return nil, apperr.InvalidArgument("nodegroup creation requires a name")
			}
			delete(body, "name")
			if len(body) > 0 {
				if err := c.Mgr.SetGroupAttributes(ctx, name, body); err != nil {
					return nil, err
				}
			} else if im, ok := c.Mgr.(registerableManager); ok {
				im.RegisterGroup(name)
			}
			attrs, _ := c.Mgr.GroupAttributes(ctx, name)
			return attrs, nil
		default:
			return nil, apperr.NotImplemented("nodegroups " + string(op))
		}
	}

	group := rest[0]
	outcome := resolver.Resolve(schema.NodeGroupSchema, rest[1:])

	switch outcome.Kind {
	case resolver.NotFound:
		return nil, apperr.NotFound("nodegroups/" + group)
	case resolver.Collection:
		return childListing(outcome.Node, outcome.Children), nil
	case resolver.CustomInterface:
		return nil, apperr.NotImplemented("nodegroups custom interface")
	case resolver.Matched:
		// Attribute routes name the group itself, not its members — a
		// nodegroup's `attributes/all` is one entity, addressed
		// directly like a single node under `/nodes/<n>/...`, so it
		// gets the same single-entity AutoStrip treatment rather than
		// fanning out across NodesInGroup (spec.md §5).
		results, err := c.Exec.Run(ctx, executor.ExecRequest{
			Nodes:     []string{group},
			Route:     outcome.Route,
			Path:      outcome.Remainder,
			Segments:  rest[1:],
			Operation: op,
			Input:     input,
			AutoStrip: true,
		})
		if err != nil {
			return nil, err
		}
		return executor.Strip(results, true)
	default:
		return nil, apperr.NotFound("nodegroups/" + group)
	}
}

// registerableManager is satisfied by *configmanager.InMemoryManager
// (and anything embedding it, like PostgresManager); it lets
// dispatchNodeGroups record a bare group name that was created with no
// attributes, without dispatchNodeGroups importing the concrete type
// directly. Backends that don't support it (a bare Manager interface
// value with no RegisterGroup) simply skip the optimization — the group
// still becomes visible the moment any attribute is set on it.
type registerableManager interface {
	RegisterGroup(name string)
}
