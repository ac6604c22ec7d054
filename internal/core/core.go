// Package core wires the Schema Registry (internal/schema), Path
// Resolver (internal/resolver), Plugin Registry (internal/plugin),
// Fan-out Executor (internal/executor) and Collective Dispatcher
// (internal/collective) together into the single entry point the
// illustrative HTTP front end calls: Dispatch(ctx, path, operation,
// input). This is core.py's own `handle_path` top-level dispatch loop
// (SPEC_FULL.md §C Module Map), generalized from its Python dict-walk
// into the typed Resolver/Executor split the rest of this module uses.
package core

import (
	"context"
	"strings"

	"github.com/clusterhub/clustercore/internal/configmanager"
	"github.com/clusterhub/clustercore/internal/discovery"
	apperr "github.com/clusterhub/clustercore/internal/errors"
	"github.com/clusterhub/clustercore/internal/executor"
	"github.com/clusterhub/clustercore/internal/plugin"
	"github.com/clusterhub/clustercore/internal/schema"
)

// Version is the value the `version` leaf answers with (spec.md §6).
// Set at build time by cmd/clustercored via ldflags in a real release;
// left as a plain constant here since build tooling is outside this
// spec's scope.
var Version = "0.1.0-dev"

// Core holds every collaborator Dispatch needs. It has no mutable
// state of its own — everything it touches is either immutable
// (schema.NodeSchema/NodeGroupSchema) or already safe for concurrent
// use (Manager, Executor, UserStore).
type Core struct {
	Exec      *executor.Executor
	Mgr       configmanager.Manager
	Users     *configmanager.UserStore
	Discovery discovery.Handler
}

// New constructs a Core from its collaborators. discoveryHandler may
// be nil, in which case `discovery/` answers NotImplemented rather
// than panicking — useful for deployments with no discovery backend
// configured.
func New(exec *executor.Executor, mgr configmanager.Manager, users *configmanager.UserStore, discoveryHandler discovery.Handler) *Core {
	return &Core{Exec: exec, Mgr: mgr, Users: users, Discovery: discoveryHandler}
}

// ParsePath splits a request path into segments the way spec.md §6
// describes: leading empty segment (from a leading "/") discarded, a
// single trailing "/" tolerated, segments otherwise left verbatim and
// case-sensitive.
func ParsePath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// Dispatch is the single entry point: translate path+operation+input
// into a caller-facing result. It is the Go analogue of core.py's
// `handle_path`, restricted (per spec.md §1) to the routing/dispatch
// core — it does not itself do HTTP, authentication, or presentation
// formatting; cmd/clustercored's adapter does that.
func (c *Core) Dispatch(ctx context.Context, path string, op plugin.Operation, input []byte) (any, error) {
	segments := ParsePath(path)
	if len(segments) == 0 {
		return c.rootCollection(), nil
	}

	root := segments[0]
	rest := segments[1:]

	switch root {
	case "version":
		if len(rest) != 0 || op != plugin.Retrieve {
			return nil, apperr.NotFound("version")
		}
		return map[string]string{"version": Version}, nil
	case "discovery":
		return c.dispatchDiscovery(ctx, rest, op, input)
	case "events":
		return nil, apperr.NotImplemented("events")
	case "networking":
		return nil, apperr.NotImplemented("networking")
	case "users":
		return c.dispatchUsers(ctx, rest, op, input)
	case "nodegroups":
		return c.dispatchNodeGroups(ctx, rest, op, input)
	case "nodes":
		return c.dispatchNodes(ctx, rest, op, input)
	case "noderange":
		return c.dispatchNodeRange(ctx, rest, op, input)
	default:
		return nil, apperr.NotFound(root)
	}
}

// rootCollection answers `GET /` with the fixed top-level sequence
// spec.md §2/§6 names, each directory-shaped entry suffixed with "/"
// per the Resolver's collection-enumeration rule (spec.md §4.2) —
// "version" is the sole leaf, so it alone is unsuffixed.
func (c *Core) rootCollection() []string {
	out := make([]string, len(schema.RootCollections))
	for i, name := range schema.RootCollections {
		if name == "version" {
			out[i] = name
			continue
		}
		out[i] = name + "/"
	}
	return out
}

func (c *Core) dispatchDiscovery(ctx context.Context, rest []string, op plugin.Operation, input []byte) (any, error) {
	if c.Discovery == nil {
		return nil, apperr.NotImplemented("discovery")
	}
	return c.Discovery.HandleAPIRequest(ctx, c.Mgr, input, op, rest)
}
