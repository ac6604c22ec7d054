// Package resolver implements the path resolution state machine
// described in spec.md §4 (C2, the Path Resolver): walking a request
// path against the schema tree (internal/schema) one segment at a
// time until it bottoms out in one of four outcomes — an enumerable
// collection, a matched route with its trailing request path, a
// custom-interface (Opaque) leaf, or not-found.
//
// This mirrors core.py's own path-walking loop in
// `handle_path`/`nested_lookup`: descend the dict by segment, and as
// soon as a leaf value (rather than another dict) is reached, decide
// what kind of leaf it is and stop walking.
package resolver

import (
	"sort"

	"github.com/clusterhub/clustercore/internal/schema"
)

// Kind enumerates the four ways resolution can end (spec.md §4.2).
type Kind int

const (
	// NotFound means no node in the tree matches the given path.
	NotFound Kind = iota
	// Collection means the path names an internal (non-leaf) node;
	// Children lists its enumerable (non-hidden) sub-segments in
	// sorted order.
	Collection
	// Matched means the path (or a prefix of it, for PluginCollection)
	// named a FixedRoute or PluginRoute/PluginCollection leaf. Route
	// holds the leaf and Remainder holds whatever path segments were
	// left over after the leaf was reached — empty for FixedRoute and
	// PluginRoute (which must consume the whole path), non-empty only
	// possible for PluginCollection.
	Matched
	// CustomInterface means the path named an Opaque leaf: the caller
	// must hand the connection off to something outside the normal
	// request/response model (e.g. a console session upgrade).
	CustomInterface
)

// Outcome is the result of resolving one path against a schema tree.
type Outcome struct {
	Kind Kind
	// Children lists a Collection outcome's enumerable sub-segment
	// names, sorted, hidden segments excluded.
	Children []string
	// Node is the sub-mapping a Collection outcome landed on —
	// spec.md §4.2's "Collection(sub_schema)" — so callers can tell
	// leaf children (routes) from sub-collection children when
	// rendering a listing (SPEC_FULL.md's core.py-style trailing "/"
	// convention only applies to the latter).
	Node      *schema.Node
	Route     schema.Route
	Remainder []string
}

// Resolve walks segments against root and returns the outcome.
//
// Hidden segments (schema.Hidden) resolve normally when explicitly
// named — only collection enumeration skips them (spec.md §3).
func Resolve(root *schema.Node, segments []string) Outcome {
	node := root
	for i, seg := range segments {
		if node.Map == nil {
			// We are sitting on a route but there's still path left;
			// only PluginCollection tolerates that, handled below
			// before we ever get here for FixedRoute/PluginRoute/Opaque.
			return Outcome{Kind: NotFound}
		}

		child, ok := node.Map[seg]
		if !ok {
			return Outcome{Kind: NotFound}
		}
		node = child

		if node.Route != nil {
			switch route := node.Route.(type) {
			case schema.PluginCollection:
				return Outcome{Kind: Matched, Route: route, Remainder: segments[i+1:]}
			case schema.Opaque:
				if i+1 == len(segments) {
					return Outcome{Kind: CustomInterface, Route: route}
				}
				return Outcome{Kind: NotFound}
			default:
				// FixedRoute / PluginRoute must consume the whole path.
				if i+1 == len(segments) {
					return Outcome{Kind: Matched, Route: route}
				}
				return Outcome{Kind: NotFound}
			}
		}
	}

	// Exhausted the path sitting on a collection node.
	if node.Map == nil {
		// The final segment was itself a leaf handled in the loop
		// above; this branch only runs for a zero-length path against
		// a route-only root, which the schema never constructs.
		return Outcome{Kind: NotFound}
	}

	children := make([]string, 0, len(node.Map))
	for name := range node.Map {
		if schema.Hidden(name) {
			continue
		}
		children = append(children, name)
	}
	sort.Strings(children)
	return Outcome{Kind: Collection, Children: children, Node: node}
}
