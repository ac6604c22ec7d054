// Package schema implements the declarative resource tree described in
// spec.md §3–§4.1 (C1, the Schema Registry): an immutable, nested
// description of the node and nodegroup resource trees. Each leaf is one
// of FixedRoute, PluginRoute, PluginCollection or Opaque; everything else
// is a sub-mapping (a collection).
//
// The tree shape mirrors confluent_server/confluent/core.py's
// noderesources/nodegroupresources dictionaries (see original_source in
// the retrieval pack): a nested map keyed by path segment, built once at
// package init and never mutated afterward, so concurrent readers need
// no synchronization (spec.md §3 Invariants, §5).
package schema

import "strings"

// Node is one entry of the schema tree: either a Route (a terminal
// leaf) or a Map (a sub-collection, keyed by the next path segment).
// Exactly one of the two fields is non-nil for any constructed node.
type Node struct {
	Route Route
	Map   map[string]*Node
}

func collection(m map[string]*Node) *Node { return &Node{Map: m} }
func route(r Route) *Node                 { return &Node{Route: r} }

// Route is the sum type spec.md §3 describes: FixedRoute | PluginRoute |
// PluginCollection | Opaque.
type Route interface {
	isRoute()
}

// FixedRoute is a statically chosen handler regardless of node
// attributes (spec.md §3).
type FixedRoute struct {
	Handler string
}

// PluginRoute selects its handler from node attributes: the first of
// PluginAttrs present on the node wins, else Default, else the request
// resolves to the synthetic BadPlugin handler (spec.md §3, §4.4).
type PluginRoute struct {
	PluginAttrs []string
	Default     string
}

// PluginCollection behaves like PluginRoute for handler selection, but
// terminates path resolution: any path suffix beyond it belongs to the
// selected plugin and the Schema has no opinion on it (spec.md §3, §4.2).
type PluginCollection struct {
	PluginAttrs []string
	Default     string
}

// Opaque is a sentinel leaf requiring a custom interface outside the
// request/response model — e.g. a console session upgrade (spec.md §3).
type Opaque struct{}

func (FixedRoute) isRoute()       {}
func (PluginRoute) isRoute()      {}
func (PluginCollection) isRoute() {}
func (Opaque) isRoute()           {}

// hidden reports whether a segment name is hidden per spec.md §3: a
// leading underscore resolves normally but is omitted from collection
// enumeration (mirrors core.py's "_console", "_shell", "_enclosure").
func hidden(segment string) bool {
	return strings.HasPrefix(segment, "_")
}

// Hidden reports whether segment is a hidden segment name.
func Hidden(segment string) bool { return hidden(segment) }

// RootCollections is the ordered, fixed sequence the front-end
// recognizes at the top level (spec.md §2, §6). Enumerating the root
// produces exactly this sequence.
var RootCollections = []string{
	"discovery", "events", "networking", "noderange",
	"nodes", "nodegroups", "users", "version",
}
