package core

import "github.com/clusterhub/clustercore/internal/schema"

// childListing renders a resolver.Collection outcome's children the
// way spec.md §4.2 describes: a sub-collection child is suffixed with
// "/" in the emitted listing, while a route (leaf) child — e.g.
// NodeSchema's top-level "description" sitting beside "attributes" — is
// left bare, mirroring core.py's directory-vs-file listing convention.
func childListing(node *schema.Node, children []string) []string {
	out := make([]string, len(children))
	for i, name := range children {
		child := node.Map[name]
		if child != nil && child.Route == nil {
			out[i] = name + "/"
		} else {
			out[i] = name
		}
	}
	return out
}
