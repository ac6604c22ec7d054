package configmanager

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/clusterhub/clustercore/internal/plugin"
)

// AttributesHandler adapts a Manager into a plugin.Handler, registered
// under two names: "attributes" for internal/schema.NodeSchema's
// attributes/{all,current,expression} leaves, and "group_attributes"
// for internal/schema.NodeGroupSchema's attributes/{all,current}
// leaves (SPEC_FULL.md §D.1) — one constructor, two registrations, so
// the node/group distinction is fixed at registration time rather than
// inferred per request. Each registration tells its own sibling leaves
// apart by the trailing segment of req.Segments (all/current/expression).
type AttributesHandler struct {
	mgr   Manager
	group bool
}

// NewAttributesHandler wraps mgr for node attribute leaves.
func NewAttributesHandler(mgr Manager) *AttributesHandler {
	return &AttributesHandler{mgr: mgr}
}

// NewGroupAttributesHandler wraps mgr for nodegroup attribute leaves.
func NewGroupAttributesHandler(mgr Manager) *AttributesHandler {
	return &AttributesHandler{mgr: mgr, group: true}
}

func leaf(segments []string) string {
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}

func (h *AttributesHandler) Retrieve(ctx context.Context, req plugin.Request, out chan<- plugin.Result) {
	for _, node := range req.Nodes {
		var attrs map[string]string
		var err error
		if h.group {
			attrs, err = h.mgr.GroupAttributes(ctx, node)
		} else {
			attrs, err = h.mgr.Attributes(ctx, node)
		}
		if err != nil {
			out <- plugin.Result{Node: node, Err: err}
			continue
		}

		switch leaf(req.Segments) {
		case "expression":
			out <- plugin.Result{Node: node, Value: expressionAttrs(attrs)}
		default: // "all", "current"
			out <- plugin.Result{Node: node, Value: attrs}
		}
	}
}

func (h *AttributesHandler) Update(ctx context.Context, req plugin.Request, out chan<- plugin.Result) {
	var attrs map[string]string
	if err := json.Unmarshal(req.Input, &attrs); err != nil {
		for _, node := range req.Nodes {
			out <- plugin.Result{Node: node, Err: err}
		}
		return
	}
	for _, node := range req.Nodes {
		var err error
		if h.group {
			err = h.mgr.SetGroupAttributes(ctx, node, attrs)
		} else {
			err = h.mgr.SetAttributes(ctx, node, attrs)
		}
		out <- plugin.Result{Node: node, Err: err, Value: attrs}
	}
}

func (h *AttributesHandler) Create(ctx context.Context, req plugin.Request, out chan<- plugin.Result) {
	h.Update(ctx, req, out)
}

func (h *AttributesHandler) Delete(ctx context.Context, req plugin.Request, out chan<- plugin.Result) {
	cleared := make(map[string]string)
	for _, node := range req.Nodes {
		var err error
		if h.group {
			err = h.mgr.SetGroupAttributes(ctx, node, cleared)
		} else {
			err = h.mgr.SetAttributes(ctx, node, cleared)
		}
		out <- plugin.Result{Node: node, Err: err}
	}
}

// expressionAttrs returns only the attributes whose value still
// contains an unevaluated `{expression}` template — core.py returns
// these verbatim rather than evaluating them (SPEC_FULL.md §D.1).
func expressionAttrs(attrs map[string]string) map[string]string {
	out := make(map[string]string)
	for k, v := range attrs {
		if strings.Contains(v, "{") && strings.Contains(v, "}") {
			out[k] = v
		}
	}
	return out
}
