package plugin

import "context"

// RedfishPlugin is an alternate hardware-management plugin a node can
// select via its hardwaremanagement.method attribute instead of the
// ipmi Default — exercising the "attribute overrides Default" half of
// PluginRoute/PluginCollection selection (spec.md §3, §4.4). Its
// behavior is intentionally identical in shape to IPMIPlugin; the
// point of this plugin existing is routing, not hardware fidelity.
type RedfishPlugin struct {
	BasePlugin
}

func init() {
	Register("redfish", func() Handler {
		return &RedfishPlugin{BasePlugin: BasePlugin{Name: "redfish"}}
	})
}

func (p *RedfishPlugin) Retrieve(ctx context.Context, req Request, out chan<- Result) {
	for _, node := range req.Nodes {
		out <- Result{Node: node, Value: map[string]string{"state": "unknown"}}
	}
}
