package plugin

import (
	"context"
	"sync"
)

// IPMIPlugin is the reference hardware-management plugin: the Default
// the hardwaremanagement.method-keyed PluginRoute/PluginCollection
// leaves in internal/schema fall back to when a node has no such
// attribute override
// (spec.md §3, matching core.py's "ipmi" default). It keeps per-node
// state in memory so the fan-out/fan-in machinery and collective
// forwarding can be exercised end-to-end without a real BMC.
type IPMIPlugin struct {
	BasePlugin

	mu    sync.Mutex
	power map[string]string
}

func init() {
	Register("ipmi", func() Handler {
		return &IPMIPlugin{
			BasePlugin: BasePlugin{Name: "ipmi"},
			power:      make(map[string]string),
		}
	})
}

func (p *IPMIPlugin) Retrieve(ctx context.Context, req Request, out chan<- Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, node := range req.Nodes {
		state, ok := p.power[node]
		if !ok {
			state = "off"
		}
		out <- Result{Node: node, Value: map[string]string{"state": state}}
	}
}

func (p *IPMIPlugin) Update(ctx context.Context, req Request, out chan<- Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, node := range req.Nodes {
		p.power[node] = string(req.Input)
		out <- Result{Node: node, Value: map[string]string{"state": string(req.Input)}}
	}
}
