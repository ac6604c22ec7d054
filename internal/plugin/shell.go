package plugin

import (
	"context"
	"fmt"
)

// SSHPlugin backs the FixedRoute("ssh") leaf at nodes/_shell/session —
// every node gets the same handler regardless of attributes, unlike
// the PluginRoute leaves elsewhere in the tree (spec.md §3).
type SSHPlugin struct {
	BasePlugin
}

func init() {
	Register("ssh", func() Handler { return &SSHPlugin{BasePlugin: BasePlugin{Name: "ssh"}} })
}

func (p *SSHPlugin) Create(ctx context.Context, req Request, out chan<- Result) {
	for _, node := range req.Nodes {
		out <- Result{Node: node, Value: fmt.Sprintf("ssh session opened for %s", node)}
	}
}

// ShellServerPlugin is the Default for shell/sessions, a
// PluginCollection: every path segment past "sessions" (a session id)
// belongs to this plugin, not to the Schema (spec.md §3).
type ShellServerPlugin struct {
	BasePlugin
}

func init() {
	Register("shellserver", func() Handler {
		return &ShellServerPlugin{BasePlugin: BasePlugin{Name: "shellserver"}}
	})
}

func (p *ShellServerPlugin) Retrieve(ctx context.Context, req Request, out chan<- Result) {
	for _, node := range req.Nodes {
		out <- Result{Node: node, Value: map[string]any{"sessions": []string{}, "path": req.Path}}
	}
}

func (p *ShellServerPlugin) Create(ctx context.Context, req Request, out chan<- Result) {
	for _, node := range req.Nodes {
		out <- Result{Node: node, Value: map[string]any{"session": "1"}}
	}
}

// EnclosurePlugin backs FixedRoute("enclosure"), shared by
// power/reseat and _enclosure/reseat_bay in spirit — a chassis-level
// operation rather than a per-BMC one.
type EnclosurePlugin struct {
	BasePlugin
}

func init() {
	Register("enclosure", func() Handler {
		return &EnclosurePlugin{BasePlugin: BasePlugin{Name: "enclosure"}}
	})
}

func (p *EnclosurePlugin) Update(ctx context.Context, req Request, out chan<- Result) {
	for _, node := range req.Nodes {
		out <- Result{Node: node, Value: "reseated"}
	}
}
