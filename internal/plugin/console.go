package plugin

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
)

// ConsolePlugin serves _console/session (a PluginRoute keyed on
// console.method, with no Default) for nodes whose console.method is
// "console". Create here only hands back a session token; Retrieve,
// Update and Delete are NotImplemented. The actual byte stream happens
// over the Opaque
// nodes/console/session leaf, which bypasses the plugin registry
// entirely and is upgraded directly by the HTTP front end (spec.md §3,
// §4.2's CustomInterface outcome).
type ConsolePlugin struct {
	BasePlugin
}

func init() {
	Register("console", func() Handler { return &ConsolePlugin{BasePlugin: BasePlugin{Name: "console"}} })
}

func (p *ConsolePlugin) Create(ctx context.Context, req Request, out chan<- Result) {
	for _, node := range req.Nodes {
		out <- Result{Node: node, Value: map[string]string{"session": node + "-console"}}
	}
}

// Upgrader is shared by the illustrative HTTP front end to hand off an
// Opaque console session to a raw byte-stream WebSocket connection —
// the CustomInterface outcome the Resolver reports for nodes/console/session
// is deliberately outside PluginHandler's request/response shape, so
// this lives beside the plugin rather than behind its interface.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeConsole upgrades r into a WebSocket and proxies raw bytes
// between the caller and the named node's console session. This is a
// minimal illustrative implementation — real I/O plumbing to the node
// is out of scope (SPEC_FULL.md §E).
func ServeConsole(w http.ResponseWriter, r *http.Request, node string) error {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			return nil
		}
		if err := conn.WriteMessage(msgType, msg); err != nil {
			return err
		}
	}
}
