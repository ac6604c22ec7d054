package wire

import "encoding/json"

// Envelope is the self-describing message shape carried inside every
// frame: a Kind tag says how to interpret Payload, so a single framed
// stream can carry a handshake message followed by any number of
// result messages without a separate out-of-band schema (spec.md §5).
type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Kinds of envelope this package and internal/collective exchange.
const (
	KindHello      = "hello"      // client -> server: who I am
	KindHelloAck   = "hello_ack"  // server -> client: who I am
	KindDispatch   = "dispatch"   // client -> server: the request to run
	KindResult     = "result"     // server -> client: one node's Result
)

// Hello is the handshake payload both sides send: each side states its
// own collective member name so the peer's logs can identify who
// connected, even though authentication itself happens at the TLS
// layer via certificate fingerprint pinning, not via this payload
// (spec.md §5).
type Hello struct {
	Name string `json:"name"`
}

// DispatchPayload carries one ExecRequest's wire-safe fields — see
// internal/collective for the ExecRequest <-> DispatchPayload mapping
// (this package stays free of an internal/executor import).
type DispatchPayload struct {
	Nodes     []string          `json:"nodes"`
	Path      []string          `json:"path,omitempty"`
	Segments  []string          `json:"segments,omitempty"`
	Operation string            `json:"operation"`
	Input     []byte            `json:"input,omitempty"`
	Route     RouteDescriptor   `json:"route"`
}

// RouteDescriptor is a wire-safe description of a schema.Route: enough
// to reconstruct handler selection on the receiving side without
// shipping the whole schema tree.
type RouteDescriptor struct {
	Kind        string   `json:"kind"` // "fixed", "plugin_route", "plugin_collection", "opaque"
	Handler     string   `json:"handler,omitempty"`
	PluginAttrs []string `json:"plugin_attrs,omitempty"`
	Default     string   `json:"default,omitempty"`
}

// ResultPayload is the wire form of one plugin.Result.
type ResultPayload struct {
	Node  string          `json:"node"`
	Value json.RawMessage `json:"value,omitempty"`
	Err   string          `json:"error,omitempty"`
}

// Encode marshals kind/payload into a ready-to-frame Envelope.
func Encode(kind string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Kind: kind, Payload: raw})
}

// Decode unmarshals a framed payload back into an Envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(data, &env)
	return env, err
}
