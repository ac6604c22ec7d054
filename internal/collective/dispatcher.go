package collective

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"net"
	"time"

	"github.com/clusterhub/clustercore/internal/configmanager"
	apperr "github.com/clusterhub/clustercore/internal/errors"
	"github.com/clusterhub/clustercore/internal/executor"
	"github.com/clusterhub/clustercore/internal/logger"
	"github.com/clusterhub/clustercore/internal/metrics"
	"github.com/clusterhub/clustercore/internal/plugin"
	"github.com/clusterhub/clustercore/internal/schema"
	"github.com/clusterhub/clustercore/internal/wire"
)

// dialTimeout bounds how long a single peer forward waits to establish
// a connection before the node group falls back to
// TargetResourceUnavailable (spec.md §5).
const dialTimeout = 5 * time.Second

// Dispatcher forwards ExecRequests to collective peers over a pinned
// TLS connection, satisfying internal/executor.PeerDispatcher. One
// Dispatcher serves every peer this member knows about; it dials fresh
// for every request rather than pooling connections, matching the
// request-scoped lifetime core.py's collective forwarding uses (no
// persistent peer session to go stale).
type Dispatcher struct {
	localCert tls.Certificate
	myName    string
}

// NewDispatcher constructs a Dispatcher that presents localCert to
// every peer it dials. myName identifies this member in the Hello
// handshake.
func NewDispatcher(localCert tls.Certificate, myName string) *Dispatcher {
	return &Dispatcher{localCert: localCert, myName: myName}
}

// Dispatch opens a TLS connection to member, pinned to its configured
// fingerprint, sends req as a single dispatch envelope, and streams back
// one Result per ResultPayload frame until the peer signals end of
// stream. The returned channel is closed once every result (or a
// uniform failure Result per node) has been delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, member configmanager.CollectiveMember, req executor.ExecRequest) (<-chan plugin.Result, error) {
	out := make(chan plugin.Result)
	log := logger.Collective().With().Str("peer", member.Name).Logger()
	started := time.Now()

	dialer := &net.Dialer{Timeout: dialTimeout}
	tlsCfg := pinnedTLSConfig(d.localCert, member.Fingerprint)

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, err := (&tls.Dialer{NetDialer: dialer, Config: tlsCfg}).DialContext(dialCtx, "tcp", member.Address)
	if err != nil {
		if mismatch := certMismatchError(err); mismatch != nil {
			// A pinned-fingerprint mismatch is fatal to the whole
			// request, not a per-node TargetResourceUnavailable — the
			// peer answered, it just isn't who we pinned (spec.md §5,
			// §7; core.py raises rather than degrading here too).
			log.Warn().Err(mismatch).Msg("collective peer certificate fingerprint mismatch")
			metrics.RecordCollectiveDispatch(member.Name, "cert_mismatch", time.Since(started).Seconds())
			return nil, mismatch
		}
		log.Warn().Err(err).Msg("failed to dial collective peer")
		metrics.RecordCollectiveDispatch(member.Name, "dial_failed", time.Since(started).Seconds())
		go failAll(req.Nodes, apperr.TargetResourceUnavailable(member.Name), out)
		return out, nil
	}

	if err := handshake(conn, d.myName); err != nil {
		conn.Close()
		log.Warn().Err(err).Msg("collective handshake failed")
		metrics.RecordCollectiveDispatch(member.Name, "handshake_failed", time.Since(started).Seconds())
		go failAll(req.Nodes, apperr.TargetResourceUnavailable(member.Name), out)
		return out, nil
	}

	payload, err := wire.Encode(wire.KindDispatch, toDispatchPayload(req))
	if err != nil {
		conn.Close()
		metrics.RecordCollectiveDispatch(member.Name, "encode_failed", time.Since(started).Seconds())
		go failAll(req.Nodes, apperr.InternalServer("failed to encode dispatch request"), out)
		return out, nil
	}
	if err := wire.WriteFrame(conn, payload); err != nil {
		conn.Close()
		metrics.RecordCollectiveDispatch(member.Name, "write_failed", time.Since(started).Seconds())
		go failAll(req.Nodes, apperr.TargetResourceUnavailable(member.Name), out)
		return out, nil
	}

	metrics.RecordCollectiveDispatch(member.Name, "ok", time.Since(started).Seconds())
	go d.receive(conn, member, out)
	return out, nil
}

func (d *Dispatcher) receive(conn net.Conn, member configmanager.CollectiveMember, out chan<- plugin.Result) {
	defer close(out)
	defer conn.Close()
	log := logger.Collective().With().Str("peer", member.Name).Logger()

	for {
		frame, err := wire.ReadFrame(conn)
		if err != nil {
			if err == wire.ErrEndOfStream {
				return
			}
			log.Warn().Err(err).Msg("collective stream read failed")
			return
		}

		env, err := wire.Decode(frame)
		if err != nil || env.Kind != wire.KindResult {
			log.Warn().Msg("unexpected collective frame, ignoring")
			continue
		}

		var rp wire.ResultPayload
		if err := json.Unmarshal(env.Payload, &rp); err != nil {
			continue
		}
		out <- fromResultPayload(rp)
	}
}

// certMismatchError returns err as an *apperr.AppError if it (or
// something it wraps) is our own pinned-fingerprint rejection from
// VerifyPeerCertificate, distinguishing that from an ordinary network
// dial failure or a TLS alert raised by the peer rejecting us.
func certMismatchError(err error) *apperr.AppError {
	var appErr *apperr.AppError
	if errors.As(err, &appErr) && appErr.Code == apperr.ErrCodePeerCertificateMismatch {
		return appErr
	}
	return nil
}

func failAll(nodes []string, err error, out chan<- plugin.Result) {
	defer close(out)
	for _, node := range nodes {
		out <- plugin.Result{Node: node, Err: err}
	}
}

// handshake performs the Hello/HelloAck exchange that opens every
// collective connection (spec.md §5). Trust itself was already
// established by the TLS layer's fingerprint check; this exchange just
// lets each side log who it's talking to. core.py reads Hello and
// HelloAck as two separate TLV frames before the dispatch envelope
// follows; this does the same read in the same order, just folded into
// one round trip here rather than kept as two distinct blocking reads.
func handshake(conn net.Conn, myName string) error {
	hello, err := wire.Encode(wire.KindHello, wire.Hello{Name: myName})
	if err != nil {
		return err
	}
	if err := wire.WriteFrame(conn, hello); err != nil {
		return err
	}

	frame, err := wire.ReadFrame(conn)
	if err != nil {
		return err
	}
	env, err := wire.Decode(frame)
	if err != nil {
		return err
	}
	if env.Kind != wire.KindHelloAck {
		return apperr.InvalidArgument("expected hello_ack from peer")
	}
	return nil
}

func toDispatchPayload(req executor.ExecRequest) wire.DispatchPayload {
	return wire.DispatchPayload{
		Nodes:     req.Nodes,
		Path:      req.Path,
		Segments:  req.Segments,
		Operation: string(req.Operation),
		Input:     req.Input,
		Route:     routeToDescriptor(req.Route),
	}
}

func routeToDescriptor(route schema.Route) wire.RouteDescriptor {
	switch r := route.(type) {
	case schema.FixedRoute:
		return wire.RouteDescriptor{Kind: "fixed", Handler: r.Handler}
	case schema.PluginRoute:
		return wire.RouteDescriptor{Kind: "plugin_route", PluginAttrs: r.PluginAttrs, Default: r.Default}
	case schema.PluginCollection:
		return wire.RouteDescriptor{Kind: "plugin_collection", PluginAttrs: r.PluginAttrs, Default: r.Default}
	case schema.Opaque:
		return wire.RouteDescriptor{Kind: "opaque"}
	default:
		return wire.RouteDescriptor{Kind: "fixed"}
	}
}

func descriptorToRoute(d wire.RouteDescriptor) schema.Route {
	switch d.Kind {
	case "fixed":
		return schema.FixedRoute{Handler: d.Handler}
	case "plugin_route":
		return schema.PluginRoute{PluginAttrs: d.PluginAttrs, Default: d.Default}
	case "plugin_collection":
		return schema.PluginCollection{PluginAttrs: d.PluginAttrs, Default: d.Default}
	default:
		return schema.Opaque{}
	}
}

func fromResultPayload(rp wire.ResultPayload) plugin.Result {
	result := plugin.Result{Node: rp.Node}
	if rp.Err != "" {
		result.Err = apperr.TargetResourceUnavailable(rp.Err)
		return result
	}
	if len(rp.Value) > 0 {
		var v any
		if err := json.Unmarshal(rp.Value, &v); err == nil {
			result.Value = v
		}
	}
	return result
}

func toResultPayload(r plugin.Result) wire.ResultPayload {
	rp := wire.ResultPayload{Node: r.Node}
	if r.Err != nil {
		rp.Err = r.Err.Error()
		return rp
	}
	raw, err := json.Marshal(r.Value)
	if err == nil {
		rp.Value = raw
	}
	return rp
}
