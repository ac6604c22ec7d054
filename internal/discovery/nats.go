package discovery

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/clusterhub/clustercore/internal/configmanager"
	apperr "github.com/clusterhub/clustercore/internal/errors"
	"github.com/clusterhub/clustercore/internal/logger"
	"github.com/clusterhub/clustercore/internal/plugin"
)

// Config mirrors the teacher's events.Config shape: a URL and optional
// credentials, with an empty URL meaning "disabled" rather than an
// error (teacher's internal/events/subscriber.go NewSubscriber).
type Config struct {
	URL      string
	User     string
	Password string
}

const (
	// SubjectNodeDetected is published whenever a probe observes a node
	// that configmanager has no record of yet.
	SubjectNodeDetected = "discovery.node.detected"
	// SubjectNodeManaged is published once an operator adopts a
	// detected node into configmanager, so discovery can stop tracking
	// it as "new".
	SubjectNodeManaged = "discovery.node.managed"
)

// NATSDiscovery is the reference Handler implementation: a NATS
// subscriber that accumulates detected-but-unmanaged nodes in memory
// and answers discovery/detected requests from that cache. Connection
// setup follows the teacher's subscriber options (reconnect wait,
// bounded reconnect attempts, named connection) almost verbatim.
type NATSDiscovery struct {
	conn    *nats.Conn
	sub     *nats.Subscription
	managed *nats.Subscription
	enabled bool

	mu       sync.RWMutex
	detected map[string]DetectedNode
}

// NewNATSDiscovery connects to NATS and starts tracking detected nodes.
// An empty cfg.URL disables discovery rather than erroring, matching
// the teacher's "event subscription disabled" degrade path.
func NewNATSDiscovery(cfg Config) (*NATSDiscovery, error) {
	log := logger.Discovery()

	if cfg.URL == "" {
		log.Warn().Msg("discovery NATS URL not configured, discovery disabled")
		return &NATSDiscovery{enabled: false, detected: map[string]DetectedNode{}}, nil
	}

	opts := []nats.Option{
		nats.Name("clustercore-discovery"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("discovery NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("discovery NATS reconnected")
		}),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		log.Warn().Err(err).Str("url", cfg.URL).Msg("failed to connect discovery to NATS, discovery disabled")
		return &NATSDiscovery{enabled: false, detected: map[string]DetectedNode{}}, nil
	}

	d := &NATSDiscovery{conn: conn, enabled: true, detected: map[string]DetectedNode{}}

	d.sub, err = conn.Subscribe(SubjectNodeDetected, d.handleDetected)
	if err != nil {
		conn.Close()
		return nil, apperr.Wrap(apperr.ErrCodeInternalServer, "failed to subscribe to discovery.node.detected", err)
	}
	d.managed, err = conn.Subscribe(SubjectNodeManaged, d.handleManaged)
	if err != nil {
		d.sub.Unsubscribe()
		conn.Close()
		return nil, apperr.Wrap(apperr.ErrCodeInternalServer, "failed to subscribe to discovery.node.managed", err)
	}

	log.Info().Str("url", conn.ConnectedUrl()).Msg("discovery connected to NATS")
	return d, nil
}

func (d *NATSDiscovery) handleDetected(msg *nats.Msg) {
	var node DetectedNode
	if err := json.Unmarshal(msg.Data, &node); err != nil {
		logger.Discovery().Warn().Err(err).Msg("failed to unmarshal detected-node event")
		return
	}
	d.mu.Lock()
	d.detected[node.Name] = node
	d.mu.Unlock()
}

func (d *NATSDiscovery) handleManaged(msg *nats.Msg) {
	var node DetectedNode
	if err := json.Unmarshal(msg.Data, &node); err != nil {
		return
	}
	d.mu.Lock()
	delete(d.detected, node.Name)
	d.mu.Unlock()
}

// HandleAPIRequest answers discovery/detected requests from the
// in-memory cache NATS events have populated. It recognizes only the
// "detected" collection — the single live path core.py's discovery
// module exposes (SPEC_FULL.md §D.3). Any other path component returns
// NotFound rather than silently no-opping, since nothing in core.py
// gives meaning to other discovery sub-paths.
func (d *NATSDiscovery) HandleAPIRequest(ctx context.Context, mgr configmanager.Manager, input []byte, operation plugin.Operation, pathComponents []string) (any, error) {
	if len(pathComponents) == 0 || pathComponents[0] != "detected" {
		return nil, apperr.NotFound("discovery path")
	}
	if operation != plugin.Retrieve {
		return nil, apperr.NotImplemented("discovery " + string(operation))
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	nodes := make([]DetectedNode, 0, len(d.detected))
	for _, n := range d.detected {
		nodes = append(nodes, n)
	}
	return map[string]any{"nodes": nodes}, nil
}

// Close unsubscribes and closes the underlying NATS connection.
func (d *NATSDiscovery) Close() {
	if !d.enabled {
		return
	}
	if d.sub != nil {
		d.sub.Unsubscribe()
	}
	if d.managed != nil {
		d.managed.Unsubscribe()
	}
	d.conn.Drain()
	d.conn.Close()
}

// Enabled reports whether discovery successfully connected to NATS.
func (d *NATSDiscovery) Enabled() bool {
	return d.enabled
}
