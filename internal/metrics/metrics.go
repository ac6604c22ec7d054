// Package metrics exposes prometheus instrumentation for the dispatch
// core, following the teacher's controller/pkg/metrics package shape —
// package-level CounterVec/HistogramVec instances registered
// once in init(), plus small Record* helper functions so
// callers never touch a *prometheus.Vec directly. Registered against
// prometheus's default registry rather than the teacher's
// controller-runtime one, since client-go/controller-runtime are
// dropped dependencies with no component in this spec (DESIGN.md).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// DispatchRequestsTotal counts Executor.Run calls by operation and
	// result ("ok" or "error").
	DispatchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clustercore_dispatch_requests_total",
			Help: "Total number of dispatch requests by operation and result",
		},
		[]string{"operation", "result"},
	)

	// DispatchDuration tracks how long a full Run (every worker
	// group, local and remote) took to complete.
	DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clustercore_dispatch_duration_seconds",
			Help:    "Duration of a full dispatch fan-out/fan-in cycle",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// HandlerNodesTotal counts how many nodes were routed to each
	// plugin handler, useful for spotting a misconfigured Default.
	HandlerNodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clustercore_handler_nodes_total",
			Help: "Total number of nodes dispatched to each handler",
		},
		[]string{"handler"},
	)

	// QuorumBlockedTotal counts requests the quorum gate refused
	// before a worker was ever spawned.
	QuorumBlockedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clustercore_quorum_blocked_total",
			Help: "Total number of requests blocked by the collective quorum gate",
		},
		[]string{"handler"},
	)

	// CollectiveDispatchTotal counts peer forwards by outcome.
	CollectiveDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clustercore_collective_dispatch_total",
			Help: "Total number of collective peer forwards by outcome",
		},
		[]string{"peer", "result"},
	)

	// CollectiveDispatchDuration tracks how long a single peer forward
	// took from dialing to sending the dispatch request (or failing);
	// streaming the peer's results back is not included.
	CollectiveDispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clustercore_collective_dispatch_duration_seconds",
			Help:    "Duration of a single collective peer forward",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"peer"},
	)
)

func init() {
	prometheus.MustRegister(
		DispatchRequestsTotal,
		DispatchDuration,
		HandlerNodesTotal,
		QuorumBlockedTotal,
		CollectiveDispatchTotal,
		CollectiveDispatchDuration,
	)
}

// RecordDispatch records one completed Run() call.
func RecordDispatch(operation, result string, durationSeconds float64) {
	DispatchRequestsTotal.WithLabelValues(operation, result).Inc()
	DispatchDuration.WithLabelValues(operation).Observe(durationSeconds)
}

// RecordHandlerNodes records how many nodes a handler group serviced.
func RecordHandlerNodes(handler string, count int) {
	HandlerNodesTotal.WithLabelValues(handler).Add(float64(count))
}

// RecordQuorumBlocked records a quorum-gate refusal for handler.
func RecordQuorumBlocked(handler string) {
	QuorumBlockedTotal.WithLabelValues(handler).Inc()
}

// RecordCollectiveDispatch records the outcome and latency of one
// collective peer forward.
func RecordCollectiveDispatch(peer, result string, durationSeconds float64) {
	CollectiveDispatchTotal.WithLabelValues(peer, result).Inc()
	CollectiveDispatchDuration.WithLabelValues(peer).Observe(durationSeconds)
}
