// Package metrics exposes goblin's Prometheus instrumentation: router call
// outcomes and latency, registry churn, and backend failure streaks. The
// admin plane's /metrics endpoint serves these via promhttp (component G,
// SPEC_FULL.md §4.7).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RouterCalls counts tool/prompt/resource dispatches by outcome
	// ("ok", "timeout", "backend_unavailable", "unknown_capability",
	// "output_too_large", "error").
	RouterCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "goblin",
		Subsystem: "router",
		Name:      "calls_total",
		Help:      "Total routed capability calls by server, tool, and outcome.",
	}, []string{"server", "tool", "outcome"})

	// RouterCallLatency observes end-to-end dispatch latency.
	RouterCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "goblin",
		Subsystem: "router",
		Name:      "call_latency_seconds",
		Help:      "Latency of routed capability calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"server", "tool"})

	// RouteCacheResult counts route cache hits and misses.
	RouteCacheResult = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "goblin",
		Subsystem: "router",
		Name:      "route_cache_total",
		Help:      "Route cache lookups by result (hit, miss).",
	}, []string{"result"})

	// RegistryChurn counts registry mutations by kind (refreshed, evicted,
	// departed).
	RegistryChurn = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "goblin",
		Subsystem: "registry",
		Name:      "churn_total",
		Help:      "Registry mutations by kind.",
	}, []string{"kind"})

	// BackendFailures counts connect/probe failures per backend.
	BackendFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "goblin",
		Subsystem: "pool",
		Name:      "backend_failures_total",
		Help:      "Backend connect or health-probe failures.",
	}, []string{"server"})

	// SessionNotificationDrops counts notifications dropped because a
	// session's outbound queue was full.
	SessionNotificationDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "goblin",
		Subsystem: "session",
		Name:      "notification_drops_total",
		Help:      "Outbound session notifications dropped due to a full queue.",
	}, []string{"session_id"})
)
