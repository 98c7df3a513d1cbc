package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts handled requests by route template and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doctrack_http_requests_total",
		Help: "Total HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "doctrack_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// CollectionPushes counts accepted replace-all writes.
	CollectionPushes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doctrack_collection_pushes_total",
		Help: "Total replace-all document pushes accepted",
	})

	Documents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "doctrack_documents",
		Help: "Documents in the shared collection after the last write",
	})

	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "doctrack_websocket_connections",
		Help: "Active WebSocket subscribers",
	})

	// WebSocketDrops counts notifications dropped for slow subscribers.
	WebSocketDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doctrack_websocket_drops_total",
		Help: "Notifications dropped because a subscriber send buffer was full",
	})

	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doctrack_auth_events_total",
		Help: "Authentication events by kind and outcome",
	}, []string{"event", "outcome"})
)
