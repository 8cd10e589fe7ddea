package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Webhook ingestion metrics
var (
	// WebhooksReceivedTotal tracks inbound webhook deliveries by outcome.
	WebhooksReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhooks_received_total",
			Help: "Inbound webhook deliveries by outcome (published/ignored/malformed)",
		},
		[]string{"outcome"},
	)

	// WebhooksRateLimitedTotal tracks webhook deliveries rejected by the rate limiter.
	WebhooksRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webhooks_rate_limited_total",
			Help: "Webhook deliveries rejected by the rate limiter",
		},
	)
)

// Hub metrics
var (
	// HubActiveCollections tracks collections with at least one subscriber.
	HubActiveCollections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_active_collections",
			Help: "Collections with at least one subscribed client",
		},
	)

	// HubConnectedClients tracks connected websocket clients across all collections.
	HubConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_clients_total",
			Help: "Connected websocket clients across all collections",
		},
	)

	// HubBroadcastsTotal tracks events fanned out, labelled by message type.
	HubBroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_broadcasts_total",
			Help: "Events fanned out to subscribers by message type",
		},
		[]string{"type"},
	)

	// HubSlowClientsEvicted tracks clients dropped because their send buffer filled.
	HubSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_slow_clients_evicted_total",
			Help: "Websocket clients evicted because their send buffer was full",
		},
	)

	// HubCommandChannelDepth tracks the current hub command channel depth.
	HubCommandChannelDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_command_channel_depth",
			Help: "Current hub command channel depth",
		},
	)
)

// Upstream API metrics
var (
	// UpstreamRequestsTotal tracks EventMobi API calls by operation and status.
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "EventMobi API requests by operation and status",
		},
		[]string{"operation", "status"},
	)

	// UpstreamRequestDuration tracks EventMobi API latency in seconds.
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "EventMobi API request duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	// UpstreamBreakerState tracks the circuit breaker state (0=closed, 1=half-open, 2=open).
	UpstreamBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "upstream_breaker_state",
			Help: "EventMobi circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// CheckinMessageLookupsTotal tracks on-demand check-in message lookups,
	// labelled by whether singleflight coalesced the call.
	CheckinMessageLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_message_lookups_total",
			Help: "Check-in message lookups by result (fetched/shared/error)",
		},
		[]string{"result"},
	)
)
