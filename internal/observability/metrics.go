// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Ingestion metrics
	EventsProcessed  *prometheus.CounterVec
	EventsDropped    prometheus.Counter
	DuplicateSkips   prometheus.Counter
	HandlerErrors    *prometheus.CounterVec
	CheckpointSlot   prometheus.Gauge
	SlotsScanned     prometheus.Counter
	SlotsSkipped     prometheus.Counter
	BackfillDuration prometheus.Histogram

	// Live subscription metrics
	WSReconnects    prometheus.Counter
	WSNotifications prometheus.Counter

	// Token lifecycle metrics
	TokensCreated       prometheus.Counter
	MigrationsTriggered prometheus.Counter
	MigrationsFailed    prometheus.Counter

	// Cache and fan-out metrics
	CacheErrors  *prometheus.CounterVec
	EventsEmit   *prometheus.CounterVec
	HolderScans  prometheus.Counter
	HolderErrors prometheus.Counter

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "curve_engine"
	}

	return &Metrics{
		EventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_processed_total",
			Help:      "Total number of domain events processed by kind",
		}, []string{"kind"}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_dropped_total",
			Help:      "Total number of malformed log events dropped",
		}),
		DuplicateSkips: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "duplicate_skips_total",
			Help:      "Total number of already-seen transactions skipped for side effects",
		}),
		HandlerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "handler_errors_total",
			Help:      "Total number of event handler errors by kind",
		}, []string{"kind"}),
		CheckpointSlot: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "checkpoint_slot",
			Help:      "Last fully processed slot",
		}),
		SlotsScanned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "slots_scanned_total",
			Help:      "Total number of slots fetched during backfill",
		}),
		SlotsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "slots_skipped_total",
			Help:      "Total number of slots skipped due to fetch errors",
		}),
		BackfillDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "duration_seconds",
			Help:      "Backfill pass duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket heartbeat reconnects",
		}),
		WSNotifications: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_notifications_total",
			Help:      "Total number of log notifications received",
		}),
		TokensCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "created_total",
			Help:      "Total number of token rows created",
		}),
		MigrationsTriggered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "migrations_triggered_total",
			Help:      "Total number of migrations handed to the migrator",
		}),
		MigrationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "migrations_failed_total",
			Help:      "Total number of migrations that errored",
		}),
		CacheErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "errors_total",
			Help:      "Total number of best-effort cache failures by operation",
		}, []string{"operation"}),
		EventsEmit: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fanout",
			Name:      "events_emitted_total",
			Help:      "Total number of fan-out notifications by event",
		}, []string{"event"}),
		HolderScans: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "holders",
			Name:      "scans_total",
			Help:      "Total number of holder snapshot rebuilds",
		}),
		HolderErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "holders",
			Name:      "errors_total",
			Help:      "Total number of failed holder snapshot rebuilds",
		}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventProcessed increments the processed counter for a kind.
func RecordEventProcessed(kind string) {
	DefaultMetrics.EventsProcessed.WithLabelValues(kind).Inc()
}

// RecordHandlerError increments the handler error counter for a kind.
func RecordHandlerError(kind string) {
	DefaultMetrics.HandlerErrors.WithLabelValues(kind).Inc()
}

// RecordDuplicateSkip increments the duplicate skip counter.
func RecordDuplicateSkip() {
	DefaultMetrics.DuplicateSkips.Inc()
}

// UpdateCheckpointSlot updates the checkpoint gauge.
func UpdateCheckpointSlot(slot int64) {
	DefaultMetrics.CheckpointSlot.Set(float64(slot))
}

// RecordCacheError records a best-effort cache failure.
func RecordCacheError(operation string) {
	DefaultMetrics.CacheErrors.WithLabelValues(operation).Inc()
}

// RecordEmit records one fan-out notification.
func RecordEmit(event string) {
	DefaultMetrics.EventsEmit.WithLabelValues(event).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}
