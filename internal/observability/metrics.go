package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by command.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filesharing_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "filesharing_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// FileUploadsTotal counts upload attempts by outcome.
	FileUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filesharing_file_uploads_total",
		Help: "Total number of file uploads by result",
	}, []string{"result"})

	// FileUploadBytes tracks the size of accepted uploads.
	FileUploadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "filesharing_file_upload_bytes",
		Help:    "Size of uploaded files in bytes",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
	})

	// StorageErrorsTotal counts object storage failures by operation.
	StorageErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filesharing_storage_errors_total",
		Help: "Total number of object storage errors by operation",
	}, []string{"operation"})

	// NotificationsFannedOut counts notification rows created by type.
	NotificationsFannedOut = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filesharing_notifications_created_total",
		Help: "Total number of notifications created by type",
	}, []string{"type"})

	// WebSocketConnectionsTotal is the gauge of open notification sockets.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "filesharing_websocket_connections",
		Help: "Number of active notification WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped because a client fell behind.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filesharing_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
