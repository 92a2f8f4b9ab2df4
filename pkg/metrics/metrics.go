package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_op_duration_seconds",
			Help:    "Document store operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "collection"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	CascadeDeleteCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cascade_delete_count",
			Help: "Total number of documents removed by cascade deletes",
		},
		[]string{"collection"},
	)

	SnapshotDeliveredCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_delivered_count",
			Help: "Total number of live snapshots delivered to subscribers",
		},
		[]string{"collection"},
	)

	ChangeEventCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "change_event_count",
			Help: "Total number of change events published",
		},
		[]string{"collection", "status"}, // status: success, failed
	)
)

func RecordStoreOp(operation, collection string, duration time.Duration) {
	StoreOpDuration.WithLabelValues(operation, collection).Observe(duration.Seconds())
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func AddCascadeDeletes(collection string, n int) {
	CascadeDeleteCount.WithLabelValues(collection).Add(float64(n))
}

func IncrementSnapshotDelivered(collection string) {
	SnapshotDeliveredCount.WithLabelValues(collection).Inc()
}

func IncrementChangeEvent(collection, status string) {
	ChangeEventCount.WithLabelValues(collection, status).Inc()
}
