package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search index Prometheus metrics.
var (
	IndexOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seshat",
			Name:      "index_ops_total",
			Help:      "Total number of search index operations",
		},
		[]string{"namespace", "op", "status"}, // op: add / remove / query
	)

	IndexQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "seshat",
			Name:      "index_query_duration_seconds",
			Help:      "Search index query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"namespace"},
	)

	IndexSyncDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seshat",
			Name:      "index_sync_dropped_total",
			Help:      "Index writes lost after a successful commit",
		},
		[]string{"namespace"},
	)

	IndexReindexedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seshat",
			Name:      "index_reindexed_total",
			Help:      "Rows re-added by full reindex sweeps",
		},
		[]string{"namespace"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(IndexOpsTotal)
	prometheus.MustRegister(IndexQueryDuration)
	prometheus.MustRegister(IndexSyncDroppedTotal)
	prometheus.MustRegister(IndexReindexedTotal)
	searchMetricsRegistered = true
}
