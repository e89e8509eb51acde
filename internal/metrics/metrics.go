package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheOperations counts facade operations by op (get|set|remove|exists) and result
	// (hit|miss|expired|ok|error|...).
	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cachier_cache_operations_total",
			Help: "Total number of cache facade operations",
		},
		[]string{"op", "result"},
	)

	// Evictions counts expired entries removed lazily on read.
	Evictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cachier_cache_lazy_evictions_total",
			Help: "Expired entries removed on read",
		},
	)

	// StoreRequests counts requests answered by the store daemon by op and
	// result (ok|error).
	StoreRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cachier_store_requests_total",
			Help: "Total number of store daemon requests",
		},
		[]string{"op", "result"},
	)

	// WebFetchLatency measures uncached page fetches.
	WebFetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cachier_web_fetch_seconds",
			Help:    "Latency of uncached web fetches and searches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

// RecordCache increments the cache operation counter.
func RecordCache(op, result string) {
	CacheOperations.WithLabelValues(op, result).Inc()
}

// RecordStore increments the daemon request counter.
func RecordStore(op string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	StoreRequests.WithLabelValues(op, result).Inc()
}
