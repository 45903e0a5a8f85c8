package upstream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for upstream fetches.
var (
	upstreamFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_fetches_total",
		Help: "Total upstream fetches that produced a response, by status class",
	}, []string{"status_class"})

	upstreamFetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_fetch_errors_total",
		Help: "Total upstream fetches that failed, by failure kind",
	}, []string{"kind"})

	upstreamFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_fetch_duration_seconds",
		Help:    "Upstream fetch duration including body download",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 20},
	}, []string{"navigation"})

	upstreamResponseBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "upstream_response_bytes",
		Help:    "Size of buffered upstream response bodies",
		Buckets: prometheus.ExponentialBuckets(256, 4, 10),
	})
)
