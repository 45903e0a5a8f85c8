package intercept

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the interception pipeline.
var (
	interceptRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intercept_requests_total",
		Help: "Total intercepted requests by outcome",
	}, []string{"outcome"}) // blocked-by-client, continue, hit, fetched, failed, connection-failed

	interceptHandleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "intercept_handle_duration_seconds",
		Help:    "Time from interception to terminal instruction by outcome",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 20},
	}, []string{"outcome"})
)
