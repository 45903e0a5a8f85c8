package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by tier
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpcache_hits_total",
			Help: "Total number of HTTP cache hits",
		},
		[]string{"tier"}, // "ephemeral", "shared"
	)

	// CacheMisses tracks lookups that found nothing live in either tier
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "httpcache_misses_total",
			Help: "Total number of HTTP cache misses",
		},
	)

	// CacheStores tracks entries written by tier
	CacheStores = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpcache_stores_total",
			Help: "Total number of responses written to the cache",
		},
		[]string{"tier"},
	)

	// CacheStoredBytes tracks body bytes written by tier
	CacheStoredBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpcache_stored_bytes_total",
			Help: "Total response body bytes written to the cache",
		},
		[]string{"tier"},
	)

	// ETagsRecorded tracks write-only ETag records
	ETagsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpcache_etags_recorded_total",
			Help: "Total number of ETag records written",
		},
		[]string{"tier"},
	)

	// CacheEvictions tracks ephemeral entries dropped on read after expiry
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "httpcache_evictions_total",
			Help: "Total number of expired ephemeral entries evicted on read",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpcache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "set_etag", "decode"
	)
)
