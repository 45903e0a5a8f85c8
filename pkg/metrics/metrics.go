// Package metrics exposes the Prometheus registry the proxy serves on its
// admin endpoint. Metrics themselves live in the packages that record them
// (cache, upstream, intercept) and register through promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all promauto metrics land in.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the source the admin endpoint scrapes.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registered metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - httpcache_hits_total{tier} (Counter): Lookups answered by the ephemeral or shared tier
//   - httpcache_misses_total (Counter): Lookups that found nothing live
//   - httpcache_stores_total{tier} (Counter): Responses written
//   - httpcache_stored_bytes_total{tier} (Counter): Body bytes written
//   - httpcache_etags_recorded_total{tier} (Counter): ETag records written
//   - httpcache_evictions_total (Counter): Expired ephemeral entries dropped on read
//   - httpcache_errors_total{operation} (Counter): Shared tier failures (get, set, set_etag, decode)
//
// Upstream Metrics (pkg/upstream):
//   - upstream_fetches_total{status_class} (Counter): Fetches that produced a response
//   - upstream_fetch_errors_total{kind} (Counter): failed / connection-failed
//   - upstream_fetch_duration_seconds{navigation} (Histogram): Fetch duration including body
//   - upstream_response_bytes (Histogram): Buffered body sizes
//
// Pipeline Metrics (pkg/intercept):
//   - intercept_requests_total{outcome} (Counter): blocked-by-client, continue, hit, fetched, failed, connection-failed
//   - intercept_handle_duration_seconds{outcome} (Histogram): Time to terminal instruction
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(httpcache_hits_total[5m])) /
//   (sum(rate(httpcache_hits_total[5m])) + sum(rate(httpcache_misses_total[5m])))
//
//   # Shared tier health
//   rate(httpcache_errors_total[5m]) > 0
//
//   # P95 upstream latency for navigations
//   histogram_quantile(0.95, rate(upstream_fetch_duration_seconds_bucket{navigation="true"}[5m]))
