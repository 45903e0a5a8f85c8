package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Sternrassler/intercept-cache/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

func TestHandler_ServesCacheMetrics(t *testing.T) {
	cache.CacheMisses.Inc()
	cache.CacheHits.WithLabelValues(string(cache.TierShared)).Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{"httpcache_misses_total", `httpcache_hits_total{tier="shared"}`} {
		if !strings.Contains(string(body), name) {
			t.Errorf("Expected metrics output to contain %s", name)
		}
	}
}
