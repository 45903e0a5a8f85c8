// Package cache provides the two-tier HTTP response cache used by the
// interception pipeline.
//
// The cache is split into:
//
// - An ephemeral tier (MemoryTier) owned by one pipeline instance, with lazy
// expiry checked on read
// - A shared tier (RedisTier) backed by Redis, using native key expiry
// - A caching policy (Decide) derived from Cache-Control and ETag headers
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create tiered store
//	store := cache.NewStore(cache.NewMemoryTier(), cache.NewRedisTier(redisClient))
//
//	// Look up a URL
//	key := cache.KeyFromURL("https://example.com/app.js")
//	entry, tier, err := store.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// Cache miss - fetch upstream
//	}
//
// # Storing Responses
//
//	entry := cache.NewEntry(resp.StatusCode, resp.Header, body, time.Now())
//	decision := cache.Decide(resp.Header)
//	if decision.Store {
//		entry.TTL = decision.TTL
//		if err := store.Put(ctx, key, entry, decision.Tier); err != nil {
//			return err
//		}
//	}
//
// # Policy
//
//   - No Cache-Control directives and no ETag: not stored
//   - Cache-Control: no-store: not stored, even with an ETag
//   - TTL is max-age, or DefaultTTL (30 days) when absent
//   - Cache-Control: private: ephemeral tier, otherwise shared tier
//
// ETags are recorded under httpcache:etag:<url> but never read back; there is
// no conditional revalidation.
//
// # Redis Layout
//
//	httpcache:data:<url>   hash: status, headers, content-type, body, body-encoding, ttl, saved-at
//	httpcache:etag:<url>   string, no expiry
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - httpcache_hits_total{tier} - Cache hits
//   - httpcache_misses_total - Cache misses
//   - httpcache_stores_total{tier} - Entries written
//   - httpcache_stored_bytes_total{tier} - Body bytes written
//   - httpcache_etags_recorded_total{tier} - ETag records written
//   - httpcache_evictions_total - Expired ephemeral entries dropped on read
//   - httpcache_errors_total{operation} - Cache operation errors
package cache
