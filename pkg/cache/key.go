package cache

// Redis key prefixes for the shared tier.
const (
	RedisKeyDataPrefix = "httpcache:data:"
	RedisKeyETagPrefix = "httpcache:etag:"
)

// Key identifies a cached response. It is the request's absolute URL used
// verbatim: no normalization of query order, trailing slash, case or fragment.
// Two URLs that differ in any byte are distinct keys, so lookups may miss but
// never return a response for a different URL.
type Key string

// KeyFromURL returns the cache key for an absolute request URL.
func KeyFromURL(rawURL string) Key {
	return Key(rawURL)
}

// String returns the URL the key was built from.
func (k Key) String() string {
	return string(k)
}

// DataKey returns the Redis hash key holding the cached response.
//
// Example:
//
//	httpcache:data:https://example.com/app.js?v=2
func (k Key) DataKey() string {
	return RedisKeyDataPrefix + string(k)
}

// ETagKey returns the Redis string key holding the last-seen ETag.
func (k Key) ETagKey() string {
	return RedisKeyETagPrefix + string(k)
}
