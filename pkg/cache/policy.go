package cache

import (
	"net/http"
	"time"
)

// DefaultTTL applies when a cacheable response carries no max-age,
// including responses whose only cacheability signal is an ETag.
const DefaultTTL = 30 * 24 * time.Hour

// Decision is the storage verdict for one response.
type Decision struct {
	// Store is false when the response must not be cached
	Store bool

	// TTL is how long the entry stays live
	TTL time.Duration

	// Tier is where the entry goes
	Tier Tier

	// ETag is the response ETag, recorded alongside the entry when non-empty
	ETag string
}

// Decide applies the caching policy to response headers:
//
//   - a no-store directive, even in an otherwise malformed header: don't store
//   - no usable directives and no ETag: don't store
//   - TTL is max-age when present, DefaultTTL otherwise
//   - private responses stay in the ephemeral tier, the rest go to the shared tier
func Decide(header http.Header) Decision {
	values := header.Values("Cache-Control")
	if ForbidsStorage(values) {
		return Decision{Store: false}
	}

	cc, hasDirectives := ParseCacheControl(values)
	etag := header.Get("ETag")

	if !hasDirectives && etag == "" {
		return Decision{Store: false}
	}

	ttl := DefaultTTL
	if maxAge, ok := cc.MaxAge(); ok {
		ttl = maxAge
	}

	tier := TierShared
	if cc.Has("private") {
		tier = TierEphemeral
	}

	return Decision{
		Store: true,
		TTL:   ttl,
		Tier:  tier,
		ETag:  etag,
	}
}
