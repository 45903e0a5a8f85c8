// Package intercept decides, for every request a browser session sends out,
// whether to block it, let the browser handle it, answer it from cache, or
// fetch it upstream and cache the result.
package intercept

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/intercept-cache/pkg/cache"
	"github.com/Sternrassler/intercept-cache/pkg/upstream"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Fetcher performs the upstream call for a cache miss.
// *upstream.Fetcher is the production implementation.
type Fetcher interface {
	Fetch(ctx context.Context, req upstream.Request) (*upstream.Response, error)
}

// Config holds the pipeline collaborators.
type Config struct {
	// Shared is the persistent tier. Nil runs the pipeline ephemeral-only.
	Shared cache.SharedTier

	// Fetcher defaults to an upstream.Fetcher with its own cookie jar.
	Fetcher Fetcher

	// Logger defaults to the global logger tagged component=intercept.
	Logger *zerolog.Logger

	// Clock defaults to time.Now. It stamps and expires ephemeral entries.
	Clock func() time.Time
}

// Pipeline handles intercepted requests. The ephemeral tier and the cookie
// jar belong to one Pipeline and live as long as it does. Handle is safe for
// concurrent use; concurrent misses for the same URL each fetch, and the last
// cache write wins.
type Pipeline struct {
	store   *cache.Store
	fetcher Fetcher
	now     func() time.Time
	logger  zerolog.Logger
}

// New creates a pipeline with a fresh ephemeral tier.
func New(cfg Config) (*Pipeline, error) {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	logger := log.With().Str("component", "intercept").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	fetcher := cfg.Fetcher
	if fetcher == nil {
		f, err := upstream.NewFetcher(upstream.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("create upstream fetcher: %w", err)
		}
		fetcher = f
	}

	return &Pipeline{
		store:   cache.NewStore(cache.NewMemoryTier(cache.WithClock(now)), cfg.Shared),
		fetcher: fetcher,
		now:     now,
		logger:  logger,
	}, nil
}

// Store returns the tiered cache used by the pipeline.
func (p *Pipeline) Store() *cache.Store {
	return p.store
}

// Handle produces exactly one terminal instruction for req.
func (p *Pipeline) Handle(ctx context.Context, req *Request) Instruction {
	start := time.Now()

	var in Instruction
	decision := p.Decide(ctx, req)
	switch decision.Kind {
	case DecisionBlock:
		in = Abort(decision.Reason)
	case DecisionPassthrough:
		in = Continue()
	case DecisionFulfill:
		p.logger.Debug().
			Str("url", req.URL).
			Str("tier", string(decision.Tier)).
			Dur("remaining", decision.Entry.Remaining(p.now())).
			Msg("Getting from cache")
		in = fulfillFromCache(decision.Entry, decision.Tier)
	default:
		in = p.fetchAndCache(ctx, req)
	}

	outcome := in.Outcome()
	interceptRequestsTotal.WithLabelValues(outcome).Inc()
	interceptHandleDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	return in
}

// Decide classifies req and consults the cache. It never touches the network
// beyond the shared tier read.
func (p *Pipeline) Decide(ctx context.Context, req *Request) Decision {
	if isBlocked(req.ResourceType) {
		return Decision{Kind: DecisionBlock, Reason: ReasonBlockedByClient}
	}
	if isPassthrough(req.URL) {
		return Decision{Kind: DecisionPassthrough}
	}

	p.logger.Debug().Str("url", req.URL).Msg("Searching cache")

	entry, tier, err := p.store.Get(ctx, cache.KeyFromURL(req.URL))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			p.logger.Warn().Err(err).Str("url", req.URL).Msg("Cache read failed, treating as miss")
		}
		return Decision{Kind: DecisionFetch}
	}

	return Decision{Kind: DecisionFulfill, Entry: entry, Tier: tier}
}

func (p *Pipeline) fetchAndCache(ctx context.Context, req *Request) Instruction {
	resp, err := p.fetcher.Fetch(ctx, upstream.Request{
		Method:     req.Method,
		URL:        req.URL,
		Header:     upstream.BuildHeaders(req.Header, req.Navigation),
		Body:       req.Body,
		Navigation: req.Navigation,
	})
	if err != nil {
		return p.abortFor(req, err)
	}
	if resp.FinalURL != "" && resp.FinalURL != req.URL {
		p.logger.Debug().Str("url", req.URL).Str("final_url", resp.FinalURL).Msg("Followed redirects")
	}

	entry := cache.NewEntry(resp.StatusCode, resp.Header, resp.Body, p.now())
	p.cacheResponse(ctx, req, entry)

	return Fulfill(entry)
}

// cacheResponse stores entry per the caching policy. Failures are logged and
// swallowed: the fetched response is delivered either way.
func (p *Pipeline) cacheResponse(ctx context.Context, req *Request, entry *cache.Entry) {
	decision := cache.Decide(entry.Header)
	if !decision.Store {
		return
	}

	key := cache.KeyFromURL(req.URL)
	entry.TTL = decision.TTL

	p.logger.Info().
		Str("url", req.URL).
		Str("tier", string(p.store.Resolve(decision.Tier))).
		Int64("ttl_seconds", int64(decision.TTL/time.Second)).
		Msg("Caching response")

	if err := p.store.Put(ctx, key, entry, decision.Tier); err != nil {
		p.logger.Warn().Err(err).Str("url", req.URL).Msg("Failed to cache response")
		return
	}

	if decision.ETag != "" {
		if err := p.store.PutETag(ctx, key, decision.ETag, decision.Tier); err != nil {
			p.logger.Warn().Err(err).Str("url", req.URL).Msg("Failed to record etag")
		}
	}
}

func (p *Pipeline) abortFor(req *Request, err error) Instruction {
	reason := ReasonConnectionFailed
	status := 0

	var te *upstream.TransportError
	if errors.As(err, &te) {
		status = te.StatusCode
		if te.Kind == upstream.KindFailed {
			reason = ReasonFailed
		}
	}

	p.logger.Error().
		Err(err).
		Str("url", req.URL).
		Int("status", status).
		Str("reason", string(reason)).
		Msg("Upstream request failed")

	return Abort(reason)
}

func isBlocked(rt ResourceType) bool {
	return rt == ResourceImage || rt == ResourceMedia
}

// isPassthrough reports whether the URL uses a scheme the host resolves
// itself without any network access.
func isPassthrough(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.HasPrefix(lower, "data:") || strings.HasPrefix(lower, "about:")
}
