package cache

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Tier names one of the two backing stores.
type Tier string

const (
	// TierEphemeral is the in-process map owned by one pipeline instance.
	TierEphemeral Tier = "ephemeral"

	// TierShared is the external store shared between instances.
	TierShared Tier = "shared"
)

// SharedTier is the contract the Store needs from the persistent tier.
// RedisTier is the production implementation.
type SharedTier interface {
	Get(ctx context.Context, key Key) (*Entry, error)
	Set(ctx context.Context, key Key, entry *Entry) error
	SetETag(ctx context.Context, key Key, etag string) error
}

// Store combines the ephemeral and shared tiers. Reads consult the ephemeral
// tier first. Writes go to the tier the caller names.
type Store struct {
	memory *MemoryTier
	shared SharedTier
}

// NewStore creates a tiered store. shared may be nil, in which case the store
// runs ephemeral-only and shared-destined writes land in memory.
func NewStore(memory *MemoryTier, shared SharedTier) *Store {
	if memory == nil {
		memory = NewMemoryTier()
	}
	return &Store{
		memory: memory,
		shared: shared,
	}
}

// Memory returns the ephemeral tier.
func (s *Store) Memory() *MemoryTier {
	return s.memory
}

// HasShared reports whether a shared tier is configured.
func (s *Store) HasShared() bool {
	return s.shared != nil
}

// Get returns the live entry for key and the tier that served it.
// Returns ErrCacheMiss when neither tier has it. Any other error comes from the
// shared tier; callers treat it as a miss.
func (s *Store) Get(ctx context.Context, key Key) (*Entry, Tier, error) {
	if entry, ok := s.memory.Get(key); ok {
		CacheHits.WithLabelValues(string(TierEphemeral)).Inc()
		return entry, TierEphemeral, nil
	}

	if s.shared == nil {
		CacheMisses.Inc()
		return nil, "", ErrCacheMiss
	}

	entry, err := s.shared.Get(ctx, key)
	if err != nil {
		CacheMisses.Inc()
		if errors.Is(err, ErrCacheMiss) {
			return nil, "", ErrCacheMiss
		}
		return nil, "", fmt.Errorf("shared tier get: %w", err)
	}

	CacheHits.WithLabelValues(string(TierShared)).Inc()
	return entry, TierShared, nil
}

// Put stores entry in the given tier. Entries with a TTL below one second are
// not stored: they would already be dead on the next read.
func (s *Store) Put(ctx context.Context, key Key, entry *Entry, tier Tier) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	if entry.TTL.Seconds() < 1 {
		return nil
	}

	tier = s.Resolve(tier)
	switch tier {
	case TierEphemeral:
		s.memory.Set(key, entry)
	case TierShared:
		if err := s.shared.Set(ctx, key, entry); err != nil {
			return fmt.Errorf("shared tier set: %w", err)
		}
	default:
		return fmt.Errorf("unknown cache tier %q", tier)
	}

	CacheStores.WithLabelValues(string(tier)).Inc()
	CacheStoredBytes.WithLabelValues(string(tier)).Add(float64(len(entry.Body)))
	return nil
}

// PutETag records the ETag for key alongside an entry stored in tier.
func (s *Store) PutETag(ctx context.Context, key Key, etag string, tier Tier) error {
	tier = s.Resolve(tier)
	switch tier {
	case TierEphemeral:
		s.memory.SetETag(key, etag)
	case TierShared:
		if err := s.shared.SetETag(ctx, key, etag); err != nil {
			return fmt.Errorf("shared tier set etag: %w", err)
		}
	default:
		return fmt.Errorf("unknown cache tier %q", tier)
	}

	ETagsRecorded.WithLabelValues(string(tier)).Inc()
	return nil
}

// Resolve returns the tier a write addressed to tier actually lands in:
// shared writes go to memory when running ephemeral-only.
func (s *Store) Resolve(tier Tier) Tier {
	if tier == TierShared && !s.HasShared() {
		return TierEphemeral
	}
	return tier
}
