package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTier is the shared tier backed by Redis. Each entry is a hash under
// httpcache:data:<url> with a native key expiry equal to the entry TTL.
type RedisTier struct {
	redis redis.Cmdable
}

// NewRedisTier creates a shared tier on top of a Redis client.
func NewRedisTier(redisClient redis.Cmdable) *RedisTier {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisTier{
		redis: redisClient,
	}
}

// Get retrieves the entry stored under key.
// Returns ErrCacheMiss if the hash doesn't exist (never written or expired).
func (r *RedisTier) Get(ctx context.Context, key Key) (*Entry, error) {
	fields, err := r.redis.HGetAll(ctx, key.DataKey()).Result()
	if err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrCacheMiss
	}

	entry, err := decodeFields(fields)
	if err != nil {
		CacheErrors.WithLabelValues("decode").Inc()
		return nil, err
	}
	return entry, nil
}

// Set writes the entry fields and the key expiry in one round trip.
// Concurrent writers to the same key are not isolated: the last one wins.
func (r *RedisTier) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	fields, err := encodeFields(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return err
	}

	dataKey := key.DataKey()
	pipe := r.redis.Pipeline()
	pipe.HSet(ctx, dataKey, fields)
	pipe.Expire(ctx, dataKey, entry.TTL.Truncate(time.Second))
	if _, err := pipe.Exec(ctx); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis hset/expire: %w", err)
	}
	return nil
}

// SetETag stores the last-seen ETag for key with no expiry.
func (r *RedisTier) SetETag(ctx context.Context, key Key, etag string) error {
	if err := r.redis.Set(ctx, key.ETagKey(), etag, 0).Err(); err != nil {
		CacheErrors.WithLabelValues("set_etag").Inc()
		return fmt.Errorf("redis set etag: %w", err)
	}
	return nil
}
