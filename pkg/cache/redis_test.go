package cache

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/intercept-cache/internal/testutil"
)

func TestNewRedisTier_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisTier should panic with nil redis client")
		}
	}()
	NewRedisTier(nil)
}

func TestRedisTier_SetAndGet(t *testing.T) {
	mr, client := testutil.NewMiniRedis(t)
	tier := NewRedisTier(client)
	ctx := context.Background()
	key := KeyFromURL("https://example.com/")

	entry := &Entry{
		StatusCode:  200,
		Header:      http.Header{"Content-Type": []string{"text/html"}, "Cache-Control": []string{"max-age=60"}},
		ContentType: "text/html",
		Body:        []byte("hello"),
		TTL:         60 * time.Second,
		SavedAt:     time.Now(),
	}

	if err := tier.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if ttl := mr.TTL(key.DataKey()); ttl != 60*time.Second {
		t.Errorf("native expiry = %v, want 60s", ttl)
	}

	retrieved, err := tier.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(retrieved.Body) != "hello" {
		t.Errorf("Body mismatch: got %s, want hello", retrieved.Body)
	}
	if retrieved.StatusCode != 200 {
		t.Errorf("StatusCode mismatch: got %d, want 200", retrieved.StatusCode)
	}
	if retrieved.Header.Get("Cache-Control") != "max-age=60" {
		t.Errorf("Header mismatch: got %v", retrieved.Header)
	}
}

func TestRedisTier_Get_CacheMiss(t *testing.T) {
	_, client := testutil.NewMiniRedis(t)
	tier := NewRedisTier(client)

	_, err := tier.Get(context.Background(), KeyFromURL("https://example.com/nope"))
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestRedisTier_Get_Expired(t *testing.T) {
	mr, client := testutil.NewMiniRedis(t)
	tier := NewRedisTier(client)
	ctx := context.Background()
	key := KeyFromURL("https://example.com/")

	entry := &Entry{StatusCode: 200, Body: []byte("x"), TTL: 5 * time.Second, SavedAt: time.Now()}
	if err := tier.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	mr.FastForward(6 * time.Second)

	if _, err := tier.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after expiry, got %v", err)
	}
}

func TestRedisTier_SetETag(t *testing.T) {
	mr, client := testutil.NewMiniRedis(t)
	tier := NewRedisTier(client)
	key := KeyFromURL("https://example.com/app.js")

	if err := tier.SetETag(context.Background(), key, `"abc123"`); err != nil {
		t.Fatalf("SetETag failed: %v", err)
	}

	got, err := mr.Get(key.ETagKey())
	if err != nil {
		t.Fatalf("etag key missing: %v", err)
	}
	if got != `"abc123"` {
		t.Errorf("etag = %q, want %q", got, `"abc123"`)
	}
	if ttl := mr.TTL(key.ETagKey()); ttl != 0 {
		t.Errorf("etag key expiry = %v, want none", ttl)
	}
}

func TestRedisTier_Get_Corrupted(t *testing.T) {
	mr, client := testutil.NewMiniRedis(t)
	tier := NewRedisTier(client)
	key := KeyFromURL("https://example.com/")

	mr.HSet(key.DataKey(), "status", "not-a-number")

	if _, err := tier.Get(context.Background(), key); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry, got %v", err)
	}
}

func TestRedisTier_Unavailable(t *testing.T) {
	mr, client := testutil.NewMiniRedis(t)
	tier := NewRedisTier(client)
	mr.Close()

	ctx := context.Background()
	key := KeyFromURL("https://example.com/")

	_, err := tier.Get(ctx, key)
	if err == nil || errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() error = %v, want a read failure", err)
	}
	if err := tier.Set(ctx, key, &Entry{StatusCode: 200, TTL: time.Minute}); err == nil {
		t.Error("Set() should fail when redis is down")
	}
}
