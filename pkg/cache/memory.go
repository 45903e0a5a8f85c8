package cache

import (
	"sync"
	"time"
)

// MemoryTier is the ephemeral, process-local tier. It lives exactly as long as
// its owner and never evicts in the background: expired entries are dropped
// when a read finds them.
type MemoryTier struct {
	mu      sync.Mutex
	entries map[Key]*Entry
	etags   map[Key]string
	now     func() time.Time
}

// MemoryOption configures a MemoryTier.
type MemoryOption func(*MemoryTier)

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryTier) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemoryTier creates an empty ephemeral tier.
func NewMemoryTier(opts ...MemoryOption) *MemoryTier {
	m := &MemoryTier{
		entries: make(map[Key]*Entry),
		etags:   make(map[Key]string),
		now:     time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Get returns a copy of the live entry for key. An expired entry is removed
// and reported as absent.
func (m *MemoryTier) Get(key Key) (*Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if entry.IsExpiredAt(m.now()) {
		delete(m.entries, key)
		CacheEvictions.Inc()
		return nil, false
	}
	return entry.Clone(), true
}

// Set stores a copy of entry, replacing whatever was there.
func (m *MemoryTier) Set(key Key, entry *Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry.Clone()
}

// SetETag records the last-seen ETag for key.
func (m *MemoryTier) SetETag(key Key, etag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.etags[key] = etag
}

// ETag returns the recorded ETag for key. The pipeline never reads ETags;
// this exists for inspection.
func (m *MemoryTier) ETag(key Key) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	etag, ok := m.etags[key]
	return etag, ok
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryTier) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
