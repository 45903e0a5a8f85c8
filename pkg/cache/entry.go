package cache

import (
	"bytes"
	"net/http"
	"time"
)

// Entry represents a buffered HTTP response held by one of the cache tiers.
type Entry struct {
	// StatusCode is the HTTP status code of the cached response
	StatusCode int

	// Header holds the response headers exactly as received
	Header http.Header

	// ContentType is derived from the Content-Type response header
	ContentType string

	// Body is the raw response body, stored and returned byte-identical
	Body []byte

	// TTL is how long the entry stays live after SavedAt
	TTL time.Duration

	// SavedAt is when we cached this response
	SavedAt time.Time
}

// NewEntry builds an entry from a received response. TTL is left unset until
// the policy decides whether and how long to keep it.
func NewEntry(statusCode int, header http.Header, body []byte, savedAt time.Time) *Entry {
	return &Entry{
		StatusCode:  statusCode,
		Header:      header,
		ContentType: header.Get("Content-Type"),
		Body:        body,
		SavedAt:     savedAt,
	}
}

// ExpiresAt returns when the entry stops being live.
func (e *Entry) ExpiresAt() time.Time {
	return e.SavedAt.Add(e.TTL)
}

// IsExpiredAt reports whether now is past SavedAt + TTL.
func (e *Entry) IsExpiredAt(now time.Time) bool {
	return now.After(e.ExpiresAt())
}

// Remaining returns the time until expiration measured from now.
// Returns 0 if already expired.
func (e *Entry) Remaining(now time.Time) time.Duration {
	ttl := e.ExpiresAt().Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.Header = e.Header.Clone()
	if e.Body != nil {
		c.Body = bytes.Clone(e.Body)
	}
	return &c
}
