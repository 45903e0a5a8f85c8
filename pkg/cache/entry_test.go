package cache

import (
	"bytes"
	"net/http"
	"testing"
	"time"
)

func TestEntry_IsExpiredAt(t *testing.T) {
	savedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ttl  time.Duration
		now  time.Time
		want bool
	}{
		{
			name: "well within ttl",
			ttl:  60 * time.Second,
			now:  savedAt.Add(10 * time.Second),
			want: false,
		},
		{
			name: "exactly at expiry",
			ttl:  60 * time.Second,
			now:  savedAt.Add(60 * time.Second),
			want: false,
		},
		{
			name: "just past expiry",
			ttl:  60 * time.Second,
			now:  savedAt.Add(60*time.Second + time.Millisecond),
			want: true,
		},
		{
			name: "long expired",
			ttl:  time.Second,
			now:  savedAt.Add(time.Hour),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{SavedAt: savedAt, TTL: tt.ttl}
			if got := entry.IsExpiredAt(tt.now); got != tt.want {
				t.Errorf("IsExpiredAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_Remaining(t *testing.T) {
	savedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	entry := &Entry{SavedAt: savedAt, TTL: 5 * time.Minute}

	if got := entry.Remaining(savedAt.Add(time.Minute)); got != 4*time.Minute {
		t.Errorf("Remaining() = %v, want %v", got, 4*time.Minute)
	}
	if got := entry.Remaining(savedAt.Add(time.Hour)); got != 0 {
		t.Errorf("Remaining() after expiry = %v, want 0", got)
	}
}

func TestNewEntry_ContentType(t *testing.T) {
	header := http.Header{"Content-Type": []string{"text/html; charset=utf-8"}}
	entry := NewEntry(200, header, []byte("hello"), time.Now())

	if entry.ContentType != "text/html; charset=utf-8" {
		t.Errorf("ContentType = %q, want %q", entry.ContentType, "text/html; charset=utf-8")
	}
	if entry.TTL != 0 {
		t.Errorf("TTL = %v, want 0 before a policy decision", entry.TTL)
	}
}

func TestEntry_Clone(t *testing.T) {
	original := &Entry{
		StatusCode: 200,
		Header:     http.Header{"X-Test": []string{"a"}},
		Body:       []byte("body"),
	}

	clone := original.Clone()
	clone.Header.Set("X-Test", "b")
	clone.Body[0] = 'B'

	if original.Header.Get("X-Test") != "a" {
		t.Error("Clone shares header map with original")
	}
	if !bytes.Equal(original.Body, []byte("body")) {
		t.Error("Clone shares body slice with original")
	}

	var nilEntry *Entry
	if nilEntry.Clone() != nil {
		t.Error("Clone of nil entry should be nil")
	}
}
