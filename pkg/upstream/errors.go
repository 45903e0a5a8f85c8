package upstream

import (
	"fmt"
)

// FailureKind classifies a fetch that produced no usable response.
type FailureKind string

const (
	// KindConnectionFailed means no HTTP response was obtained at all
	// (DNS failure, refused or reset connection, timeout before headers).
	KindConnectionFailed FailureKind = "connection-failed"

	// KindFailed means the client layer failed even though a response
	// existed (redirect limit hit, body broke off mid-stream).
	KindFailed FailureKind = "failed"
)

// TransportError is returned by Fetch for every failure. HTTP status codes
// never produce one: 4xx and 5xx responses are successful fetches.
type TransportError struct {
	Kind       FailureKind
	URL        string
	StatusCode int // status of the response that existed, 0 for KindConnectionFailed
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s (status %d) for %s: %v", e.Kind, e.StatusCode, e.URL, e.Err)
	}
	return fmt.Sprintf("upstream %s for %s: %v", e.Kind, e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}
