package intercept

import (
	"net/http"

	"github.com/Sternrassler/intercept-cache/pkg/cache"
)

// AbortReason is the error code handed to the host with an abort.
type AbortReason string

const (
	// ReasonBlockedByClient is a policy block, not a fault.
	ReasonBlockedByClient AbortReason = "blocked-by-client"

	// ReasonFailed is an HTTP-level failure after a response existed.
	ReasonFailed AbortReason = "failed"

	// ReasonConnectionFailed means no response was obtained.
	ReasonConnectionFailed AbortReason = "connection-failed"
)

// DecisionKind is the classification of a request before any fetch.
type DecisionKind string

const (
	DecisionBlock       DecisionKind = "block"
	DecisionPassthrough DecisionKind = "passthrough"
	DecisionFulfill     DecisionKind = "fulfill"
	DecisionFetch       DecisionKind = "fetch"
)

// Decision is what the pipeline decided to do with a request. Exactly one is
// produced per request.
type Decision struct {
	Kind DecisionKind

	// Reason is set for DecisionBlock
	Reason AbortReason

	// Entry and Tier are set for DecisionFulfill
	Entry *cache.Entry
	Tier  cache.Tier
}

// Action is the terminal instruction type handed back to the host.
type Action string

const (
	ActionAbort    Action = "abort"
	ActionContinue Action = "continue"
	ActionFulfill  Action = "fulfill"
)

// Instruction tells the host how to complete an intercepted request.
type Instruction struct {
	Action Action

	// Reason is set for ActionAbort
	Reason AbortReason

	// Response payload for ActionFulfill
	Status      int
	Header      http.Header
	ContentType string
	Body        []byte

	// FromCache is true when the payload was served from a cache tier,
	// named by Tier
	FromCache bool
	Tier      cache.Tier
}

// Abort returns an abort instruction.
func Abort(reason AbortReason) Instruction {
	return Instruction{Action: ActionAbort, Reason: reason}
}

// Continue returns an instruction to let the host handle the request itself.
func Continue() Instruction {
	return Instruction{Action: ActionContinue}
}

// Fulfill returns an instruction that answers the request with entry.
func Fulfill(entry *cache.Entry) Instruction {
	return Instruction{
		Action:      ActionFulfill,
		Status:      entry.StatusCode,
		Header:      entry.Header,
		ContentType: entry.ContentType,
		Body:        entry.Body,
	}
}

// fulfillFromCache is Fulfill for a cache hit.
func fulfillFromCache(entry *cache.Entry, tier cache.Tier) Instruction {
	in := Fulfill(entry)
	in.FromCache = true
	in.Tier = tier
	return in
}

// Outcome is a short label for logs and metrics.
func (in Instruction) Outcome() string {
	switch in.Action {
	case ActionAbort:
		return string(in.Reason)
	case ActionFulfill:
		if in.FromCache {
			return "hit"
		}
		return "fetched"
	default:
		return string(in.Action)
	}
}
