package domain

import (
	"fmt"
	"time"
)

// RateLimitError signals that a provider's request budget is exhausted,
// either locally (limiter gate) or upstream (HTTP 429).
type RateLimitError struct {
	Source     string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Source, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded for %s", e.Source)
}

// TransportError wraps a network or HTTP failure from a provider fetch.
type TransportError struct {
	Source string
	Status int // zero when the request never completed
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport error from %s: status %d", e.Source, e.Status)
	}
	return fmt.Sprintf("transport error from %s: %v", e.Source, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NormalizationError marks a raw record that cannot be mapped into a
// canonical grant. The record is dropped and counted; the batch continues.
type NormalizationError struct {
	Source string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("cannot normalize %s record: %s", e.Source, e.Reason)
}

// BatchUpsertError means the bulk write for a whole batch failed; every
// record in the batch is counted as an error, with no partial credit.
type BatchUpsertError struct {
	Source string
	Size   int
	Err    error
}

func (e *BatchUpsertError) Error() string {
	return fmt.Sprintf("batch upsert of %d %s grants failed: %v", e.Size, e.Source, e.Err)
}

func (e *BatchUpsertError) Unwrap() error { return e.Err }
