package otp

import (
	"context"
	"time"
)

// Store persists issued codes. Implementations must make Replace and Consume
// atomic: at most one unconsumed record exists per (email, purpose), and a
// record can be consumed exactly once.
type Store interface {
	// Replace drops every unconsumed record for rec's (email, purpose) and
	// inserts rec, returning how many records were dropped.
	Replace(ctx context.Context, rec *Record) (int64, error)
	// FindActive returns the newest unconsumed record, or ErrRecordNotFound.
	FindActive(ctx context.Context, email string, purpose Purpose) (*Record, error)
	// Consume flips used from false to true. It reports false when the
	// record was already consumed, replaced or deleted.
	Consume(ctx context.Context, id string, now time.Time) (bool, error)
	IncrementAttempts(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
