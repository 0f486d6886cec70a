package repository

import (
	"context"
	"time"
)

// DedupStore is the shared keyed store behind the idempotency guard. Keys
// expire so the store stays bounded; the provider stops retrying an event
// long before the TTL elapses.
type DedupStore interface {
	// Seen reports whether key was already marked by a committed application.
	Seen(ctx context.Context, key string) (bool, error)
	// Mark records key for ttl. Marking an existing key is a no-op.
	Mark(ctx context.Context, key string, ttl time.Duration) error
}
