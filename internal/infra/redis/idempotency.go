package redis

import (
	"context"
	"fmt"
	"time"

	"personal-vault/internal/domain/ports/repository"
)

// Ensure compile-time conformance
var _ repository.DedupStore = (*DedupStore)(nil)

// DedupStore backs the webhook idempotency guard with a shared Redis keyspace
// so duplicate deliveries are detected across instances, not per process.
// Keys expire after the configured TTL; the provider's retry window is far
// shorter than that.
type DedupStore struct {
	client RedisClient
}

func NewDedupStore(client RedisClient) *DedupStore {
	return &DedupStore{client: client}
}

func dedupKey(key string) string {
	return fmt.Sprintf("billing:dedup:%s", key)
}

func (s *DedupStore) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, dedupKey(key))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *DedupStore) Mark(ctx context.Context, key string, ttl time.Duration) error {
	// SET NX keeps the first mark's expiry; re-marking a replayed event must
	// not extend the window.
	_, err := s.client.SetNX(ctx, dedupKey(key), 1, ttl)
	return err
}
