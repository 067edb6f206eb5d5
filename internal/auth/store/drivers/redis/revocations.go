// Package redis provides a Redis-backed token denylist. Entries carry a TTL
// equal to the remaining token lifetime, so Redis expires them on its own and
// no sweeper is needed.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "rvk:"

type Revocations struct {
	client *redis.Client
}

func NewRevocations(client *redis.Client) *Revocations {
	return &Revocations{client: client}
}

func (r *Revocations) Record(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already past its natural expiry; nothing to denylist.
		return nil
	}
	return r.client.Set(ctx, keyPrefix+jti, "1", ttl).Err()
}

func (r *Revocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, keyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteExpired is a no-op; Redis evicts entries via per-key TTLs.
func (r *Revocations) DeleteExpired(ctx context.Context) error {
	return nil
}

func (r *Revocations) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
