package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRevocations(t *testing.T) (*miniredis.Miniredis, *Revocations) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewRevocations(client)
}

func TestRevocationsRoundTrip(t *testing.T) {
	t.Parallel()

	_, r := newTestRevocations(t)
	ctx := context.Background()

	revoked, err := r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, r.Record(ctx, "jti-1", time.Now().Add(time.Hour)))

	revoked, err = r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)

	// Recording again is harmless.
	require.NoError(t, r.Record(ctx, "jti-1", time.Now().Add(time.Hour)))
}

func TestRevocationsExpireWithToken(t *testing.T) {
	t.Parallel()

	mr, r := newTestRevocations(t)
	ctx := context.Background()

	require.NoError(t, r.Record(ctx, "jti-ttl", time.Now().Add(30*time.Minute)))

	mr.FastForward(time.Hour)

	revoked, err := r.IsRevoked(ctx, "jti-ttl")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestRecordSkipsExpiredTokens(t *testing.T) {
	t.Parallel()

	_, r := newTestRevocations(t)
	ctx := context.Background()

	require.NoError(t, r.Record(ctx, "jti-past", time.Now().Add(-time.Minute)))

	revoked, err := r.IsRevoked(ctx, "jti-past")
	require.NoError(t, err)
	require.False(t, revoked)
}
