package otp

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedisTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreWithClient(zap.NewNop(), client, "test:otp"), mr
}

func TestRedisStoreChallengeRoundTrip(t *testing.T) {
	store, _ := newRedisTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	ch := &Challenge{
		Phone:     "0821234567",
		CodeHash:  "abc123",
		CreatedAt: now,
		ExpiresAt: now.Add(5 * time.Minute),
	}
	require.NoError(t, store.PutChallenge(ctx, ch))

	got, err := store.GetChallenge(ctx, "0821234567")
	require.NoError(t, err)
	assert.Equal(t, ch.CodeHash, got.CodeHash)
	assert.True(t, ch.ExpiresAt.Equal(got.ExpiresAt))
	assert.Equal(t, 0, got.Attempts)
}

func TestRedisStoreGetChallengeMissing(t *testing.T) {
	store, _ := newRedisTestStore(t)
	_, err := store.GetChallenge(context.Background(), "0821234567")
	assert.Equal(t, ErrNoChallenge, err)
}

func TestRedisStoreIncrementAttempts(t *testing.T) {
	store, _ := newRedisTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, store.PutChallenge(ctx, &Challenge{
		Phone:     "0821234567",
		CodeHash:  "abc",
		CreatedAt: now,
		ExpiresAt: now.Add(5 * time.Minute),
	}))

	for want := 1; want <= 3; want++ {
		n, err := store.IncrementAttempts(ctx, "0821234567")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	got, err := store.GetChallenge(ctx, "0821234567")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Attempts)
}

func TestRedisStoreIncrementAttemptsMissing(t *testing.T) {
	store, _ := newRedisTestStore(t)
	_, err := store.IncrementAttempts(context.Background(), "0821234567")
	assert.Equal(t, ErrNoChallenge, err)
}

func TestRedisStoreDeleteChallenge(t *testing.T) {
	store, _ := newRedisTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, store.PutChallenge(ctx, &Challenge{
		Phone:     "0821234567",
		CodeHash:  "abc",
		CreatedAt: now,
		ExpiresAt: now.Add(5 * time.Minute),
	}))
	require.NoError(t, store.DeleteChallenge(ctx, "0821234567"))

	_, err := store.GetChallenge(ctx, "0821234567")
	assert.Equal(t, ErrNoChallenge, err)

	// deleting again is harmless
	assert.NoError(t, store.DeleteChallenge(ctx, "0821234567"))
}

func TestRedisStoreSendWindow(t *testing.T) {
	store, mr := newRedisTestStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		n, err := store.IncrSendWindow(ctx, "0821234567", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	// counter resets once the window key expires
	mr.FastForward(time.Hour + time.Minute)
	n, err := store.IncrSendWindow(ctx, "0821234567", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
