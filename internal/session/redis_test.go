package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quarrydirect/portal/internal/common/cnst"
)

func newRedisTestStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreWithClient(zap.NewNop(), client, "test:session")
}

func testRecord(token string, ident Identity) *Record {
	now := time.Now().UTC()
	return &Record{
		Token:     token,
		UserType:  ident.UserType,
		UserID:    ident.UserID,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestRedisStorePutGet(t *testing.T) {
	store := newRedisTestStore(t)
	ctx := context.Background()
	ident := Identity{UserType: cnst.UserTypeCustomer, UserID: 42}

	stored := testRecord("tok-1", ident)
	stored.Snapshot = &Snapshot{Permissions: map[string]bool{"view_orders": true}}
	require.NoError(t, store.Put(ctx, stored))

	rec, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, ident, rec.Identity())
	assert.False(t, rec.Revoked)
	require.NotNil(t, rec.Snapshot)
	assert.True(t, rec.Snapshot.Permissions["view_orders"])
}

func TestRedisStoreGetMissing(t *testing.T) {
	store := newRedisTestStore(t)
	_, err := store.Get(context.Background(), "absent")
	assert.Equal(t, ErrInvalidSession, err)
}

func TestRedisStorePutDisplacesPriorSession(t *testing.T) {
	store := newRedisTestStore(t)
	ctx := context.Background()
	ident := Identity{UserType: cnst.UserTypeCustomer, UserID: 42}

	require.NoError(t, store.Put(ctx, testRecord("tok-1", ident)))
	require.NoError(t, store.Put(ctx, testRecord("tok-2", ident)))

	old, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, old.Revoked)

	cur, err := store.Get(ctx, "tok-2")
	require.NoError(t, err)
	assert.False(t, cur.Revoked)
}

func TestRedisStoreRevokeIdempotent(t *testing.T) {
	store := newRedisTestStore(t)
	ctx := context.Background()
	ident := Identity{UserType: cnst.UserTypePlatform, UserID: 1}

	require.NoError(t, store.Put(ctx, testRecord("tok-1", ident)))
	require.NoError(t, store.Revoke(ctx, "tok-1"))

	rec, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, rec.Revoked)

	assert.NoError(t, store.Revoke(ctx, "tok-1"))
	assert.NoError(t, store.Revoke(ctx, "absent"))
}

func TestRedisStoreDistinctIdentitiesCoexist(t *testing.T) {
	store := newRedisTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testRecord("tok-c", Identity{UserType: cnst.UserTypeCustomer, UserID: 1})))
	require.NoError(t, store.Put(ctx, testRecord("tok-p", Identity{UserType: cnst.UserTypePlatform, UserID: 1})))

	c, err := store.Get(ctx, "tok-c")
	require.NoError(t, err)
	assert.False(t, c.Revoked)

	p, err := store.Get(ctx, "tok-p")
	require.NoError(t, err)
	assert.False(t, p.Revoked)
}
