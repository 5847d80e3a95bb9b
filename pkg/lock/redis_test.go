package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedisLock_ExclusiveUntilReleased(t *testing.T) {
	client, _ := setupRedis(t)
	ctx := context.Background()

	first := NewRedisLock(client, "signup:abc", time.Minute)
	second := NewRedisLock(client, "signup:abc", time.Minute)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not acquire a held lock")

	require.NoError(t, first.Release(ctx))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLock_ReleaseIgnoresForeignOwner(t *testing.T) {
	client, mr := setupRedis(t)
	ctx := context.Background()

	owner := NewRedisLock(client, "k", time.Minute)
	stranger := NewRedisLock(client, "k", time.Minute)

	ok, err := owner.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, stranger.Release(ctx))
	assert.True(t, mr.Exists("lock:k"), "lock held by another owner must survive")
}

func TestRedisLock_ExpiresAfterTTL(t *testing.T) {
	client, mr := setupRedis(t)
	ctx := context.Background()

	held := NewRedisLock(client, "k", 5*time.Second)
	ok, err := held.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(6 * time.Second)

	ok, err = NewRedisLock(client, "k", 5*time.Second).Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLock_AcquireErrorWhenServerDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	defer client.Close()

	_, err := NewRedisLock(client, "k", time.Second).Acquire(context.Background())
	assert.Error(t, err)
}

func TestNewClient(t *testing.T) {
	_, mr := setupRedis(t)

	client, err := NewClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	client.Close()

	_, err = NewClient(context.Background(), "not a url")
	assert.Error(t, err)
}
