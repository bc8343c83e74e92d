//go:build integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newRedisStore starts a throwaway Redis container and returns a store on it
func newRedisStore(t *testing.T) *RedisClaimStore {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start Redis container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%d", host, port.Int())})
	store := NewRedisClaimStoreWithClient(client, "test:claim:")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisClaimStore_ClaimAndRelease(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	token, ok, err := store.Claim(ctx, "invoice:1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = store.Claim(ctx, "invoice:1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Release(ctx, "invoice:1", token))
	claimed, err := store.IsClaimed(ctx, "invoice:1")
	require.NoError(t, err)
	assert.False(t, claimed)

	assert.NoError(t, store.Release(ctx, "never-claimed", "token"))
}

func TestRedisClaimStore_StaleHolderKeepsNextClaim(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	stale, ok, err := store.Claim(ctx, "invoice:2", 100*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		claimed, err := store.IsClaimed(ctx, "invoice:2")
		return err == nil && !claimed
	}, 2*time.Second, 20*time.Millisecond)

	current, ok, err := store.Claim(ctx, "invoice:2", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Release(ctx, "invoice:2", stale))
	claimed, err := store.IsClaimed(ctx, "invoice:2")
	require.NoError(t, err)
	assert.True(t, claimed, "the current holder keeps the claim")

	require.NoError(t, store.Release(ctx, "invoice:2", current))
	claimed, err = store.IsClaimed(ctx, "invoice:2")
	require.NoError(t, err)
	assert.False(t, claimed)
}
