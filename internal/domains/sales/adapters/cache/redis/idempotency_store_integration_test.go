//go:build integration

package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedisContainer(t *testing.T) (*goredis.Client, func()) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := goredis.NewClient(&goredis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	require.NoError(t, client.Ping(ctx).Err())

	cleanup := func() {
		_ = client.Close()
		container.Terminate(ctx)
	}
	return client, cleanup
}

func TestIdempotencyStore_ClaimLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client, cleanup := setupRedisContainer(t)
	defer cleanup()

	store := NewIdempotencyStore(client, WithTTL(time.Minute))
	ctx := context.Background()

	record, claimed, err := store.Claim(ctx, "order-1", "hash-a")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, "hash-a", record.RequestHash)

	record, claimed, err = store.Claim(ctx, "order-1", "hash-b")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, "hash-a", record.RequestHash)
	assert.False(t, record.Completed())

	require.NoError(t, store.Complete(ctx, "order-1", 42))
	require.NoError(t, store.Release(ctx, "order-1"))

	record, claimed, err = store.Claim(ctx, "order-1", "hash-a")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.EqualValues(t, 42, record.OrderID)

	ttl, err := client.PTTL(ctx, DefaultKeyPrefix+"order-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestIdempotencyStore_ReleaseFreesKey(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client, cleanup := setupRedisContainer(t)
	defer cleanup()

	store := NewIdempotencyStore(client, WithKeyPrefix("test:"))
	ctx := context.Background()

	_, claimed, err := store.Claim(ctx, "k", "h")
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, store.Release(ctx, "k"))

	_, claimed, err = store.Claim(ctx, "k", "h")
	require.NoError(t, err)
	assert.True(t, claimed)
}
