//go:build integration

package redisqueue_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/cloudqueue/cloudqueue"
	"github.com/cloudqueue/cloudqueue/redisqueue"
)

func startRedis(t *testing.T, ctx context.Context) *redis.Client {
	t.Helper()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	return redis.NewClient(opts)
}

func TestServiceEnqueueDequeueDeleteIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	client := startRedis(t, ctx)
	t.Cleanup(func() { _ = client.Close() })

	svc := redisqueue.New(client)

	require.NoError(t, svc.CreateQueue(ctx, "orders"))

	require.NoError(t, svc.AddMessage(ctx, "orders", []byte("hello")))

	got, err := svc.GetMessages(ctx, "orders", 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, []byte("hello"), got[0].Bytes)
	require.Equal(t, 1, got[0].DequeueCount)

	again, err := svc.GetMessages(ctx, "orders", 10, time.Minute)
	require.NoError(t, err)
	require.Empty(t, again, "message should still be hidden behind its visibility timeout")

	require.NoError(t, svc.DeleteMessage(ctx, "orders", got[0].ReceiptID))

	count, err := svc.ApproximateCount(ctx, "orders")
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestServiceAddMessageRequiresExistingQueueIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	client := startRedis(t, ctx)
	t.Cleanup(func() { _ = client.Close() })

	svc := redisqueue.New(client)

	err := svc.AddMessage(ctx, "missing", []byte("x"))
	require.ErrorIs(t, err, cloudqueue.ErrQueueNotFound)
}

func TestServiceClearKeepsQueueRegisteredIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	client := startRedis(t, ctx)
	t.Cleanup(func() { _ = client.Close() })

	svc := redisqueue.New(client)

	require.NoError(t, svc.CreateQueue(ctx, "orders"))
	require.NoError(t, svc.AddMessage(ctx, "orders", []byte("a")))
	require.NoError(t, svc.Clear(ctx, "orders"))

	count, err := svc.ApproximateCount(ctx, "orders")
	require.NoError(t, err)
	require.Equal(t, 0, count)
}
