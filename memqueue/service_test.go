package memqueue

import (
	"context"
	"testing"
	"time"

	"github.com/cloudqueue/cloudqueue"
	"github.com/stretchr/testify/require"
)

func TestAddMessageRequiresExistingQueue(t *testing.T) {
	s := New()
	err := s.AddMessage(context.Background(), "missing", []byte("x"))
	require.ErrorIs(t, err, cloudqueue.ErrQueueNotFound)
}

func TestGetMessagesHidesUntilVisibilityExpires(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateQueue(ctx, "Q"))
	require.NoError(t, s.AddMessage(ctx, "Q", []byte("body")))

	first, err := s.GetMessages(ctx, "Q", 10, time.Hour)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, 1, first[0].DequeueCount)

	second, err := s.GetMessages(ctx, "Q", 10, time.Hour)
	require.NoError(t, err)
	require.Empty(t, second, "message should still be hidden behind its visibility timeout")
}

func TestGetMessagesIncrementsDequeueCountAcrossCycles(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateQueue(ctx, "Q"))
	require.NoError(t, s.AddMessage(ctx, "Q", []byte("body")))

	first, err := s.GetMessages(ctx, "Q", 1, time.Nanosecond)
	require.NoError(t, err)
	require.Len(t, first, 1)

	time.Sleep(time.Millisecond)

	second, err := s.GetMessages(ctx, "Q", 1, time.Hour)
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, 2, second[0].DequeueCount)
	require.NotEqual(t, first[0].ReceiptID, second[0].ReceiptID)
}

func TestDeleteMessageByReceiptIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateQueue(ctx, "Q"))
	require.NoError(t, s.AddMessage(ctx, "Q", []byte("body")))

	got, err := s.GetMessages(ctx, "Q", 1, time.Hour)
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.NoError(t, s.DeleteMessage(ctx, "Q", got[0].ReceiptID))
	require.NoError(t, s.DeleteMessage(ctx, "Q", got[0].ReceiptID), "deleting an unknown receipt is tolerated as a no-op")

	count, err := s.ApproximateCount(ctx, "Q")
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestPeekMessagesDoesNotAffectVisibility(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateQueue(ctx, "Q"))
	require.NoError(t, s.AddMessage(ctx, "Q", []byte("body")))

	peeked, err := s.PeekMessages(ctx, "Q", 10)
	require.NoError(t, err)
	require.Len(t, peeked, 1)
	require.Equal(t, 0, peeked[0].DequeueCount)

	got, err := s.GetMessages(ctx, "Q", 10, time.Hour)
	require.NoError(t, err)
	require.Len(t, got, 1, "peeking must not have hidden the message from a real dequeue")
}

func TestClearRemovesMessagesButKeepsQueue(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateQueue(ctx, "Q"))
	require.NoError(t, s.AddMessage(ctx, "Q", []byte("a")))
	require.NoError(t, s.AddMessage(ctx, "Q", []byte("b")))

	require.NoError(t, s.Clear(ctx, "Q"))

	count, err := s.ApproximateCount(ctx, "Q")
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestDeleteQueueRemovesIt(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateQueue(ctx, "Q"))
	require.NoError(t, s.DeleteQueue(ctx, "Q"))

	_, err := s.ApproximateCount(ctx, "Q")
	require.ErrorIs(t, err, cloudqueue.ErrQueueNotFound)
}

func TestListQueuesFiltersByPrefix(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateQueue(ctx, "orders-in"))
	require.NoError(t, s.CreateQueue(ctx, "orders-out"))
	require.NoError(t, s.CreateQueue(ctx, "invoices"))

	names, err := s.ListQueues(ctx, "orders-")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"orders-in", "orders-out"}, names)
}
