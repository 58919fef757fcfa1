package memblob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Put(ctx, "c", "n", []byte("hello")))

	data, found, err := s.Get(ctx, "c", "n")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("hello"), data)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()

	data, found, err := s.Get(ctx, "c", "missing")
	require.NoError(t, err)
	require.False(t, found)
	require.Nil(t, data)
}

func TestPutCopiesInputBytes(t *testing.T) {
	ctx := context.Background()
	s := New()

	original := []byte("hello")
	require.NoError(t, s.Put(ctx, "c", "n", original))
	original[0] = 'X'

	data, _, err := s.Get(ctx, "c", "n")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data, "mutating the caller's slice after Put must not affect stored bytes")
}

func TestGetCopiesOutputBytes(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Put(ctx, "c", "n", []byte("hello")))

	data, _, err := s.Get(ctx, "c", "n")
	require.NoError(t, err)
	data[0] = 'X'

	again, _, err := s.Get(ctx, "c", "n")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), again, "mutating a returned slice must not affect stored bytes")
}

func TestListFiltersByPrefix(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Put(ctx, "c", "order-1", []byte("a")))
	require.NoError(t, s.Put(ctx, "c", "order-2", []byte("b")))
	require.NoError(t, s.Put(ctx, "c", "invoice-1", []byte("c")))

	names, err := s.List(ctx, "c", "order-")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"order-1", "order-2"}, names)
}

func TestListOnMissingContainerReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	s := New()

	names, err := s.List(ctx, "missing", "")
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Put(ctx, "c", "n", []byte("hello")))

	require.NoError(t, s.Delete(ctx, "c", "n"))
	require.NoError(t, s.Delete(ctx, "c", "n"), "deleting an already-deleted blob is tolerated")

	_, found, err := s.Get(ctx, "c", "n")
	require.NoError(t, err)
	require.False(t, found)
}
