package store

import (
	"context"
	"testing"

	"github.com/causalityco/causality/pkg/causalityhash"
	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())

	h, err := s.Put(ctx, []byte("hello causality"))
	require.NoError(t, err)

	got, err := s.Get(ctx, h)
	require.NoError(t, err)
	require.Equal(t, []byte("hello causality"), got)
}

func TestPutIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())

	h1, err := s.Put(ctx, []byte("same bytes"))
	require.NoError(t, err)
	h2, err := s.Put(ctx, []byte("same bytes"))
	require.NoError(t, err)
	require.True(t, h1.Equal(h2))
}

func TestGetNotFound(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())

	_, err := s.Get(ctx, causalityhash.Sum([]byte("never written")))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetIntegrityViolation(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	s := New(backend)

	h, err := s.Put(ctx, []byte("original"))
	require.NoError(t, err)

	// Simulate corruption: overwrite the stored bytes without changing the key.
	require.NoError(t, backend.Set(ctx, h.Bytes(), []byte("tampered")))

	_, err = s.Get(ctx, h)
	require.ErrorIs(t, err, ErrIntegrity)
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())

	h, err := s.Put(ctx, []byte("present"))
	require.NoError(t, err)

	ok, err := s.Exists(ctx, h)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Exists(ctx, causalityhash.Sum([]byte("absent")))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestListVisitsAllEntries(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())

	want := map[causalityhash.Hash][]byte{}
	for _, v := range []string{"a", "b", "c"} {
		h, err := s.Put(ctx, []byte(v))
		require.NoError(t, err)
		want[h] = []byte(v)
	}

	got := map[causalityhash.Hash][]byte{}
	err := s.List(ctx, func(h causalityhash.Hash, raw []byte) error {
		got[h] = raw
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, len(want), len(got))
	for h, v := range want {
		require.Equal(t, v, got[h])
	}
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())
	require.NoError(t, s.Close())

	_, err := s.Put(ctx, []byte("x"))
	require.ErrorIs(t, err, ErrClosed)
}
