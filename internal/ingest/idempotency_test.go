package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIdempotencyStore(t *testing.T) {
	s := NewMemoryIdempotencyStore(time.Hour)
	defer s.Close()

	ctx := context.Background()

	_, hit, err := s.Get(ctx, "device-1:key-1")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, s.Put(ctx, "device-1:key-1", []byte(`{"processed":3}`)))

	cached, hit, err := s.Get(ctx, "device-1:key-1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte(`{"processed":3}`), cached)

	// Keys are namespaced by device.
	_, hit, err = s.Get(ctx, "device-2:key-1")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemoryIdempotencyStoreExpiry(t *testing.T) {
	s := NewMemoryIdempotencyStore(20 * time.Millisecond)
	defer s.Close()

	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "key", []byte("x")))

	_, hit, err := s.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, hit)

	time.Sleep(30 * time.Millisecond)

	_, hit, err = s.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, hit, "expired entries must not be served")
}
