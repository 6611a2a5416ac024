package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackendSetGet(t *testing.T) {
	t.Parallel()

	backend := NewMemoryBackend()
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "k1", []byte("v1"), time.Minute, []string{"tag-a"}))

	value, ok, err := backend.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), value)

	_, ok, err = backend.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryBackendSingleTagEvictsMultiTagEntry(t *testing.T) {
	t.Parallel()

	backend := NewMemoryBackend()
	ctx := context.Background()

	// An entry carrying several tags must fall when any one of them is
	// invalidated, not only when all are.
	require.NoError(t, backend.Set(ctx, "k1", []byte("v1"), time.Minute,
		[]string{"tag-a", "tag-b", "tag-c"}))

	require.NoError(t, backend.InvalidateTags(ctx, "tag-b"))

	_, ok, err := backend.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryBackendInvalidateIsSelective(t *testing.T) {
	t.Parallel()

	backend := NewMemoryBackend()
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "k1", []byte("v1"), time.Minute, []string{"tag-a"}))
	require.NoError(t, backend.Set(ctx, "k2", []byte("v2"), time.Minute, []string{"tag-b"}))

	require.NoError(t, backend.InvalidateTags(ctx, "tag-a"))

	_, ok, _ := backend.Get(ctx, "k1")
	assert.False(t, ok)
	_, ok, _ = backend.Get(ctx, "k2")
	assert.True(t, ok)
}

func TestMemoryBackendTTLExpiry(t *testing.T) {
	t.Parallel()

	backend := NewMemoryBackend()
	ctx := context.Background()

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	backend.now = func() time.Time { return current }

	require.NoError(t, backend.Set(ctx, "k1", []byte("v1"), time.Minute, []string{"tag-a"}))

	_, ok, _ := backend.Get(ctx, "k1")
	assert.True(t, ok)

	current = current.Add(2 * time.Minute)
	_, ok, _ = backend.Get(ctx, "k1")
	assert.False(t, ok)

	// The expired entry is dropped lazily, not merely hidden.
	assert.Equal(t, 0, backend.Len())
}

func TestMemoryBackendReplaceDropsOldTags(t *testing.T) {
	t.Parallel()

	backend := NewMemoryBackend()
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "k1", []byte("v1"), time.Minute, []string{"tag-old"}))
	require.NoError(t, backend.Set(ctx, "k1", []byte("v2"), time.Minute, []string{"tag-new"}))

	// The old tag no longer reaches the entry.
	require.NoError(t, backend.InvalidateTags(ctx, "tag-old"))
	value, ok, _ := backend.Get(ctx, "k1")
	assert.True(t, ok)
	assert.Equal(t, []byte("v2"), value)

	require.NoError(t, backend.InvalidateTags(ctx, "tag-new"))
	_, ok, _ = backend.Get(ctx, "k1")
	assert.False(t, ok)
}
