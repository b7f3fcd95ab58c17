package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProcessedStore_MarkProcessed(t *testing.T) {
	store := NewMemoryProcessedStore()
	ctx := context.Background()

	first, err := store.MarkProcessed(ctx, "settlement:p1:COMPLETE", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	first, err = store.MarkProcessed(ctx, "settlement:p1:COMPLETE", time.Hour)
	require.NoError(t, err)
	assert.False(t, first)

	first, err = store.MarkProcessed(ctx, "settlement:p2:COMPLETE", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestMemoryProcessedStore_ExpiredEntryReplaced(t *testing.T) {
	store := NewMemoryProcessedStore()
	ctx := context.Background()

	first, err := store.MarkProcessed(ctx, "k", time.Millisecond)
	require.NoError(t, err)
	assert.True(t, first)

	time.Sleep(5 * time.Millisecond)

	first, err = store.MarkProcessed(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.True(t, first, "an expired entry no longer counts as seen")

	first, err = store.MarkProcessed(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.False(t, first)
}

func TestMemoryProcessedStore_CheckRateLimit(t *testing.T) {
	store := NewMemoryProcessedStore()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := store.CheckRateLimit(ctx, "ip:1", 2, time.Hour)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := store.CheckRateLimit(ctx, "ip:1", 2, time.Hour)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = store.CheckRateLimit(ctx, "ip:2", 2, time.Hour)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemoryProcessedStore_RateLimitWindowResets(t *testing.T) {
	store := NewMemoryProcessedStore()
	ctx := context.Background()

	allowed, err := store.CheckRateLimit(ctx, "ip:1", 1, time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = store.CheckRateLimit(ctx, "ip:1", 1, time.Millisecond)
	require.NoError(t, err)
	assert.False(t, allowed)

	time.Sleep(5 * time.Millisecond)

	allowed, err = store.CheckRateLimit(ctx, "ip:1", 1, time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)
}
