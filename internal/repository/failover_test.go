package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct {
	calls int
}

func (s *brokenStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.calls++
	return false, errors.New("connection refused")
}

func (s *brokenStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	s.calls++
	return false, errors.New("connection refused")
}

func TestFailoverProcessedStore_FallsBackWhenPrimaryFails(t *testing.T) {
	logger := zerolog.Nop()
	primary := &brokenStore{}
	store := NewFailoverProcessedStore(primary, NewMemoryProcessedStore(), &logger)
	ctx := context.Background()

	first, err := store.MarkProcessed(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	// Dedup still holds through the fallback.
	first, err = store.MarkProcessed(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.False(t, first)

	// After the first failure the primary is latched down and not hammered.
	assert.Equal(t, 1, primary.calls)
}

func TestFailoverProcessedStore_HealthyPrimaryIsUsed(t *testing.T) {
	logger := zerolog.Nop()
	primary := NewMemoryProcessedStore()
	fallback := NewMemoryProcessedStore()
	store := NewFailoverProcessedStore(primary, fallback, &logger)
	ctx := context.Background()

	first, err := store.MarkProcessed(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	// The key landed in the primary, not the fallback.
	first, err = primary.MarkProcessed(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.False(t, first)

	first, err = fallback.MarkProcessed(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestFailoverProcessedStore_RateLimitFallsBack(t *testing.T) {
	logger := zerolog.Nop()
	store := NewFailoverProcessedStore(&brokenStore{}, NewMemoryProcessedStore(), &logger)
	ctx := context.Background()

	allowed, err := store.CheckRateLimit(ctx, "ip:1", 1, time.Hour)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = store.CheckRateLimit(ctx, "ip:1", 1, time.Hour)
	require.NoError(t, err)
	assert.False(t, allowed)
}
