package repository

import (
	"context"
	"sync/atomic"
	"time"

	"bookline/internal/domain"

	"github.com/rs/zerolog"
)

type FailoverProcessedStore struct {
	primary   domain.ProcessedStore
	fallback  domain.ProcessedStore
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverProcessedStore(primary, fallback domain.ProcessedStore, logger *zerolog.Logger) *FailoverProcessedStore {
	return &FailoverProcessedStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverProcessedStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if !r.isDown.Load() {
		first, err := r.primary.MarkProcessed(ctx, key, ttl)
		if err == nil {
			return first, nil
		}
		r.logger.Error().Err(err).Msg("Primary processed store failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		first, err := r.primary.MarkProcessed(ctx, key, ttl)
		if err == nil {
			r.isDown.Store(false)
			return first, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.MarkProcessed(ctx, key, ttl)
}

func (r *FailoverProcessedStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.logger.Error().Err(err).Msg("Primary processed store failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
