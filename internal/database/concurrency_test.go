package database

import (
	"context"
	"errors"
	"sync"
	"testing"

	"bookline/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentBooking_NeverOversells(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	_, _, schedule := seedBookable(t, db, 3)

	const attempts = 10
	var wg sync.WaitGroup
	wg.Add(attempts)

	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func(customer int64) {
			defer wg.Done()
			_, _, err := db.CreateBooking(ctx, bookingRequest(schedule, customer, 1))
			results <- err
		}(int64(100 + i))
	}
	wg.Wait()
	close(results)

	succeeded := 0
	capacityRejections := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var rej *domain.Rejection
		require.True(t, errors.As(err, &rej), "unexpected error kind: %v", err)
		switch rej.Code {
		case domain.CodeInsufficientCapacity:
			capacityRejections++
		case domain.CodeCapacityCheckTimeout:
			// Lock contention; retryable, not a correctness problem.
		default:
			t.Fatalf("unexpected rejection %s", rej.Code)
		}
	}

	assert.LessOrEqual(t, succeeded, 3, "capacity must never be exceeded")
	assert.Greater(t, succeeded, 0)

	result, err := db.CheckAvailability(ctx, schedule.ID, 1)
	if succeeded == 3 {
		// Fully booked: the read-only check reports a capacity refusal but
		// still carries the counts.
		var rej *domain.Rejection
		require.ErrorAs(t, err, &rej)
		assert.Equal(t, 3, result.Booked)
		assert.Equal(t, 0, result.AvailableSpots)
	} else {
		require.NoError(t, err)
		assert.Equal(t, succeeded, result.Booked)
	}
}
