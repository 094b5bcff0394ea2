// internal/scraping/session/ratelimit_test.go
package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowLimiterNeverExceedsWindow(t *testing.T) {
	const (
		limit  = 6
		window = 100 * time.Millisecond
		calls  = 20
	)
	limiter := newWindowLimiter(limit, window)

	stamps := make([]time.Time, 0, calls)
	for i := 0; i < calls; i++ {
		require.NoError(t, limiter.Wait(context.Background()))
		stamps = append(stamps, time.Now())
	}

	// Em qualquer janela deslizante cabem no máximo `limit` chamadas: a
	// chamada i+limit tem que estar a pelo menos uma janela da chamada i.
	for i := 0; i+limit < len(stamps); i++ {
		gap := stamps[i+limit].Sub(stamps[i])
		assert.GreaterOrEqual(t, gap, window,
			"chamadas %d e %d caíram na mesma janela", i, i+limit)
	}
}

func TestWindowLimiterBelowLimitDoesNotBlock(t *testing.T) {
	limiter := newWindowLimiter(5, time.Second)

	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestWindowLimiterHonorsCancellation(t *testing.T) {
	limiter := newWindowLimiter(1, time.Minute)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
