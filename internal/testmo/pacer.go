package testmo

import (
	"context"
	"time"
)

// RateLimitDelay is the pause inserted between consecutive remote calls made in a loop.
const RateLimitDelay = 500 * time.Millisecond

// Pacer spaces out consecutive remote calls. *rate.Limiter satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// FixedDelay is a Pacer that sleeps for a constant duration.
type FixedDelay time.Duration

func (d FixedDelay) Wait(ctx context.Context) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(time.Duration(d))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
