package repair

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Backoff computes the delay between repair attempts.
type Backoff struct {
	Initial    time.Duration // delay before the second attempt
	Multiplier float64       // growth factor per attempt
	Max        time.Duration // cap on the computed delay
	Jitter     float64       // random jitter factor (0-1), 0 keeps delays deterministic
}

// DefaultBackoff doubles from one second: 1s, 2s, 4s, ...
func DefaultBackoff() Backoff {
	return Backoff{
		Initial:    1 * time.Second,
		Multiplier: 2.0,
		Max:        60 * time.Second,
	}
}

// Delay returns the delay after the given zero-based attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	delay := float64(b.Initial) * math.Pow(b.Multiplier, float64(attempt))

	if b.Max > 0 && delay > float64(b.Max) {
		delay = float64(b.Max)
	}

	if b.Jitter > 0 {
		delay += delay * b.Jitter * (rand.Float64()*2 - 1)
	}

	return time.Duration(delay)
}

// Wait sleeps out the delay for the attempt, honoring context cancellation.
func (b Backoff) Wait(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(b.Delay(attempt)):
		return nil
	}
}
