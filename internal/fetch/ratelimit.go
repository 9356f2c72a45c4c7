package fetch

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// minBurst keeps the limiter burst at least one read buffer wide so a
// single Read never exceeds the bucket.
const minBurst = 64 * 1024

// NewLimiter builds a byte-per-second rate limiter.
// A non-positive limit returns nil, meaning unlimited.
func NewLimiter(bytesPerSecond int64) *rate.Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	burst := int(bytesPerSecond)
	if burst < minBurst {
		burst = minBurst
	}
	return rate.NewLimiter(rate.Limit(bytesPerSecond), burst)
}

// LimitedReader throttles reads against a shared limiter.
type LimitedReader struct {
	reader  io.Reader
	limiter *rate.Limiter
	ctx     context.Context
}

// NewLimitedReader wraps r with the limiter. A nil limiter passes reads
// through untouched.
func NewLimitedReader(ctx context.Context, r io.Reader, limiter *rate.Limiter) *LimitedReader {
	return &LimitedReader{reader: r, limiter: limiter, ctx: ctx}
}

// Read reads from the underlying reader, then waits out the byte budget.
func (r *LimitedReader) Read(p []byte) (int, error) {
	select {
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	default:
	}

	n, err := r.reader.Read(p)
	if n > 0 && r.limiter != nil {
		if waitErr := r.limiter.WaitN(r.ctx, n); waitErr != nil {
			return n, waitErr
		}
	}
	return n, err
}
