package image

import (
	"context"
	"sync"
	"time"
)

// rateLimiter allows at most limit requests per window
type rateLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	requests []time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:    limit,
		window:   window,
		requests: make([]time.Time, 0, limit),
	}
}

// wait blocks until another request is allowed or ctx is done
func (rl *rateLimiter) wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := time.Now()

		// Drop requests that left the window
		cutoff := now.Add(-rl.window)
		i := 0
		for i < len(rl.requests) && rl.requests[i].Before(cutoff) {
			i++
		}
		rl.requests = rl.requests[i:]

		if len(rl.requests) < rl.limit {
			rl.requests = append(rl.requests, now)
			rl.mu.Unlock()
			return nil
		}

		waitDuration := rl.requests[0].Add(rl.window).Sub(now)
		rl.mu.Unlock()

		timer := time.NewTimer(waitDuration)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
