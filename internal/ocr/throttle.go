package ocr

import (
	"context"
	"sync"
	"time"
)

// Throttle enforces a minimum interval between OCR calls across all
// workers. The historic pipeline slept a fixed second between images to
// stay under the engine's informal rate limit; modeling it as a shared
// limiter keeps that guarantee when the record loop is parallelized.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

// NewThrottle returns a limiter admitting one call per interval. A zero
// or negative interval disables pacing.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{interval: interval}
}

// Wait blocks until the caller may proceed or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil || t.interval <= 0 {
		return ctx.Err()
	}

	t.mu.Lock()
	now := time.Now()
	at := t.next
	if at.Before(now) {
		at = now
	}
	t.next = at.Add(t.interval)
	t.mu.Unlock()

	d := time.Until(at)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Throttled wraps an engine so every Extract first passes the limiter.
type Throttled struct {
	Engine   TextExtractor
	Throttle *Throttle
}

func (t Throttled) Extract(ctx context.Context, path string) (Result, error) {
	if err := t.Throttle.Wait(ctx); err != nil {
		return Result{}, err
	}
	return t.Engine.Extract(ctx, path)
}
