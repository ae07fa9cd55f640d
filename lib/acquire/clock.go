package acquire

import (
	"context"
	"time"
)

// Clock supplies wall-clock time for timestamps, monotonic time for
// intervals, and the inter-sample sleep.
type Clock interface {
	Now() time.Time
	Monotonic() time.Duration
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the host clock.
type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Now returns the wall clock without its monotonic reading, so that
// differences between Now values reflect clock steps.
func (c *SystemClock) Now() time.Time { return time.Now().Round(0) }

// Monotonic returns the time elapsed since the clock was created.
func (c *SystemClock) Monotonic() time.Duration { return time.Since(c.start) }

// Sleep blocks for d or until ctx is done.
func (c *SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
