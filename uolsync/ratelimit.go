package uolsync

import (
	"context"
	"time"
)

// admissionMargin is added on top of the computed wait so a slot is really
// free by the time the caller retries; the provider's window is not
// millisecond-exact.
const admissionMargin = 100 * time.Millisecond

// RateLimiter is a sliding-window admission gate over outbound calls to one
// endpoint group. Admit blocks until fewer than limit admissions remain
// inside the window, then records a new one.
//
// Instances are independent; the general limiter and the stricter listing
// limiter never share state. A single sync worker is the only caller, so no
// locking is needed.
type RateLimiter struct {
	limit      int
	window     time.Duration
	admissions []time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

func (l *RateLimiter) Admit(ctx context.Context) error {
	for {
		now := l.now()
		cutoff := now.Add(-l.window)

		kept := l.admissions[:0]
		for _, t := range l.admissions {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		l.admissions = kept

		if len(l.admissions) < l.limit {
			l.admissions = append(l.admissions, now)
			return nil
		}

		wait := l.admissions[0].Add(l.window).Sub(now) + admissionMargin
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
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
