package chat

import (
	"context"
	"math/rand"
	"time"

	"storefront/internal/apperr"
)

// RetryPolicy retries rate-limited generation calls with capped exponential backoff
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Jitter is the fraction (0..1) by which each delay is randomly stretched or shrunk
	Jitter float64

	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Rand returns a value in [0,1). Nil uses math/rand.
	Rand func() float64
	// OnRetry is called before each retry with the attempt number and the delay
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetryPolicy retries twice starting at one second, capped at thirty
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Jitter:     0.2,
	}
}

// Delay returns the wait before retry n (0-based): BaseDelay*2^n capped at MaxDelay, then jittered
func (p RetryPolicy) Delay(n int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < n && d < p.MaxDelay; i++ {
		d *= 2
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		r := rand.Float64
		if p.Rand != nil {
			r = p.Rand
		}
		spread := float64(d) * p.Jitter
		d = time.Duration(float64(d) - spread + 2*spread*r())
		if p.MaxDelay > 0 && d > p.MaxDelay {
			d = p.MaxDelay
		}
	}
	return d
}

// Do runs fn until it succeeds, fails with a non-retryable error, runs out of retries or ctx ends
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !Retryable(err) || attempt >= p.MaxRetries {
			return err
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, delay, err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return serr
		}
	}
}

// Retryable reports whether err is a transient rate limit. Exhausted quota is not retried.
func Retryable(err error) bool {
	return apperr.IsKind(err, apperr.RateLimited) && apperr.CodeOf(err) != apperr.CodeQuotaExceeded
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
