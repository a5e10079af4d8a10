package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const (
	DefaultMaxRetries = 5
	DefaultBaseDelay  = 15 * time.Second
	DefaultIncrement  = 5 * time.Second
)

type SleepFunc func(ctx context.Context, d time.Duration) error

// Backoff retries a fetch throttled with a 429 status, waiting a little
// longer before every retry. The schedule starts over at every Fetch.
type Backoff struct {
	MaxRetries int
	BaseDelay  time.Duration
	Increment  time.Duration

	// Replaceable for tests, defaults to a timer honoring ctx
	Sleep SleepFunc
}

func NewBackoff() *Backoff {
	return &Backoff{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		Increment:  DefaultIncrement,
	}
}

// Delay returns the wait before the nth retry, counting from zero
func (b *Backoff) Delay(n int) time.Duration {
	increment := b.Increment
	if increment <= 0 {
		increment = DefaultIncrement
	}
	return b.BaseDelay + time.Duration(n)*increment
}

// Fetch requests link through f, retrying on throttling. Any other non-2xx
// status is returned as a *StatusError along with the page, and transport
// errors are returned as is, neither of them retried.
func (b *Backoff) Fetch(ctx context.Context, f Fetcher, link string, log func(format string, a ...interface{})) (*Page, error) {
	sleep := b.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for retry := 0; ; retry++ {
		page, err := f.Fetch(ctx, link)
		if err != nil {
			return nil, err
		}

		if page.StatusCode == http.StatusTooManyRequests {
			if retry >= b.MaxRetries {
				return nil, fmt.Errorf("%w: %s after %d retries", ErrRateLimited, link, retry)
			}

			delay := b.Delay(retry)
			if log != nil {
				log("Too many requests, retrying in %s (%d/%d)", delay, retry+1, b.MaxRetries)
			}
			err = sleep(ctx, delay)
			if err != nil {
				return nil, err
			}
			continue
		}

		if page.StatusCode < 200 || page.StatusCode >= 300 {
			return page, &StatusError{
				URL:        link,
				StatusCode: page.StatusCode,
			}
		}

		return page, nil
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
