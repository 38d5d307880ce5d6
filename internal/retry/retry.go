package retry

import (
	"context"
	"time"

	"docassist/internal/domain"
)

// Policy bounds how often a transient external call is repeated.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Default is three attempts with 200ms exponential backoff capped at 5s.
var Default = Policy{Attempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second}

// Do runs fn until it succeeds, returns a non-transient error, or the
// attempts are exhausted. The last error is returned unchanged.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !domain.IsTransient(err) || attempt == attempts-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(p.Delay(attempt)):
		}
	}
	return err
}

// Delay returns the backoff before retry number attempt+1.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := p.BaseDelay
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	limit := p.MaxDelay
	if limit <= 0 {
		limit = 5 * time.Second
	}
	if attempt > 16 {
		return limit
	}
	d := base << attempt
	if d > limit {
		d = limit
	}
	return d
}
