package gateway

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultPairingRetry waits once for the user to press the link button.
var DefaultPairingRetry = RetryPolicy{MaxAttempts: 2, Delay: 10 * time.Second}

// RetryPolicy is a bounded fixed-delay retry.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// attempts run out. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error, retryable func(error) bool) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !retryable(err) || attempt == attempts {
			return err
		}

		log.Warn().Err(err).
			Int("attempt", attempt).
			Dur("delay", p.Delay).
			Msg("Retrying")

		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
