package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig describes an exponential backoff schedule. Zero fields take
// the defaults applied by NewRetry.
type RetryConfig struct {
	MaxAttempts  int           // including the first; default 3
	InitialDelay time.Duration // default 100ms
	MaxDelay     time.Duration // default 5s
	Multiplier   float64       // default 2
	// Jitter spreads each delay by up to 25% either way.
	Jitter bool

	// RetryIf decides whether a failed attempt is retried. Errors marked
	// with Permanent never are. Nil retries every error.
	RetryIf func(err error) bool

	// OnRetry runs before the wait that precedes attempt+1.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry repeats an operation on a backoff schedule.
type Retry struct {
	config RetryConfig
}

func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 5 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}
	return &Retry{config: config}
}

func (r *Retry) schedule() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.config.InitialDelay
	b.MaxInterval = r.config.MaxDelay
	b.Multiplier = r.config.Multiplier
	b.RandomizationFactor = 0
	if r.config.Jitter {
		b.RandomizationFactor = 0.25
	}
	return b
}

// Execute runs op until it succeeds, fails with an error RetryIf rejects,
// or MaxAttempts is spent. Rejected errors come back unchanged. Exhaustion
// wraps the last error with ErrMaxRetriesExceeded.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var (
		attempt int
		final   error
	)
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if err := ctx.Err(); err != nil {
			final = err
			return struct{}{}, backoff.Permanent(err)
		}
		err := op(ctx)
		switch {
		case err == nil:
			return struct{}{}, nil
		case IsPermanent(err) || !r.config.RetryIf(err):
			final = unwrapPermanent(err)
			return struct{}{}, backoff.Permanent(final)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(r.schedule()),
		backoff.WithMaxTries(uint(r.config.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, delay time.Duration) {
			if r.config.OnRetry != nil {
				r.config.OnRetry(attempt, err, delay)
			}
		}),
	)

	switch {
	case err == nil:
		return nil
	case final != nil:
		return final
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return err
	case r.config.MaxAttempts == 1:
		return err
	}
	return fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, err)
}

func (r *Retry) Config() RetryConfig {
	return r.config
}
