package resilience

import (
	"context"
	"errors"
	"time"
)

// Policy bundles the patterns applied to one upstream.
type Policy struct {
	// Timeout bounds each attempt. Zero disables it.
	Timeout time.Duration

	Retry    RetryConfig
	Breaker  CircuitBreakerConfig
	Bulkhead BulkheadConfig

	// DisableRetry runs every operation exactly once.
	DisableRetry bool
}

// Executor composes bulkhead, circuit breaker, retry and timeout.
type Executor struct {
	timeout  time.Duration
	retry    *Retry
	breaker  *CircuitBreaker
	bulkhead *Bulkhead
}

// NewExecutor builds an executor from p. Unset fields take each pattern's
// defaults.
func NewExecutor(p Policy) *Executor {
	e := &Executor{
		timeout:  p.Timeout,
		breaker:  NewCircuitBreaker(p.Breaker),
		bulkhead: NewBulkhead(p.Bulkhead),
	}
	if !p.DisableRetry {
		e.retry = NewRetry(p.Retry)
	}
	return e
}

// Breaker exposes the circuit breaker for health reporting.
func (e *Executor) Breaker() *CircuitBreaker {
	return e.breaker
}

// Execute runs op through the bulkhead and circuit breaker, retrying when
// retryable is true.
func (e *Executor) Execute(ctx context.Context, retryable bool, op func(context.Context) error) error {
	attempt := op
	if e.timeout > 0 {
		attempt = func(ctx context.Context) error {
			return withTimeout(ctx, e.timeout, op)
		}
	}

	run := attempt
	if retryable && e.retry != nil {
		run = func(ctx context.Context) error {
			return e.retry.Execute(ctx, attempt)
		}
	}

	return e.bulkhead.Execute(ctx, func(ctx context.Context) error {
		return e.breaker.Execute(ctx, run)
	})
}

// ExecuteUnbounded runs op once through the bulkhead and circuit breaker
// without the per-attempt timeout. Only ctx bounds it.
func (e *Executor) ExecuteUnbounded(ctx context.Context, op func(context.Context) error) error {
	return e.bulkhead.Execute(ctx, func(ctx context.Context) error {
		return e.breaker.Execute(ctx, op)
	})
}

func withTimeout(ctx context.Context, d time.Duration, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	err := op(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Join(ErrTimeout, err)
	}
	return err
}
