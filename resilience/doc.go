// Package resilience guards calls to the OpenViking server.
//
// Three patterns are composed by Executor, outermost first:
//
//   - Bulkhead: caps the number of in-flight upstream requests.
//   - Circuit breaker: fails fast with ErrCircuitOpen after repeated
//     transport failures, then probes for recovery.
//   - Retry: re-runs idempotent requests with exponential backoff.
//
// Each attempt runs under the policy's per-attempt timeout.
//
//	exec := resilience.NewExecutor(resilience.Policy{
//	    Timeout: 10 * time.Second,
//	    Retry:   resilience.RetryConfig{MaxAttempts: 3},
//	    Breaker: resilience.CircuitBreakerConfig{MaxFailures: 5},
//	})
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return doRequest(ctx)
//	})
package resilience
