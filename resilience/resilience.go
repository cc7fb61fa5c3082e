// Package resilience wraps a lower-transport call with retry and
// circuit-breaker policies built on failsafe-go, so a flaky or overloaded
// origin doesn't take the caller down with it.
package resilience

import (
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// Config holds resilience policies. Both are disabled (nil) unless set, so
// resilience never changes behavior for callers who didn't ask for it.
type Config struct {
	RetryPolicy    retrypolicy.RetryPolicy[*http.Response]
	CircuitBreaker circuitbreaker.CircuitBreaker[*http.Response]
}

// Executor runs an origin call through the configured policies.
type Executor struct {
	policies []failsafe.Policy[*http.Response]
}

// New builds an Executor from cfg. An Executor with no configured policies
// executes the call directly.
func New(cfg Config) *Executor {
	var policies []failsafe.Policy[*http.Response]
	if cfg.RetryPolicy != nil {
		policies = append(policies, cfg.RetryPolicy)
	}
	if cfg.CircuitBreaker != nil {
		policies = append(policies, cfg.CircuitBreaker)
	}
	return &Executor{policies: policies}
}

// Execute runs fn through the configured policies: retry (outermost) wraps
// the circuit breaker (innermost), so each retry attempt passes through the
// breaker.
func (e *Executor) Execute(fn func() (*http.Response, error)) (*http.Response, error) {
	if e == nil || len(e.policies) == 0 {
		return fn()
	}
	return failsafe.With(e.policies...).Get(fn)
}

// RetryPolicyBuilder returns a retry-policy builder pre-configured with
// sensible HTTP defaults: retry on transport errors or 5xx, up to 3 times,
// with exponential backoff from 100ms to 10s.
func RetryPolicyBuilder() retrypolicy.Builder[*http.Response] {
	return retrypolicy.NewBuilder[*http.Response]().
		HandleIf(isRetryable).
		WithMaxRetries(3).
		WithBackoff(100*time.Millisecond, 10*time.Second)
}

// CircuitBreakerBuilder returns a circuit-breaker builder pre-configured
// with sensible HTTP defaults: open after 5 consecutive failures, close
// after 2 consecutive successes in half-open, with a 60s open delay.
func CircuitBreakerBuilder() circuitbreaker.Builder[*http.Response] {
	return circuitbreaker.NewBuilder[*http.Response]().
		HandleIf(isRetryable).
		WithFailureThreshold(5).
		WithSuccessThreshold(2).
		WithDelay(60 * time.Second)
}

func isRetryable(r *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return r != nil && r.StatusCode >= 500
}
