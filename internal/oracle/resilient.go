package oracle

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Resilient wraps an Oracle with a retry policy. It never returns an error:
// a call that still fails after the policy is spent yields the sentence
// unchanged.
type Resilient struct {
	inner          Oracle
	policy         Policy
	retryUnchanged int
	logger         *zap.Logger

	calls    atomic.Int64
	failures atomic.Int64
}

// ResilientOption configures a Resilient oracle.
type ResilientOption func(*Resilient)

// WithLogger sets the logger for retries and fallbacks.
func WithLogger(logger *zap.Logger) ResilientOption {
	return func(r *Resilient) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRetryUnchanged asks the inner oracle again, up to n more times, when it
// returns the sentence unchanged.
func WithRetryUnchanged(n int) ResilientOption {
	return func(r *Resilient) {
		r.retryUnchanged = max(n, 0)
	}
}

// NewResilient wraps inner with policy.
func NewResilient(inner Oracle, policy Policy, opts ...ResilientOption) *Resilient {
	r := &Resilient{
		inner:  inner,
		policy: policy,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.policy.OnRetry == nil {
		r.policy.OnRetry = func(attempt int, wait time.Duration, err error) {
			r.logger.Warn("oracle call failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err))
		}
	}
	return r
}

// Suppress asks the inner oracle, retrying transient failures.
func (r *Resilient) Suppress(ctx context.Context, sentence, unit string) (string, error) {
	for round := 0; round <= r.retryUnchanged; round++ {
		r.calls.Add(1)
		var reply string
		err := r.policy.Do(ctx, func(ctx context.Context) error {
			var err error
			reply, err = r.inner.Suppress(ctx, sentence, unit)
			return err
		})
		if err != nil {
			r.failures.Add(1)
			r.logger.Warn("oracle unavailable, leaving sentence unchanged",
				zap.String("unit", unit),
				zap.Error(err))
			return sentence, nil
		}
		if Classify(sentence, reply) != Unchanged {
			return reply, nil
		}
	}
	return sentence, nil
}

// Stats reports how many calls were made and how many fell back.
func (r *Resilient) Stats() (calls, failures int64) {
	return r.calls.Load(), r.failures.Load()
}
