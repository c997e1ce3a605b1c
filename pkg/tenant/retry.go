package tenant

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// Result reports the outcome of a retried network operation.
type Result struct {
	OK       bool
	Err      error
	Attempts int

	// Fallback is set when every attempt failed and the caller should
	// degrade to its next source instead of treating this as fatal.
	Fallback bool
}

// RetryConfig bounds the retry policy.
type RetryConfig struct {
	// MaxAttempts is the total number of calls, including the first
	// (default: 3).
	MaxAttempts int

	// BaseDelay is the wait before the first retry; it doubles each
	// attempt (default: 200ms).
	BaseDelay time.Duration

	// MaxDelay caps the doubling (default: 10s).
	MaxDelay time.Duration

	// MaxJitter is the upper bound of the random jitter added to each
	// wait (default: 250ms).
	MaxJitter time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 200 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.MaxJitter <= 0 {
		c.MaxJitter = 250 * time.Millisecond
	}
	return c
}

// Retrier wraps network-dependent operations with bounded retry and
// exponential backoff. It is the only place retry policy lives; the
// attribute store, verifier and resolver all delegate here.
type Retrier struct {
	config RetryConfig
	logger *slog.Logger

	// sleep waits for d or until ctx is done. Injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a retrier with the given policy.
func NewRetrier(config RetryConfig, logger *slog.Logger) *Retrier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{
		config: config.withDefaults(),
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Do runs op, retrying transient failures with capped exponential backoff
// plus jitter. It never propagates the operation's error directly: after
// exhausting attempts it returns a structured failure with Fallback set so
// callers degrade instead of crashing.
func (r *Retrier) Do(ctx context.Context, name string, op func(ctx context.Context) error) Result {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := r.backoff(attempt - 1)
			r.logger.Debug("retrying operation", "op", name, "attempt", attempt, "delay", delay)
			if err := r.sleep(ctx, delay); err != nil {
				return Result{Err: err, Attempts: attempt - 1, Fallback: true}
			}
		}

		err := op(ctx)
		if err == nil {
			return Result{OK: true, Attempts: attempt}
		}
		lastErr = err

		if ctx.Err() != nil {
			return Result{Err: ctx.Err(), Attempts: attempt, Fallback: true}
		}
	}

	r.logger.Warn("operation failed after retries", "op", name, "attempts", r.config.MaxAttempts, "error", lastErr)
	return Result{Err: lastErr, Attempts: r.config.MaxAttempts, Fallback: true}
}

// backoff computes the wait before the given retry (1-based): base delay
// doubling per retry, capped, plus random jitter.
func (r *Retrier) backoff(retry int) time.Duration {
	delay := r.config.BaseDelay << (retry - 1)
	if delay > r.config.MaxDelay || delay <= 0 {
		delay = r.config.MaxDelay
	}
	return delay + time.Duration(rand.Int63n(int64(r.config.MaxJitter)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
