package errors

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// RetryConfig configures retry behavior for upstream API calls.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (not including
	// the initial attempt).
	MaxRetries int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	MaxDelay time.Duration

	// Multiplier is the factor by which delay increases after each retry.
	Multiplier float64

	// RetryIf decides whether an error warrants another attempt.
	// Nil means IsRetryable.
	RetryIf func(error) bool
}

// DefaultRetryConfig returns the retry profile used for all provider calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   60 * time.Second,
		Multiplier: 2.0,
	}
}

// jitter spreads a delay by up to ±25% to avoid synchronized retries.
func jitter(d time.Duration) time.Duration {
	factor := 0.75 + rand.Float64()*0.5
	return time.Duration(float64(d) * factor)
}

// Retry executes fn with exponential backoff. Only errors the RetryIf
// predicate accepts trigger another attempt; everything else is returned
// immediately. Context cancellation aborts the wait.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := RetryWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryWithResult executes a function returning a value with retry logic.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = IsRetryable
	}

	delay := cfg.BaseDelay
	var lastErr error
	var zero T

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, Wrap(CodeCancelled, ctx.Err())
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryIf(err) || attempt >= cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return zero, Wrap(CodeCancelled, ctx.Err())
		case <-time.After(jitter(delay)):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return zero, fmt.Errorf("giving up after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}
