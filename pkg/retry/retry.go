// Package retry provides retry logic with configurable backoff for
// page loads and other browser operations that fail transiently.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "serpgrab/pkg/errors"
	"serpgrab/pkg/logger"
)

// Operation is a function that performs an operation that might need retrying
type Operation func() error

// OperationWithResult is a function that returns a result and might need retrying
type OperationWithResult[T any] func() (T, error)

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts (0 means unlimited)
	MaxAttempts int
	// Backoff strategy to use
	Backoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before each retry attempt
	OnRetry func(attempt int, err error, delay time.Duration)
	// Context for cancellation
	Context context.Context
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.GetLogger(),
	}
}

// DefaultRetryIf retries typed errors according to their kind and never
// retries cancellation.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	var typed *errs.Error
	if errors.As(err, &typed) {
		return errs.IsRetryable(typed.Type)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return true
}

// Do executes an operation with retry logic
func Do(op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var lastErr error
	attempt := 0

	for {
		attempt++

		if cfg.MaxAttempts > 0 && attempt > cfg.MaxAttempts {
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
		}

		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if cfg.RetryIf != nil && !cfg.RetryIf(err) {
			return err
		}

		delay := time.Duration(0)
		if cfg.Backoff != nil {
			delay = cfg.Backoff.NextDelay(attempt)
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}
		if cfg.Logger != nil {
			cfg.Logger.WarnWithFields("operation failed, retrying", map[string]interface{}{
				"attempt": attempt,
				"delay":   delay,
				"error":   err.Error(),
			})
		}

		ctx := cfg.Context
		if ctx == nil {
			ctx = context.Background()
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](op OperationWithResult[T], cfg *Config) (T, error) {
	var result T
	err := Do(func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, cfg)
	return result, err
}
