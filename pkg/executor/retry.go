package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"socratic-tutor-be/internal/apperror"
	"socratic-tutor-be/internal/pkg/logger"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 100 * time.Millisecond
)

// RetryPolicy bounds how often a model call is attempted. The wait before
// attempt n+1 is BaseDelay * 2^(n-1).
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	return p
}

// Delay returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	p = p.withDefaults()
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseDelay << (attempt - 1)
}

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     p.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         p.Delay(p.MaxAttempts),
	}
}

// CallError is returned once every attempt of a model call has failed.
type CallError struct {
	Operation string
	Attempts  int
	Err       error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Operation, e.Attempts, e.Err)
}

func (e *CallError) Unwrap() []error {
	return []error{apperror.ErrModelCallExhausted, e.Err}
}

var (
	ErrEmptyResponse = errors.New("empty response")
	ErrEmptyAudio    = errors.New("no audio payload")
)

type attemptFunc[T any] func(ctx context.Context, attempt int) (T, error)

func retry[T any](ctx context.Context, policy RetryPolicy, op string, log logger.ILogger, fn attemptFunc[T]) (T, int, error) {
	policy = policy.withDefaults()
	attempts := 0

	res, err := backoff.Retry(ctx, func() (T, error) {
		attempts++
		out, err := fn(ctx, attempts)
		if err != nil {
			log.Warn("EXECUTOR", "Model call attempt failed", map[string]interface{}{
				"operation":    op,
				"attempt":      attempts,
				"max_attempts": policy.MaxAttempts,
				"error":        err.Error(),
			})
		}
		return out, err
	},
		backoff.WithBackOff(policy.backOff()),
		backoff.WithMaxTries(uint(policy.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
	)
	if err == nil {
		return res, attempts, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, attempts, fmt.Errorf("%s: %w", op, err)
	}

	log.Error("EXECUTOR", "Model call exhausted", map[string]interface{}{
		"operation": op,
		"attempts":  attempts,
		"error":     err.Error(),
	})
	return res, attempts, &CallError{Operation: op, Attempts: attempts, Err: err}
}
