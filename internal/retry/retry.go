// Package retry runs remote reads with a fixed, bounded retry policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/gorm"
)

// ErrExhausted is returned when every attempt failed with a transient error.
var ErrExhausted = errors.New("remote operation failed after retries")

// Policy bounds the number of attempts and the pause between them.
type Policy struct {
	Attempts int
	Delay    time.Duration
	// OnRetry is called after a failed attempt that will be retried.
	OnRetry func(err error, wait time.Duration)
}

// DefaultPolicy is three attempts one second apart.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Delay: time.Second}
}

// Permanent marks err so Do returns it without further attempts.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, fails permanently or runs out of attempts.
// Missing records and context errors are never retried.
func Do(ctx context.Context, policy Policy, op func(ctx context.Context) error) error {
	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	permanent := false
	operation := func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}

		var stop *backoff.PermanentError
		if errors.As(err, &stop) || isPermanent(err) {
			permanent = true
			if stop != nil {
				return stop
			}
			return backoff.Permanent(err)
		}
		return err
	}

	schedule := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Delay), uint64(attempts-1)),
		ctx,
	)

	var notify backoff.Notify
	if policy.OnRetry != nil {
		notify = backoff.Notify(policy.OnRetry)
	}

	err := backoff.RetryNotify(operation, schedule, notify)
	switch {
	case err == nil:
		return nil
	case permanent:
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return fmt.Errorf("%w: %w", ErrExhausted, err)
	}
}

// Value is Do for operations that produce a result.
func Value[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, policy, func(ctx context.Context) error {
		value, err := op(ctx)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	return result, err
}

func isPermanent(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
