package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ReadRetries is how many times a failed read-only call is retried.
// Mutations are never retried since they are not idempotent.
const ReadRetries = 1

// RetryInitialInterval is the wait before the retry of a read-only call.
var RetryInitialInterval = 250 * time.Millisecond

// RetryRead runs a read-only operation, retrying once on transient failure.
// Errors that carry a kind other than ErrBackendUnavailable are not retried.
func RetryRead[T any](ctx context.Context, op func(context.Context) (T, error)) (T, error) {
	var result T
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = RetryInitialInterval
	bo.MaxElapsedTime = 0

	err := backoff.Retry(func() error {
		v, err := op(ctx)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = v
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, ReadRetries), ctx))
	return result, err
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	kind := Kind(err)
	return kind == nil || kind == ErrBackendUnavailable
}
