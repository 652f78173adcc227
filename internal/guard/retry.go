package guard

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds retries of a profile lookup that may race a
// just-completed write. It is a value so it can be tuned and tested
// independently of the guard.
type RetryPolicy struct {
	MaxTries uint
	Interval time.Duration
}

// DefaultRetryPolicy is the guard's lookup policy: the original attempt
// plus exactly one retry after a fixed short delay.
var DefaultRetryPolicy = RetryPolicy{
	MaxTries: 2,
	Interval: 200 * time.Millisecond,
}

// Retry runs op under the policy. Errors matching any of permanent stop
// the retries immediately; everything else is retried up to policy.MaxTries.
func Retry[T any](ctx context.Context, policy RetryPolicy, op func() (T, error), permanent ...error) (T, error) {
	operation := func() (T, error) {
		v, err := op()
		if err != nil {
			for _, p := range permanent {
				if errors.Is(err, p) {
					return v, backoff.Permanent(err)
				}
			}
		}
		return v, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(policy.Interval)),
		backoff.WithMaxTries(policy.MaxTries),
	)
}
