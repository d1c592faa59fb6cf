package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds compensating writes such as deleting a partial run or
// reverting an approval
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
}

// run executes op until it succeeds, the retries are spent or ctx ends.
// Compensation must outlive the request that triggered it, so ctx is
// detached from its parent's cancellation.
func (p RetryPolicy) run(ctx context.Context, op func(ctx context.Context) error) error {
	ctx = context.WithoutCancel(ctx)

	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	b.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		return op(ctx)
	}, backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx))
}
