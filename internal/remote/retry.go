package remote

import (
	"context"
	"encoding/json"
	"time"
)

type RetryPolicy struct {
	Attempts   int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

type retrying struct {
	Store
	policy RetryPolicy
}

// WithRetry retries failed writes with exponential backoff. Errors that
// are not retryable, such as permission denials, return at once. The last
// error is returned when the attempts run out.
func WithRetry(s Store, p RetryPolicy) Store {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.Backoff <= 0 {
		p.Backoff = 300 * time.Millisecond
	}
	return &retrying{Store: s, policy: p}
}

func (r *retrying) Upsert(ctx context.Context, collection, id string, data json.RawMessage) error {
	return r.do(ctx, func() error { return r.Store.Upsert(ctx, collection, id, data) })
}

func (r *retrying) Delete(ctx context.Context, collection, id string) error {
	return r.do(ctx, func() error { return r.Store.Delete(ctx, collection, id) })
}

func (r *retrying) do(ctx context.Context, fn func() error) error {
	backoff := r.policy.Backoff
	var err error
	for attempt := 1; attempt <= r.policy.Attempts; attempt++ {
		err = fn()
		if err == nil || !IsRetryable(err) || attempt == r.policy.Attempts {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
		backoff *= 2
		if r.policy.MaxBackoff > 0 && backoff > r.policy.MaxBackoff {
			backoff = r.policy.MaxBackoff
		}
	}
	return err
}
