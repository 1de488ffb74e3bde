package remote

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyStore struct {
	*Memory
	failures int32
	err      error
	calls    int32
}

func (f *flakyStore) Upsert(ctx context.Context, collection, id string, data json.RawMessage) error {
	atomic.AddInt32(&f.calls, 1)
	if atomic.AddInt32(&f.failures, -1) >= 0 {
		return f.err
	}
	return f.Memory.Upsert(ctx, collection, id, data)
}

func TestWithRetry(t *testing.T) {
	policy := RetryPolicy{Attempts: 3, Backoff: time.Millisecond}

	t.Run("recovers from transient failures", func(t *testing.T) {
		fs := &flakyStore{Memory: NewMemory(), failures: 2, err: transportErr("upsert", "students", "s1", ErrUnavailable)}
		s := WithRetry(fs, policy)
		require.NoError(t, s.Upsert(context.Background(), "students", "s1", json.RawMessage(`{}`)))
		assert.EqualValues(t, 3, atomic.LoadInt32(&fs.calls))
		_, ok := fs.Get("students", "s1")
		assert.True(t, ok)
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		fs := &flakyStore{Memory: NewMemory(), failures: 5, err: transportErr("upsert", "students", "s1", ErrUnavailable)}
		s := WithRetry(fs, policy)
		err := s.Upsert(context.Background(), "students", "s1", json.RawMessage(`{}`))
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.EqualValues(t, 3, atomic.LoadInt32(&fs.calls))
	})

	t.Run("does not retry permission denials", func(t *testing.T) {
		fs := &flakyStore{Memory: NewMemory(), failures: 5, err: transportErr("upsert", "students", "s1", ErrPermissionDenied)}
		s := WithRetry(fs, policy)
		err := s.Upsert(context.Background(), "students", "s1", json.RawMessage(`{}`))
		assert.ErrorIs(t, err, ErrPermissionDenied)
		assert.EqualValues(t, 1, atomic.LoadInt32(&fs.calls))
	})

	t.Run("stops when the context ends", func(t *testing.T) {
		fs := &flakyStore{Memory: NewMemory(), failures: 5, err: transportErr("upsert", "students", "s1", ErrUnavailable)}
		s := WithRetry(fs, RetryPolicy{Attempts: 10, Backoff: time.Hour})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		err := s.Upsert(ctx, "students", "s1", json.RawMessage(`{}`))
		assert.Error(t, err)
		assert.EqualValues(t, 1, atomic.LoadInt32(&fs.calls))
	})
}
