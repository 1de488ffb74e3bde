package remote

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]Document
	errs  []error
}

func (r *recorder) listener() Listener {
	return Listener{
		OnChange: func(docs []Document) {
			r.mu.Lock()
			r.calls = append(r.calls, docs)
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recorder) last() []Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

func ids(docs []Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}

func TestMemorySubscribeDeliversFullCollection(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Upsert(ctx, "teachers", "t1", json.RawMessage(`{"id":"t1"}`)))

	rec := &recorder{}
	unsubscribe, err := m.Subscribe(ctx, "teachers", rec.listener())
	require.NoError(t, err)
	defer unsubscribe()

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"t1"}, ids(rec.last()))

	require.NoError(t, m.Upsert(ctx, "teachers", "t2", json.RawMessage(`{"id":"t2"}`)))
	require.NoError(t, m.Upsert(ctx, "teachers", "t1", json.RawMessage(`{"id":"t1","name":"x"}`)))
	require.Eventually(t, func() bool { return rec.count() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"t1", "t2"}, ids(rec.last()))
	assert.JSONEq(t, `{"id":"t1","name":"x"}`, string(rec.last()[0].Data))

	require.NoError(t, m.Delete(ctx, "teachers", "t1"))
	require.Eventually(t, func() bool { return rec.count() == 4 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"t2"}, ids(rec.last()))
}

func TestMemoryUnsubscribeStopsDelivery(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	rec := &recorder{}
	unsubscribe, err := m.Subscribe(ctx, "students", rec.listener())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	unsubscribe()
	require.NoError(t, m.Upsert(ctx, "students", "s1", json.RawMessage(`{}`)))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestMemoryOfflineAndDenied(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.SetOffline(true)
	err := m.Upsert(ctx, "students", "s1", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, m.Ping(ctx), ErrUnavailable)

	m.SetOffline(false)
	require.NoError(t, m.Ping(ctx))

	m.Deny("students", true)
	err = m.Upsert(ctx, "students", "s1", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.False(t, IsRetryable(err))

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "upsert", te.Op)
	assert.Equal(t, "students/s1", te.Collection+"/"+te.ID)
	assert.Empty(t, m.Writes())
}

func TestMemoryReconnectRedelivers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	rec := &recorder{}
	unsubscribe, err := m.Subscribe(ctx, "students", rec.listener())
	require.NoError(t, err)
	defer unsubscribe()
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	m.SetOffline(true)
	m.Put("students", "s1", json.RawMessage(`{"id":"s1"}`))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, rec.count())

	m.SetOffline(false)
	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"s1"}, ids(rec.last()))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "unavailable", err: ErrUnavailable, want: true},
		{name: "denied", err: ErrPermissionDenied, want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "transport retryable", err: &TransportError{Op: "upsert", Retryable: true, Err: assert.AnError}, want: true},
		{name: "transport final", err: &TransportError{Op: "upsert", Err: assert.AnError}, want: false},
		{name: "wrapped denied", err: transportErr("delete", "students", "s1", ErrPermissionDenied), want: false},
		{name: "plain", err: assert.AnError, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
