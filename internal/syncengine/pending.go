package syncengine

import (
	"context"
	"errors"
	"sync"
)

// Pending tracks the remote writes produced by one applied mutation.
type Pending struct {
	mu        sync.Mutex
	remaining int
	errs      []error
	err       error
	done      chan struct{}
}

func newPending(n int) *Pending {
	p := &Pending{remaining: n, done: make(chan struct{})}
	if n == 0 {
		close(p.done)
	}
	return p
}

func (p *Pending) finish(err error) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.errs = append(p.errs, err)
	}
	p.remaining--
	if p.remaining == 0 {
		p.err = errors.Join(p.errs...)
		close(p.done)
	}
}

// Done is closed once every write has completed.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Err returns the joined write errors. It is nil until Done is closed.
func (p *Pending) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Wait blocks until every write completed or ctx ends.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
