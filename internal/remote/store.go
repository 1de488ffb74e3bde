// Package remote adapts live document stores to the contract the sync
// engine needs: full-collection change notifications plus whole-document
// upsert and delete.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Document is one stored entity in its serialized form.
type Document struct {
	ID   string
	Data json.RawMessage
}

// Listener receives every change of a collection as the complete current
// set of its documents. OnError reports a broken stream; the store keeps
// trying to resume it.
type Listener struct {
	OnChange func(docs []Document)
	OnError  func(err error)
}

func (l Listener) change(docs []Document) {
	if l.OnChange != nil {
		l.OnChange(docs)
	}
}

func (l Listener) fail(err error) {
	if l.OnError != nil {
		l.OnError(err)
	}
}

// Store is a document store with live queries.
type Store interface {
	Subscribe(ctx context.Context, collection string, l Listener) (unsubscribe func(), err error)
	Upsert(ctx context.Context, collection, id string, data json.RawMessage) error
	Delete(ctx context.Context, collection, id string) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	ErrUnavailable      = errors.New("remote store unavailable")
	ErrPermissionDenied = errors.New("permission denied by remote store")
)

// TransportError wraps a failed remote operation.
type TransportError struct {
	Op         string
	Collection string
	ID         string
	Retryable  bool
	Err        error
}

func (e *TransportError) Error() string {
	target := e.Collection
	if e.ID != "" {
		target += "/" + e.ID
	}
	return fmt.Sprintf("remote %s %s: %v", e.Op, target, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is worth trying again. Permission
// denials never are.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, context.Canceled) {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	return errors.Is(err, ErrUnavailable)
}

func transportErr(op, collection, id string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{
		Op:         op,
		Collection: collection,
		ID:         id,
		Retryable:  !errors.Is(err, ErrPermissionDenied),
		Err:        err,
	}
}
