// Package cache is the engine's local durable storage: the last synced
// documents of every collection, the outbox of writes not yet confirmed by
// the remote store, and device-local preferences such as the admin
// password.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"hifz_backend/internal/remote"
)

var ErrPreferenceNotFound = errors.New("preference not found")

// OutboxEntry is one queued outbound write. Seq orders entries in the
// order they were queued.
type OutboxEntry struct {
	Seq        uint64
	Collection string
	DocID      string
	Op         string
	Data       json.RawMessage
	CreatedAt  time.Time
}

type Store interface {
	LoadCollections(ctx context.Context) (map[string][]remote.Document, error)
	SaveCollection(ctx context.Context, collection string, docs []remote.Document) error

	AppendWrite(ctx context.Context, e OutboxEntry) (uint64, error)
	RemoveWrite(ctx context.Context, seq uint64) error
	PendingWrites(ctx context.Context) ([]OutboxEntry, error)

	GetPreference(ctx context.Context, key string) (string, error)
	SetPreference(ctx context.Context, key, value string) error
}
