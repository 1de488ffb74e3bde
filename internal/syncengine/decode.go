package syncengine

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"hifz_backend/internal/cache"
	"hifz_backend/internal/model"
	"hifz_backend/internal/remote"
	"hifz_backend/internal/snapshot"
	"hifz_backend/pkg/logger"
)

type applyFunc func(s *snapshot.Snapshot) *snapshot.Snapshot

func decodeAll[T model.Entity](c model.Collection, docs []remote.Document) []T {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := json.Unmarshal(d.Data, &v); err != nil {
			logger.Log.Warn("Skipping undecodable document",
				zap.String("collection", string(c)),
				zap.String("id", d.ID),
				zap.Error(err))
			continue
		}
		if v.EntityID() != d.ID {
			logger.Log.Warn("Skipping document with mismatched id",
				zap.String("collection", string(c)),
				zap.String("id", d.ID),
				zap.String("entity_id", v.EntityID()))
			continue
		}
		out = append(out, v)
	}
	return out
}

// decodeCollection turns one full collection event into the change it
// makes to a snapshot.
func decodeCollection(c model.Collection, docs []remote.Document) applyFunc {
	switch c {
	case model.CollectionStudents:
		coll := snapshot.NewCollection(decodeAll[model.Student](c, docs))
		return func(s *snapshot.Snapshot) *snapshot.Snapshot { return s.WithStudents(coll) }
	case model.CollectionTeachers:
		coll := snapshot.NewCollection(decodeAll[model.Teacher](c, docs))
		return func(s *snapshot.Snapshot) *snapshot.Snapshot { return s.WithTeachers(coll) }
	case model.CollectionAnnouncements:
		coll := snapshot.NewCollection(decodeAll[model.Announcement](c, docs))
		return func(s *snapshot.Snapshot) *snapshot.Snapshot { return s.WithAnnouncements(coll) }
	case model.CollectionAdabArchive:
		coll := snapshot.NewCollection(decodeAll[model.AdabSession](c, docs))
		return func(s *snapshot.Snapshot) *snapshot.Snapshot { return s.WithAdabArchive(coll) }
	case model.CollectionSettings:
		settings := model.Settings{ID: model.SettingsDocID}
		for _, st := range decodeAll[model.Settings](c, docs) {
			settings = st
		}
		return func(s *snapshot.Snapshot) *snapshot.Snapshot { return s.WithSettings(settings) }
	}
	return func(s *snapshot.Snapshot) *snapshot.Snapshot { return s }
}

// persister writes applied collections to the cache off the event loop.
// Only the latest version of each collection is kept while a save runs.
type persister struct {
	cache   cache.Store
	mu      sync.Mutex
	pending map[model.Collection][]remote.Document
	signal  chan struct{}
}

func newPersister(c cache.Store) *persister {
	return &persister{
		cache:   c,
		pending: make(map[model.Collection][]remote.Document),
		signal:  make(chan struct{}, 1),
	}
}

func (p *persister) save(c model.Collection, docs []remote.Document) {
	p.mu.Lock()
	p.pending[c] = docs
	p.mu.Unlock()
	select {
	case p.signal <- struct{}{}:
	default:
	}
}

func (p *persister) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.flush(context.Background())
			return
		case <-p.signal:
			p.flush(ctx)
		}
	}
}

func (p *persister) flush(ctx context.Context) {
	p.mu.Lock()
	batch := p.pending
	p.pending = make(map[model.Collection][]remote.Document)
	p.mu.Unlock()

	for c, docs := range batch {
		if err := p.cache.SaveCollection(ctx, string(c), docs); err != nil {
			logger.Log.Warn("Failed to cache collection", zap.String("collection", string(c)), zap.Error(err))
		}
	}
}
