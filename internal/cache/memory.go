package cache

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"hifz_backend/internal/remote"
)

// Memory keeps everything in process memory. It is the default when no
// database is configured; nothing survives a restart.
type Memory struct {
	mu          sync.Mutex
	collections map[string][]remote.Document
	outbox      map[uint64]OutboxEntry
	nextSeq     uint64
	prefs       map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string][]remote.Document),
		outbox:      make(map[uint64]OutboxEntry),
		prefs:       make(map[string]string),
	}
}

func copyDocs(docs []remote.Document) []remote.Document {
	out := make([]remote.Document, len(docs))
	for i, d := range docs {
		out[i] = remote.Document{ID: d.ID, Data: append(json.RawMessage(nil), d.Data...)}
	}
	return out
}

func (m *Memory) LoadCollections(ctx context.Context) (map[string][]remote.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]remote.Document, len(m.collections))
	for name, docs := range m.collections {
		out[name] = copyDocs(docs)
	}
	return out, nil
}

func (m *Memory) SaveCollection(ctx context.Context, collection string, docs []remote.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = copyDocs(docs)
	return nil
}

func (m *Memory) AppendWrite(ctx context.Context, e OutboxEntry) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSeq++
	e.Seq = m.nextSeq
	e.Data = append(json.RawMessage(nil), e.Data...)
	m.outbox[e.Seq] = e
	return e.Seq, nil
}

func (m *Memory) RemoveWrite(ctx context.Context, seq uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.outbox, seq)
	return nil
}

func (m *Memory) PendingWrites(ctx context.Context) ([]OutboxEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OutboxEntry, 0, len(m.outbox))
	for _, e := range m.outbox {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (m *Memory) GetPreference(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.prefs[key]
	if !ok {
		return "", ErrPreferenceNotFound
	}
	return v, nil
}

func (m *Memory) SetPreference(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[key] = value
	return nil
}
