package remote

import (
	"context"
	"encoding/json"
	"sync"
)

// WriteOp records one write applied by the memory store.
type WriteOp struct {
	Op         string
	Collection string
	ID         string
	Data       json.RawMessage
}

type memCollection struct {
	order []string
	docs  map[string]json.RawMessage
}

// Memory is an in-process Store. It backs the "memory" driver and the
// tests; it can be switched offline and made to deny writes.
type Memory struct {
	mu      sync.Mutex
	colls   map[string]*memCollection
	subs    map[string]map[*memSubscription]struct{}
	offline bool
	denied  map[string]bool
	hook    func(WriteOp)
	writes  []WriteOp
}

func NewMemory() *Memory {
	return &Memory{
		colls:  make(map[string]*memCollection),
		subs:   make(map[string]map[*memSubscription]struct{}),
		denied: make(map[string]bool),
	}
}

func (m *Memory) coll(name string) *memCollection {
	c, ok := m.colls[name]
	if !ok {
		c = &memCollection{docs: make(map[string]json.RawMessage)}
		m.colls[name] = c
	}
	return c
}

func (m *Memory) documents(name string) []Document {
	c := m.coll(name)
	docs := make([]Document, 0, len(c.order))
	for _, id := range c.order {
		docs = append(docs, Document{ID: id, Data: append(json.RawMessage(nil), c.docs[id]...)})
	}
	return docs
}

// notify must be called with m.mu held.
func (m *Memory) notify(name string) {
	if m.offline {
		return
	}
	docs := m.documents(name)
	for sub := range m.subs[name] {
		sub.push(docs)
	}
}

func (m *Memory) Subscribe(ctx context.Context, collection string, l Listener) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, transportErr("subscribe", collection, "", err)
	}
	sub := &memSubscription{
		listener: l,
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go sub.run()

	m.mu.Lock()
	if m.subs[collection] == nil {
		m.subs[collection] = make(map[*memSubscription]struct{})
	}
	m.subs[collection][sub] = struct{}{}
	if !m.offline {
		sub.push(m.documents(collection))
	}
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs[collection], sub)
		m.mu.Unlock()
		sub.stop()
	}, nil
}

func (m *Memory) Upsert(ctx context.Context, collection, id string, data json.RawMessage) error {
	return m.write(ctx, WriteOp{Op: "upsert", Collection: collection, ID: id, Data: append(json.RawMessage(nil), data...)})
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	return m.write(ctx, WriteOp{Op: "delete", Collection: collection, ID: id})
}

func (m *Memory) write(ctx context.Context, op WriteOp) error {
	if err := ctx.Err(); err != nil {
		return transportErr(op.Op, op.Collection, op.ID, err)
	}
	m.mu.Lock()
	hook := m.hook
	m.mu.Unlock()
	if hook != nil {
		hook(op)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return transportErr(op.Op, op.Collection, op.ID, ErrUnavailable)
	}
	if m.denied[op.Collection] {
		return transportErr(op.Op, op.Collection, op.ID, ErrPermissionDenied)
	}
	c := m.coll(op.Collection)
	switch op.Op {
	case "upsert":
		if _, ok := c.docs[op.ID]; !ok {
			c.order = append(c.order, op.ID)
		}
		c.docs[op.ID] = op.Data
	case "delete":
		if _, ok := c.docs[op.ID]; !ok {
			return nil
		}
		delete(c.docs, op.ID)
		for i, id := range c.order {
			if id == op.ID {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	m.writes = append(m.writes, op)
	m.notify(op.Collection)
	return nil
}

func (m *Memory) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return ErrUnavailable
	}
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, subs := range m.subs {
		for sub := range subs {
			sub.stop()
		}
		delete(m.subs, name)
	}
	return nil
}

// SetOffline simulates losing or regaining the connection. Coming back
// online redelivers every collection to its subscribers.
func (m *Memory) SetOffline(offline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	was := m.offline
	m.offline = offline
	if was && !offline {
		for name := range m.subs {
			m.notify(name)
		}
	}
}

// Deny makes every write to a collection fail with ErrPermissionDenied.
func (m *Memory) Deny(collection string, deny bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied[collection] = deny
}

// SetHook installs a function called before each write is applied. It
// runs outside the store lock and may block.
func (m *Memory) SetHook(hook func(WriteOp)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = hook
}

// Get returns the stored form of one document.
func (m *Memory) Get(collection, id string) (json.RawMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.coll(collection).docs[id]
	return append(json.RawMessage(nil), data...), ok
}

// Put stores a document as if another client had written it.
func (m *Memory) Put(collection, id string, data json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.coll(collection)
	if _, ok := c.docs[id]; !ok {
		c.order = append(c.order, id)
	}
	c.docs[id] = append(json.RawMessage(nil), data...)
	m.notify(collection)
}

// Writes lists the writes applied so far, in order.
func (m *Memory) Writes() []WriteOp {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]WriteOp(nil), m.writes...)
}

type memSubscription struct {
	listener Listener
	mu       sync.Mutex
	pending  [][]Document
	signal   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (s *memSubscription) push(docs []Document) {
	s.mu.Lock()
	s.pending = append(s.pending, docs)
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *memSubscription) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *memSubscription) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.signal:
		}
		for {
			s.mu.Lock()
			if len(s.pending) == 0 {
				s.mu.Unlock()
				break
			}
			docs := s.pending[0]
			s.pending = s.pending[1:]
			s.mu.Unlock()

			select {
			case <-s.done:
				return
			default:
			}
			s.listener.change(docs)
		}
	}
}
