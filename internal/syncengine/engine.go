// Package syncengine keeps the merged application snapshot in step with the
// remote document store. Remote collection events and local mutations run
// one at a time on a single event loop; outbound writes leave through one
// ordered lane per document.
package syncengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hifz_backend/internal/cache"
	"hifz_backend/internal/model"
	"hifz_backend/internal/mutation"
	"hifz_backend/internal/remote"
	"hifz_backend/internal/snapshot"
	"hifz_backend/pkg/logger"
	"hifz_backend/pkg/monitoring"
)

var ErrClosed = errors.New("sync engine closed")

// WriteError reports an outbound write the remote store did not accept.
type WriteError struct {
	Collection model.Collection
	DocID      string
	Op         mutation.Op
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s %s/%s: %v", e.Op, e.Collection, e.DocID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// SubscriptionError reports a broken collection stream. The engine keeps
// serving the last snapshot it has.
type SubscriptionError struct {
	Collection model.Collection
	Err        error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscription %s: %v", e.Collection, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

// Listener is called on the event loop with every new snapshot. It must
// return quickly and must not call back into the engine synchronously.
type Listener func(s *snapshot.Snapshot)

type Options struct {
	// Cache holds the last synced collections and the outbox. Defaults to
	// an in-memory cache.
	Cache cache.Store
	// WriteTimeout bounds a single remote write attempt.
	WriteTimeout time.Duration
	// PingInterval enables the connectivity monitor when positive.
	PingInterval time.Duration
	// OnError receives WriteError and SubscriptionError values.
	OnError func(err error)
}

type stream struct {
	collection model.Collection
	seq        atomic.Uint64
	alive      atomic.Bool

	mu          sync.Mutex
	unsubscribe func()
}

func (s *stream) setUnsubscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribe = fn
}

func (s *stream) stop() {
	s.alive.Store(false)
	s.mu.Lock()
	fn := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type view struct {
	fn    Listener
	alive atomic.Bool
}

type Engine struct {
	store remote.Store
	cache cache.Store
	opts  Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	tasks  chan func()

	current atomic.Pointer[snapshot.Snapshot]
	streams map[model.Collection]*stream

	viewsMu  sync.Mutex
	views    map[uint64]*view
	nextView uint64

	connMu    sync.Mutex
	connected bool
	online    chan struct{}

	lanesMu sync.Mutex
	lanes   map[string]*lane

	persist *persister

	startOnce sync.Once
	closeOnce sync.Once
}

func New(store remote.Store, opts Options) *Engine {
	if opts.Cache == nil {
		opts.Cache = cache.NewMemory()
	}
	ctx, cancel := context.WithCancel(context.Background())
	online := make(chan struct{})
	close(online)

	e := &Engine{
		store:     store,
		cache:     opts.Cache,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		tasks:     make(chan func(), 256),
		streams:   make(map[model.Collection]*stream, len(model.Collections)),
		views:     make(map[uint64]*view),
		connected: true,
		online:    online,
		lanes:     make(map[string]*lane),
		persist:   newPersister(opts.Cache),
	}
	for _, c := range model.Collections {
		e.streams[c] = &stream{collection: c}
	}
	e.current.Store(snapshot.Empty())
	monitoring.Connected.Set(1)
	return e
}

// Start seeds the snapshot from the local cache, replays the outbox and
// subscribes to every collection.
func (e *Engine) Start(ctx context.Context) error {
	var err error
	e.startOnce.Do(func() {
		err = e.start(ctx)
	})
	return err
}

func (e *Engine) start(ctx context.Context) error {
	outbox, err := e.cache.PendingWrites(ctx)
	if err != nil {
		logger.Log.Warn("Failed to read outbox", zap.Error(err))
		outbox = nil
	}
	e.seed(ctx, outbox)

	e.wg.Add(2)
	go e.loop()
	go func() {
		defer e.wg.Done()
		e.persist.run(e.ctx)
	}()

	for _, entry := range outbox {
		e.dispatch(&outbound{
			collection: model.Collection(entry.Collection),
			docID:      entry.DocID,
			op:         mutation.Op(entry.Op),
			data:       entry.Data,
			seq:        entry.Seq,
		})
	}
	if len(outbox) > 0 {
		logger.Log.Info("Replaying queued writes", zap.Int("count", len(outbox)))
	}

	var g errgroup.Group
	for _, st := range e.streams {
		st.alive.Store(true)
		g.Go(func() error {
			unsubscribe, err := e.store.Subscribe(e.ctx, string(st.collection), remote.Listener{
				OnChange: func(docs []remote.Document) { e.onRemote(st, docs) },
				OnError:  func(err error) { e.onRemoteError(st, err) },
			})
			if err != nil {
				return &SubscriptionError{Collection: st.collection, Err: err}
			}
			st.setUnsubscribe(unsubscribe)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		_ = e.Close()
		return err
	}

	if e.opts.PingInterval > 0 {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.MonitorConnectivity(e.ctx, e.opts.PingInterval)
		}()
	}
	return nil
}

// seed builds the first snapshot from the cached collections with the
// queued writes laid over them.
func (e *Engine) seed(ctx context.Context, outbox []cache.OutboxEntry) {
	cached, err := e.cache.LoadCollections(ctx)
	if err != nil {
		logger.Log.Warn("Failed to load cached collections", zap.Error(err))
		return
	}
	if len(cached) == 0 && len(outbox) == 0 {
		return
	}
	for _, entry := range outbox {
		cached[entry.Collection] = overlay(cached[entry.Collection], entry)
	}
	s := snapshot.Empty()
	for _, c := range model.Collections {
		if docs, ok := cached[string(c)]; ok {
			s = decodeCollection(c, docs)(s)
		}
	}
	s.Version = 1
	e.current.Store(s)
}

func overlay(docs []remote.Document, entry cache.OutboxEntry) []remote.Document {
	out := make([]remote.Document, 0, len(docs)+1)
	replaced := false
	for _, d := range docs {
		if d.ID != entry.DocID {
			out = append(out, d)
			continue
		}
		if entry.Op == string(mutation.OpUpsert) {
			out = append(out, remote.Document{ID: d.ID, Data: entry.Data})
		}
		replaced = true
	}
	if !replaced && entry.Op == string(mutation.OpUpsert) {
		out = append(out, remote.Document{ID: entry.DocID, Data: entry.Data})
	}
	return out
}

func (e *Engine) loop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case task := <-e.tasks:
			task()
		}
	}
}

func (e *Engine) submit(ctx context.Context, task func()) error {
	select {
	case e.tasks <- task:
		return nil
	case <-e.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current merged snapshot. It must not be modified.
func (e *Engine) Snapshot() *snapshot.Snapshot {
	return e.current.Load()
}

// Subscribe registers a snapshot listener. After unsubscribe returns the
// listener is never called again.
func (e *Engine) Subscribe(fn Listener) (unsubscribe func()) {
	v := &view{fn: fn}
	v.alive.Store(true)
	e.viewsMu.Lock()
	e.nextView++
	id := e.nextView
	e.views[id] = v
	e.viewsMu.Unlock()

	return func() {
		v.alive.Store(false)
		e.viewsMu.Lock()
		delete(e.views, id)
		e.viewsMu.Unlock()
	}
}

// publish must run on the event loop.
func (e *Engine) publish(next *snapshot.Snapshot) {
	next = next.Copy()
	next.Version = e.current.Load().Version + 1
	e.current.Store(next)

	e.viewsMu.Lock()
	views := make([]*view, 0, len(e.views))
	for _, v := range e.views {
		views = append(views, v)
	}
	e.viewsMu.Unlock()

	for _, v := range views {
		if v.alive.Load() {
			v.fn(next)
		}
	}
}

func (e *Engine) onRemote(st *stream, docs []remote.Document) {
	if !st.alive.Load() {
		return
	}
	n := st.seq.Add(1)
	monitoring.RemoteEvents.WithLabelValues(string(st.collection)).Inc()
	apply := decodeCollection(st.collection, docs)

	_ = e.submit(e.ctx, func() {
		if !st.alive.Load() {
			return
		}
		if latest := st.seq.Load(); latest != n {
			monitoring.StaleEventsDropped.WithLabelValues(string(st.collection)).Inc()
			logger.Log.Debug("Dropping stale collection event",
				zap.String("collection", string(st.collection)),
				zap.Uint64("event", n),
				zap.Uint64("latest", latest))
			return
		}
		e.publish(apply(e.current.Load()))
		e.persist.save(st.collection, docs)
	})
}

func (e *Engine) onRemoteError(st *stream, err error) {
	if !st.alive.Load() {
		return
	}
	logger.Log.Warn("Collection stream failed; serving cached snapshot",
		zap.String("collection", string(st.collection)),
		zap.Error(err))
	e.report(&SubscriptionError{Collection: st.collection, Err: err})
}

func (e *Engine) report(err error) {
	if e.opts.OnError != nil {
		e.opts.OnError(err)
	}
}

// Apply runs a mutation against the current snapshot on the event loop.
// A rejected mutation changes nothing and returns its error. Otherwise the
// new snapshot is published at once and the returned Pending completes when
// every resulting remote write has been delivered or has failed.
func (e *Engine) Apply(ctx context.Context, m mutation.Mutation) (*Pending, error) {
	type outcome struct {
		pending *Pending
		err     error
	}
	done := make(chan outcome, 1)

	err := e.submit(ctx, func() {
		res, err := m(e.current.Load())
		if err != nil {
			done <- outcome{err: err}
			return
		}
		if len(res.Writes) == 0 {
			done <- outcome{pending: newPending(0)}
			return
		}
		outs := make([]*outbound, 0, len(res.Writes))
		for _, w := range res.Writes {
			o, err := newOutbound(w)
			if err != nil {
				done <- outcome{err: err}
				return
			}
			outs = append(outs, o)
		}
		e.publish(res.Snapshot)
		p := newPending(len(outs))
		for _, o := range outs {
			o.pending = p
			e.dispatch(o)
		}
		done <- outcome{pending: p}
	})
	if err != nil {
		return nil, err
	}

	select {
	case o := <-done:
		return o.pending, o.err
	case <-e.ctx.Done():
		return nil, ErrClosed
	}
}

// Close unsubscribes every collection and stops the engine. Writes still
// queued stay in the outbox for the next start.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		for _, st := range e.streams {
			st.stop()
		}
		e.cancel()
		e.wg.Wait()
	})
	return nil
}

func newOutbound(w mutation.Write) (*outbound, error) {
	o := &outbound{collection: w.Collection, docID: w.DocID, op: w.Op}
	if w.Op == mutation.OpDelete {
		return o, nil
	}
	data, err := json.Marshal(w.Doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", w.Key(), err)
	}
	o.data = data
	return o, nil
}
