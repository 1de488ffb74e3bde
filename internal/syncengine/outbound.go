package syncengine

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"hifz_backend/internal/cache"
	"hifz_backend/internal/model"
	"hifz_backend/internal/mutation"
	"hifz_backend/internal/remote"
	"hifz_backend/pkg/logger"
	"hifz_backend/pkg/monitoring"
	"hifz_backend/pkg/tracing"
)

type outbound struct {
	collection model.Collection
	docID      string
	op         mutation.Op
	data       json.RawMessage
	seq        uint64 // outbox position, zero until stored
	pending    *Pending
}

func (o *outbound) key() string {
	return string(o.collection) + "/" + o.docID
}

// lane is the FIFO of writes to one document. Writes in a lane are sent
// one after another; different lanes proceed independently.
type lane struct {
	queue []*outbound
}

// dispatch stores the write in the outbox and queues it on its document's
// lane. The outbox entry exists before any delivery attempt, so a write
// waiting behind others on its lane survives a crash or Close.
func (e *Engine) dispatch(o *outbound) {
	monitoring.PendingWrites.Inc()
	e.keep(o)
	key := o.key()

	e.lanesMu.Lock()
	defer e.lanesMu.Unlock()
	if l, ok := e.lanes[key]; ok {
		l.queue = append(l.queue, o)
		return
	}
	l := &lane{queue: []*outbound{o}}
	e.lanes[key] = l
	e.wg.Add(1)
	go e.drain(key, l)
}

func (e *Engine) keep(o *outbound) {
	if o.seq != 0 {
		return
	}
	seq, err := e.cache.AppendWrite(e.ctx, cache.OutboxEntry{
		Collection: string(o.collection),
		DocID:      o.docID,
		Op:         string(o.op),
		Data:       o.data,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		logger.Log.Warn("Failed to store write in outbox", zap.String("doc", o.key()), zap.Error(err))
		return
	}
	o.seq = seq
}

func (e *Engine) drain(key string, l *lane) {
	defer e.wg.Done()
	for {
		e.lanesMu.Lock()
		if len(l.queue) == 0 {
			delete(e.lanes, key)
			e.lanesMu.Unlock()
			return
		}
		o := l.queue[0]
		l.queue = l.queue[1:]
		e.lanesMu.Unlock()

		e.deliver(o)
	}
}

func (e *Engine) deliver(o *outbound) {
	defer monitoring.PendingWrites.Dec()

	err := e.send(o)
	if errors.Is(err, ErrClosed) {
		o.pending.finish(ErrClosed)
		return
	}
	if o.seq != 0 {
		if rerr := e.cache.RemoveWrite(context.Background(), o.seq); rerr != nil {
			logger.Log.Warn("Failed to remove write from outbox", zap.String("doc", o.key()), zap.Error(rerr))
		}
	}

	status := "ok"
	if err != nil {
		status = "failed"
		err = &WriteError{Collection: o.collection, DocID: o.docID, Op: o.op, Err: err}
		logger.Log.Error("Remote write failed",
			zap.String("collection", string(o.collection)),
			zap.String("id", o.docID),
			zap.String("op", string(o.op)),
			zap.Error(err))
		e.report(err)
	}
	monitoring.WritesTotal.WithLabelValues(string(o.collection), string(o.op), status).Inc()
	o.pending.finish(err)
}

// send delivers one write. While the engine is offline the write waits;
// a retryable failure that happens after the connection dropped puts it
// back to waiting instead of failing it.
func (e *Engine) send(o *outbound) error {
	for {
		if err := e.waitOnline(); err != nil {
			return err
		}
		err := e.attempt(o)
		if err == nil {
			return nil
		}
		if e.ctx.Err() != nil {
			return ErrClosed
		}
		if remote.IsRetryable(err) && !e.Connected() {
			logger.Log.Info("Write kept queued while offline", zap.String("doc", o.key()), zap.Error(err))
			continue
		}
		return err
	}
}

func (e *Engine) attempt(o *outbound) error {
	ctx, span := tracing.Tracer.Start(e.ctx, "remote."+string(o.op), trace.WithAttributes(
		attribute.String("collection", string(o.collection)),
		attribute.String("doc.id", o.docID),
	))
	defer span.End()

	if e.opts.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.WriteTimeout)
		defer cancel()
	}

	var err error
	if o.op == mutation.OpDelete {
		err = e.store.Delete(ctx, string(o.collection), o.docID)
	} else {
		err = e.store.Upsert(ctx, string(o.collection), o.docID, o.data)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
