package syncengine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"hifz_backend/pkg/logger"
	"hifz_backend/pkg/monitoring"
)

// SetConnected is the connectivity signal. Going online releases every
// write queued while offline, in the order each document's writes were
// issued.
func (e *Engine) SetConnected(ok bool) {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	if ok == e.connected {
		return
	}
	e.connected = ok
	if ok {
		close(e.online)
		monitoring.Connected.Set(1)
		logger.Log.Info("Remote store reachable")
	} else {
		e.online = make(chan struct{})
		monitoring.Connected.Set(0)
		logger.Log.Warn("Remote store unreachable; queueing writes")
	}
}

func (e *Engine) Connected() bool {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	return e.connected
}

func (e *Engine) waitOnline() error {
	e.connMu.Lock()
	online := e.online
	e.connMu.Unlock()
	select {
	case <-online:
		return nil
	case <-e.ctx.Done():
		return ErrClosed
	}
}

// MonitorConnectivity pings the store every interval and feeds the result
// to SetConnected until ctx ends.
func (e *Engine) MonitorConnectivity(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		e.probe(ctx, interval)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (e *Engine) probe(ctx context.Context, timeout time.Duration) {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := e.store.Ping(pctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		logger.Log.Debug("Ping failed", zap.Error(err))
	}
	e.SetConnected(err == nil)
}
