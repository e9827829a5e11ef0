package speech

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Dispatcher owns one engine and enforces the at-most-one-utterance rule.
// Speak never blocks and never surfaces errors to the caller: a live chat
// reader must not fall behind, so backlog is dropped and speech failures
// stay on this side of the boundary.
type Dispatcher struct {
	engine  Engine
	busy    atomic.Bool
	metrics *Metrics
}

// NewDispatcher wraps an engine. Metrics may be nil.
func NewDispatcher(engine Engine, metrics *Metrics) *Dispatcher {
	return &Dispatcher{engine: engine, metrics: metrics}
}

// EngineName reports the wrapped engine for logs and the status API.
func (d *Dispatcher) EngineName() string {
	return d.engine.Name()
}

// Busy reports whether an utterance is currently in flight.
func (d *Dispatcher) Busy() bool {
	return d.busy.Load()
}

// Speak triggers asynchronous synthesis of text and returns immediately.
// If an utterance is already in flight the call is a silent no-op. The
// in-flight flag is cleared unconditionally when the background work
// finishes, whether it succeeded or not.
func (d *Dispatcher) Speak(ctx context.Context, text string) {
	if !d.busy.CompareAndSwap(false, true) {
		d.metrics.incDropped()
		slog.Debug("speech: engine busy, dropping message", "engine", d.engine.Name(), "text", text)
		return
	}
	d.metrics.incStarted()

	go func() {
		defer d.busy.Store(false)
		if err := d.engine.Utter(ctx, text); err != nil {
			d.metrics.incFailed()
			slog.Error("speech: utterance failed", "engine", d.engine.Name(), "err", err)
		}
	}()
}
