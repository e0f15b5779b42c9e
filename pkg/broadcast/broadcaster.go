package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/telemetry-hub/pkg/event"
	"github.com/urmzd/telemetry-hub/pkg/history"
	"github.com/urmzd/telemetry-hub/pkg/metrics"
)

// DefaultSendTimeout bounds a single delivery to one observer.
const DefaultSendTimeout = 2 * time.Second

// Sink receives a copy of every broadcast payload after observers have been
// served. Sink failures never affect observers or history.
type Sink interface {
	Publish(ctx context.Context, kind event.Kind, payload []byte) error
}

// Broadcaster owns the set of connected observers and fans every event out
// to all of them, recording it in history first.
type Broadcaster struct {
	mu        sync.RWMutex
	observers map[string]Observer

	history     *history.Log
	sendTimeout time.Duration
	sinks       []Sink
	metrics     *metrics.Metrics
}

// Option configures a Broadcaster.
type Option func(*Broadcaster)

// WithSendTimeout sets the per-delivery bound.
func WithSendTimeout(d time.Duration) Option {
	return func(b *Broadcaster) {
		if d > 0 {
			b.sendTimeout = d
		}
	}
}

// WithSink adds a mirror for every broadcast payload.
func WithSink(s Sink) Option {
	return func(b *Broadcaster) { b.sinks = append(b.sinks, s) }
}

// WithMetrics records connection and delivery metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Broadcaster) { b.metrics = m }
}

// New creates a Broadcaster recording into h.
func New(h *history.Log, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		observers:   make(map[string]Observer),
		history:     h,
		sendTimeout: DefaultSendTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// History returns the log every broadcast is recorded in.
func (b *Broadcaster) History() *history.Log {
	return b.history
}

// Connect registers o. An observer with the same id replaces the previous one.
func (b *Broadcaster) Connect(o Observer) {
	b.mu.Lock()
	b.observers[o.ID()] = o
	n := len(b.observers)
	b.mu.Unlock()

	b.metrics.SetConnections(n)
	log.Info().Str("observer", o.ID()).Int("connections", n).Msg("Observer connected")
}

// Disconnect removes and closes o. Removing an observer that is not
// connected is a no-op.
func (b *Broadcaster) Disconnect(o Observer) {
	b.mu.Lock()
	current, ok := b.observers[o.ID()]
	if ok && current == o {
		delete(b.observers, o.ID())
	}
	n := len(b.observers)
	b.mu.Unlock()

	if !ok || current != o {
		return
	}
	if err := o.Close(); err != nil {
		log.Debug().Err(err).Str("observer", o.ID()).Msg("Error closing observer")
	}
	b.metrics.SetConnections(n)
	log.Info().Str("observer", o.ID()).Int("connections", n).Msg("Observer disconnected")
}

// ConnectionCount returns the number of connected observers.
func (b *Broadcaster) ConnectionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

// Observers returns the ids of every connected observer.
func (b *Broadcaster) Observers() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.observers))
	for id := range b.observers {
		ids = append(ids, id)
	}
	return ids
}

// Broadcast serialises e, appends it to history and delivers it to every
// connected observer. Deliveries run concurrently, each bounded by the send
// timeout; observers whose delivery fails are disconnected once every
// delivery has finished. Only a serialisation failure is returned.
func (b *Broadcaster) Broadcast(ctx context.Context, e event.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", e.Kind(), err)
	}

	b.history.Append(e)
	b.metrics.SetHistorySize(b.history.Len())

	start := time.Now()
	b.deliver(ctx, payload)
	b.metrics.ObserveBroadcast(string(e.Kind()), time.Since(start))

	b.mirror(ctx, e.Kind(), payload)
	return nil
}

func (b *Broadcaster) deliver(ctx context.Context, payload []byte) {
	b.mu.RLock()
	targets := make([]Observer, 0, len(b.observers))
	for _, o := range b.observers {
		targets = append(targets, o)
	}
	b.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	var (
		wg       sync.WaitGroup
		failedMu sync.Mutex
		failed   []Observer
	)
	for _, o := range targets {
		wg.Add(1)
		go func(o Observer) {
			defer wg.Done()
			if err := b.send(ctx, o, payload); err != nil {
				log.Warn().Err(err).Str("observer", o.ID()).Msg("Delivery failed, dropping observer")
				b.metrics.DeliveryFailed()
				failedMu.Lock()
				failed = append(failed, o)
				failedMu.Unlock()
			}
		}(o)
	}
	wg.Wait()

	for _, o := range failed {
		b.Disconnect(o)
	}
}

// send is bounded by the send timeout only. A producer whose context was
// cancelled must not make healthy observers look broken.
func (b *Broadcaster) send(ctx context.Context, o Observer, payload []byte) error {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.sendTimeout)
	defer cancel()
	return o.Send(sendCtx, payload)
}

func (b *Broadcaster) mirror(ctx context.Context, kind event.Kind, payload []byte) {
	for _, s := range b.sinks {
		sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.sendTimeout)
		if err := s.Publish(sinkCtx, kind, payload); err != nil {
			b.metrics.MirrorFailed()
			log.Warn().Err(err).Str("type", string(kind)).Msg("Mirror publish failed")
		}
		cancel()
	}
}

// SendTo delivers v, serialised as JSON, to o alone. Nothing is recorded in
// history. A failed delivery disconnects o.
func (b *Broadcaster) SendTo(ctx context.Context, o Observer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal personal message: %w", err)
	}
	if err := b.send(ctx, o, payload); err != nil {
		log.Warn().Err(err).Str("observer", o.ID()).Msg("Personal message failed, dropping observer")
		b.metrics.DeliveryFailed()
		b.Disconnect(o)
		return err
	}
	return nil
}
