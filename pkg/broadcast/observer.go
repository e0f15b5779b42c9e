package broadcast

import (
	"context"
	"errors"
	"sync"
)

// ErrObserverClosed is returned when sending to an observer that has been closed.
var ErrObserverClosed = errors.New("observer closed")

// ErrObserverFull is returned when a channel observer cannot accept another payload.
var ErrObserverFull = errors.New("observer buffer full")

// Observer is one connected client receiving broadcast payloads.
// Send must honour ctx and return an error if the payload was not delivered.
type Observer interface {
	ID() string
	Send(ctx context.Context, payload []byte) error
	Close() error
}

// ChannelObserver delivers payloads to a buffered channel. A full buffer
// counts as a failed delivery.
type ChannelObserver struct {
	id string

	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

// NewChannelObserver creates an in-process observer buffering up to size payloads.
func NewChannelObserver(id string, size int) *ChannelObserver {
	return &ChannelObserver{id: id, ch: make(chan []byte, size)}
}

func (o *ChannelObserver) ID() string { return o.id }

// Events returns the channel payloads are delivered on. It is closed by Close.
func (o *ChannelObserver) Events() <-chan []byte { return o.ch }

func (o *ChannelObserver) Send(ctx context.Context, payload []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrObserverClosed
	}
	select {
	case o.ch <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrObserverFull
	}
}

func (o *ChannelObserver) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.closed {
		o.closed = true
		close(o.ch)
	}
	return nil
}
