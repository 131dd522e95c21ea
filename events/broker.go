// Package events fans staff change events out to in-process subscribers.
package events

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-staff/pkg/types"
)

const defaultBuffer = 64

// Option customizes a Broker.
type Option func(*Broker)

// WithBuffer sets the per-subscriber channel capacity.
func WithBuffer(size int) Option {
	return func(b *Broker) {
		if size > 0 {
			b.buffer = size
		}
	}
}

// WithLogger sets the logger used to report dropped events.
func WithLogger(logger types.Logger) Option {
	return func(b *Broker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Broker implements types.EventPublisher. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Broker struct {
	mu      sync.RWMutex
	subs    map[uint64]chan types.ChangeEvent
	nextID  uint64
	closed  bool
	done    chan struct{}
	buffer  int
	logger  types.Logger
	dropped atomic.Uint64
	// watchers counts live Subscribe goroutines.
	watchers atomic.Int64
}

// NewBroker builds an empty broker.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		subs:   map[uint64]chan types.ChangeEvent{},
		done:   make(chan struct{}),
		buffer: defaultBuffer,
		logger: types.NopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

var _ types.EventPublisher = (*Broker)(nil)

// Publish delivers event to every subscriber with buffer room.
func (b *Broker) Publish(_ context.Context, event types.ChangeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
			b.logger.Debug("change event dropped", "subscriber", id, "kind", string(event.Kind))
		}
	}
}

// Subscribe returns a channel of events that is closed when ctx ends or the
// broker closes.
func (b *Broker) Subscribe(ctx context.Context) <-chan types.ChangeEvent {
	ch := make(chan types.ChangeEvent, b.buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	b.watchers.Add(1)
	go func() {
		defer b.watchers.Add(-1)
		select {
		case <-ctx.Done():
			b.unsubscribe(id)
		case <-b.done:
		}
	}()
	return ch
}

func (b *Broker) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Subscribers reports the number of live subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped reports how many deliveries were skipped on full buffers.
func (b *Broker) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes every subscription and releases their watchers. Later
// publishes are ignored.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
