// Package events carries settlement events from the settlement service to
// their consumers inside one process.
package events

import (
	"context"
	"errors"
	"sync"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/logger"

	"github.com/rs/zerolog"
)

var (
	// ErrBusFull is returned when the buffer is full and the event was dropped.
	ErrBusFull = errors.New("event bus buffer full")
	// ErrBusClosed is returned by Publish after Close.
	ErrBusClosed = errors.New("event bus closed")
)

// LocalBus is a buffered in-process event bus. Publish never blocks the
// caller; a single dispatcher delivers events to every handler in order.
type LocalBus struct {
	events chan domain.TransactionSettled
	log    zerolog.Logger

	mu       sync.RWMutex
	handlers []ports.EventHandler
	closed   bool
	started  bool
	done     chan struct{}
}

// NewLocalBus creates a bus holding up to buffer undelivered events.
func NewLocalBus(buffer int, log zerolog.Logger) *LocalBus {
	if buffer <= 0 {
		buffer = 1
	}
	return &LocalBus{
		events: make(chan domain.TransactionSettled, buffer),
		log:    logger.Component(log, "local_event_bus"),
		done:   make(chan struct{}),
	}
}

// Publish implements ports.EventPublisher.
func (b *LocalBus) Publish(_ context.Context, event domain.TransactionSettled) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	select {
	case b.events <- event:
		return nil
	default:
		b.log.Warn().
			Str("tx_id", event.TransactionID.String()).
			Str("outcome", string(event.Outcome)).
			Msg("Dropping settlement event, buffer full")
		return ErrBusFull
	}
}

// Subscribe adds handler. The first call starts the dispatcher, which runs
// until ctx is cancelled or the bus is closed.
func (b *LocalBus) Subscribe(ctx context.Context, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	b.handlers = append(b.handlers, handler)
	if !b.started {
		b.started = true
		go b.dispatch(ctx)
	}
	return nil
}

func (b *LocalBus) dispatch(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-b.events:
			if !ok {
				return
			}
			b.mu.RLock()
			handlers := b.handlers
			b.mu.RUnlock()
			for _, h := range handlers {
				h(ctx, event)
			}
		}
	}
}

// Close stops accepting events and waits until the dispatcher has drained
// what was already buffered.
func (b *LocalBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.events)
	started := b.started
	b.mu.Unlock()

	if started {
		<-b.done
	}
}
