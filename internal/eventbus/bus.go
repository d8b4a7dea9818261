// Package eventbus provides an in-process pub/sub bus for builder events.
// Publishers never block; subscribers run one event at a time on a single
// consumer goroutine.
package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cdrslab/fundam-builder/internal/event"
)

// Handler processes a builder event.
type Handler interface {
	HandleEvent(ctx context.Context, evt event.DomainEvent) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt event.DomainEvent) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	return f(ctx, evt)
}

// Bus is a buffered in-process event bus. Serial dispatch keeps SQLite
// writes from autosave on one goroutine.
type Bus struct {
	mu          sync.RWMutex
	subscribers []namedHandler
	events      chan event.DomainEvent
	done        chan struct{}
	stopped     bool
	log         *slog.Logger
}

type namedHandler struct {
	name    string
	handler Handler
}

// New creates a Bus with the given channel buffer size.
func New(bufSize int, log *slog.Logger) *Bus {
	if bufSize < 1 {
		bufSize = 256
	}
	if log == nil {
		log = slog.Default()
	}
	return &Bus{
		events: make(chan event.DomainEvent, bufSize),
		done:   make(chan struct{}),
		log:    log,
	}
}

// Subscribe registers a named handler. Must be called before Start.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, namedHandler{name: name, handler: h})
}

// Publish queues an event. If the buffer is full or the bus has stopped
// the event is dropped with a warning.
func (b *Bus) Publish(_ context.Context, evt event.DomainEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		b.log.Warn("eventbus: stopped, dropping event", "type", evt.EventType, "id", evt.ID)
		return
	}
	select {
	case b.events <- evt:
	default:
		b.log.Warn("eventbus: buffer full, dropping event", "type", evt.EventType, "id", evt.ID)
	}
}

// Start begins the consumer goroutine. It runs until Stop.
func (b *Bus) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer close(b.done)
		for evt := range b.events {
			b.dispatch(ctx, evt)
		}
	}()
}

// Stop refuses new events, dispatches the queued ones and waits for the
// consumer goroutine to finish.
func (b *Bus) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		<-b.done
		return
	}
	b.stopped = true
	close(b.events)
	b.mu.Unlock()
	<-b.done
}

func (b *Bus) dispatch(ctx context.Context, evt event.DomainEvent) {
	b.mu.RLock()
	subs := b.subscribers
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler.HandleEvent(ctx, evt); err != nil {
			b.log.Error("eventbus: handler failed", "handler", s.name, "type", evt.EventType, "error", err)
		}
	}
}
