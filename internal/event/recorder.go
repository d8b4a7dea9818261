package event

import (
	"context"
	"sync"
)

// Recorder keeps builder events.
type Recorder interface {
	Record(ctx context.Context, evt DomainEvent) error
}

// Publisher sends builder events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt DomainEvent)
}

// Journal implements Recorder by keeping the most recent events of each
// session in memory. If a Publisher is set, every recorded event is also
// published.
type Journal struct {
	mu       sync.RWMutex
	capacity int
	sessions map[string][]DomainEvent
	bus      Publisher
}

// NewJournal keeps up to capacity events per session.
func NewJournal(capacity int) *Journal {
	if capacity < 1 {
		capacity = 200
	}
	return &Journal{capacity: capacity, sessions: map[string][]DomainEvent{}}
}

// SetPublisher attaches an event bus.
func (j *Journal) SetPublisher(p Publisher) {
	j.bus = p
}

func (j *Journal) Record(ctx context.Context, evt DomainEvent) error {
	j.mu.Lock()
	evs := append(j.sessions[evt.SessionID], evt)
	if len(evs) > j.capacity {
		evs = append([]DomainEvent(nil), evs[len(evs)-j.capacity:]...)
	}
	j.sessions[evt.SessionID] = evs
	j.mu.Unlock()

	if j.bus != nil {
		j.bus.Publish(ctx, evt)
	}
	return nil
}

// Events returns up to limit of a session's events, newest first. A limit
// of zero returns all of them.
func (j *Journal) Events(sessionID string, limit int) []DomainEvent {
	j.mu.RLock()
	defer j.mu.RUnlock()
	evs := j.sessions[sessionID]
	if limit <= 0 || limit > len(evs) {
		limit = len(evs)
	}
	out := make([]DomainEvent, 0, limit)
	for i := len(evs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, evs[i])
	}
	return out
}

// Forget drops a session's events.
func (j *Journal) Forget(sessionID string) {
	j.mu.Lock()
	delete(j.sessions, sessionID)
	j.mu.Unlock()
}
