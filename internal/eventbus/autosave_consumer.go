package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cdrslab/fundam-builder/internal/event"
	"github.com/cdrslab/fundam-builder/internal/page"
)

// Snapshotter returns the current page of a session together with the tree
// version it was taken at. ok is false for sessions without a page.
type Snapshotter interface {
	Snapshot(sessionID string) (p page.Page, version uint64, ok bool)
}

// AutosaveConsumer persists a session's page after tree changes.
type AutosaveConsumer struct {
	pages  page.Store
	source Snapshotter
	log    *slog.Logger

	mu    sync.Mutex
	saved map[string]uint64 // session id -> last saved tree version
}

func NewAutosaveConsumer(pages page.Store, source Snapshotter, log *slog.Logger) *AutosaveConsumer {
	if log == nil {
		log = slog.Default()
	}
	return &AutosaveConsumer{pages: pages, source: source, log: log, saved: map[string]uint64{}}
}

func (c *AutosaveConsumer) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	switch evt.EventType {
	case event.TypeSessionClosed:
		c.mu.Lock()
		delete(c.saved, evt.SessionID)
		c.mu.Unlock()
		return nil
	case event.TypeTreeChanged:
	default:
		return nil
	}
	if evt.PageID == "" {
		return nil
	}

	p, version, ok := c.source.Snapshot(evt.SessionID)
	if !ok {
		return nil
	}
	c.mu.Lock()
	last, seen := c.saved[evt.SessionID]
	c.mu.Unlock()
	if seen && version <= last {
		return nil
	}

	if err := c.pages.Save(ctx, &p); err != nil {
		return fmt.Errorf("autosave page %s: %w", p.ID, err)
	}
	c.mu.Lock()
	c.saved[evt.SessionID] = version
	c.mu.Unlock()
	c.log.Info("page autosaved", "page_id", p.ID, "session_id", evt.SessionID, "version", version)
	return nil
}
