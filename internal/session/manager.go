package session

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cdrslab/fundam-builder/internal/event"
	"github.com/cdrslab/fundam-builder/internal/page"
	"github.com/cdrslab/fundam-builder/internal/types"
)

// Info describes a session for listings.
type Info struct {
	ID           string    `json:"id"`
	PageID       string    `json:"pageId,omitempty"`
	Name         string    `json:"name"`
	Mode         Mode      `json:"mode"`
	Nodes        int       `json:"nodes"`
	Version      uint64    `json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}

func (s *Session) Info() Info {
	return Info{
		ID:           s.ID,
		PageID:       s.PageID,
		Name:         s.Name,
		Mode:         s.Mode(),
		Nodes:        s.store.Len(),
		Version:      s.store.Version(),
		CreatedAt:    s.CreatedAt,
		LastActiveAt: s.LastActive(),
	}
}

// CreateOptions seed a new session.
type CreateOptions struct {
	PageID string // page the session autosaves to, none when empty
	Name   string
	Nodes  []types.ComponentNode
	Mode   Mode
}

// Manager handles session creation, lookup, and cleanup.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	svc         *Services
	maxAge      time.Duration
	idleTimeout time.Duration
	now         func() time.Time
}

// NewManager creates a session manager with the given timeouts. A zero
// timeout disables that expiry.
func NewManager(svc Services, maxAge, idleTimeout time.Duration) *Manager {
	svc.defaults()
	return &Manager{
		sessions:    make(map[string]*Session),
		svc:         &svc,
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Services returns the shared services of the manager's sessions.
func (m *Manager) Services() *Services { return m.svc }

// Create creates a new session and returns it.
func (m *Manager) Create(opts CreateOptions) *Session {
	name := opts.Name
	if name == "" {
		name = "Untitled"
	}
	s := newSession(m.svc, m.now, m.svc.SessionIDs(), opts.PageID, name)
	if len(opts.Nodes) > 0 {
		s.Load(opts.Nodes)
	}
	if opts.Mode != "" {
		if err := s.SetMode(opts.Mode); err != nil {
			m.svc.Log.Warn("ignoring session mode", "mode", opts.Mode, "error", err)
		}
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	s.record(event.NewSessionOpened(s.scope(), string(s.Mode())))
	m.svc.Log.Info("session opened", "session_id", s.ID, "page_id", s.PageID)
	return s
}

// Open creates a session editing a saved page.
func (m *Manager) Open(ctx context.Context, pages page.Store, pageID string) (*Session, error) {
	p, err := pages.Get(ctx, pageID)
	if err != nil {
		return nil, err
	}
	nodes, err := page.Import(p.Document, m.svc.Registry)
	if err != nil {
		return nil, fmt.Errorf("open page %s: %w", pageID, err)
	}
	return m.Create(CreateOptions{PageID: p.ID, Name: p.Name, Nodes: nodes}), nil
}

// Get retrieves a session by ID. Returns nil if not found or expired.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
		m.close(id, "expired")
		return nil
	}
	return s
}

// List returns the live sessions ordered by id.
func (m *Manager) List() []Info {
	m.mu.RLock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	out := make([]Info, 0, len(all))
	for _, s := range all {
		out = append(out, s.Info())
	}
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Remove closes a session. It reports whether the session existed.
func (m *Manager) Remove(id string) bool {
	return m.close(id, "closed")
}

func (m *Manager) close(id, reason string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.record(event.NewSessionClosed(s.scope(), reason))
	m.svc.Log.Info("session closed", "session_id", id, "reason", reason)
	return true
}

// Cleanup removes all expired and idle sessions and returns how many.
func (m *Manager) Cleanup() int {
	m.mu.RLock()
	var dead []string
	for id, s := range m.sessions {
		if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
			dead = append(dead, id)
		}
	}
	m.mu.RUnlock()

	n := 0
	for _, id := range dead {
		if m.close(id, "expired") {
			n++
		}
	}
	return n
}

// Run calls Cleanup every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Cleanup(); n > 0 {
				m.svc.Log.Info("expired sessions removed", "count", n)
			}
		}
	}
}

// Snapshot returns the page of a session that has one.
func (m *Manager) Snapshot(sessionID string) (page.Page, uint64, bool) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok || s.PageID == "" {
		return page.Page{}, 0, false
	}
	p, v := s.Snapshot()
	return p, v, true
}
