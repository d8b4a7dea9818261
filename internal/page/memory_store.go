package page

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps pages in memory. Intended for tests and demos.
type MemoryStore struct {
	mu    sync.RWMutex
	pages map[string]Page
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pages: map[string]Page{}, now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, p *Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(p, s.pages[p.ID].CreatedAt, s.now().UTC())
	s.pages[p.ID] = clonePage(*p)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pages[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := clonePage(p)
	return &c, nil
}

func (s *MemoryStore) List(_ context.Context, opts ListOptions) ([]Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(opts.Query)
	var out []Page
	for _, p := range s.pages {
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) {
			continue
		}
		out = append(out, clonePage(p))
	}
	slices.SortFunc(out, func(a, b Page) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if len(out) > opts.limit() {
		out = out[:opts.limit()]
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pages[id]; !ok {
		return ErrNotFound
	}
	delete(s.pages, id)
	return nil
}

func clonePage(p Page) Page {
	p.Document.Components = slices.Clone(p.Document.Components)
	return p
}
