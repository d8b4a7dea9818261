package action

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// History is the navigation stack of a preview session.
type History struct {
	mu      sync.Mutex
	entries []string
}

func NewHistory(start string) *History {
	if start == "" {
		start = "/"
	}
	return &History{entries: []string{start}}
}

// Apply performs nav and returns the resulting location. Going back from
// the first entry stays put.
func (h *History) Apply(nav Navigation) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch nav.Mode {
	case "push":
		h.entries = append(h.entries, location(nav.Path, nav.Params))
	case "replace":
		h.entries[len(h.entries)-1] = location(nav.Path, nav.Params)
	case "back":
		if len(h.entries) > 1 {
			h.entries = h.entries[:len(h.entries)-1]
		}
	}
	return h.entries[len(h.entries)-1]
}

// Location is the current entry.
func (h *History) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[len(h.entries)-1]
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func location(path string, params map[string]any) string {
	if len(params) == 0 {
		return path
	}
	q := url.Values{}
	for k, v := range params {
		q.Set(k, fmt.Sprint(v))
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + q.Encode()
}
