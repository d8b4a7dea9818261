// Package page persists builder pages: the export document format and the
// repositories that store it.
package page

import (
	"context"
	"errors"
	"time"

	"github.com/cdrslab/fundam-builder/internal/types"
)

// ErrNotFound is returned when no page has the requested id.
var ErrNotFound = errors.New("page not found")

// Page is a saved page document.
type Page struct {
	ID        string             `json:"id" yaml:"id"`
	Name      string             `json:"name" yaml:"name"`
	Document  types.PageDocument `json:"document" yaml:"document"`
	CreatedAt time.Time          `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" yaml:"updatedAt"`
}

// ListOptions filters a page listing.
type ListOptions struct {
	Query string // case-insensitive substring of the name
	Limit int
}

func (o ListOptions) limit() int {
	if o.Limit <= 0 || o.Limit > 500 {
		return 100
	}
	return o.Limit
}

// Store reads and writes pages. Save creates or replaces a page and stamps
// its times. List returns the most recently updated pages first.
type Store interface {
	Save(ctx context.Context, p *Page) error
	Get(ctx context.Context, id string) (*Page, error)
	List(ctx context.Context, opts ListOptions) ([]Page, error)
	Delete(ctx context.Context, id string) error
}

func stamp(p *Page, created time.Time, now time.Time) {
	if !created.IsZero() {
		p.CreatedAt = created
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}
