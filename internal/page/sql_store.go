package page

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const table = "pages"

// SQLStore keeps pages in a single SQL table through an ent driver.
type SQLStore struct {
	drv     *entsql.Driver
	dialect string
	now     func() time.Time
}

// NewSQLStore wraps an ent driver, such as one from entsql.OpenDB.
func NewSQLStore(drv *entsql.Driver) *SQLStore {
	return &SQLStore{drv: drv, dialect: drv.Dialect(), now: time.Now}
}

// CreateTable creates the pages table when it does not exist.
func (s *SQLStore) CreateTable(ctx context.Context) error {
	docType := "TEXT"
	if s.dialect == dialect.Postgres {
		docType = "JSONB"
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		document   %s NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`, table, docType)
	if err := s.drv.Exec(ctx, ddl, []any{}, nil); err != nil {
		return fmt.Errorf("create %s table: %w", table, err)
	}
	return nil
}

func (s *SQLStore) Save(ctx context.Context, p *Page) error {
	var created time.Time
	switch prev, err := s.Get(ctx, p.ID); {
	case err == nil:
		created = prev.CreatedAt
	case !errors.Is(err, ErrNotFound):
		return err
	}
	stamp(p, created, s.now().UTC())

	doc, err := json.Marshal(p.Document)
	if err != nil {
		return fmt.Errorf("encode page %s: %w", p.ID, err)
	}
	query, args := entsql.Dialect(s.dialect).
		Insert(table).
		Columns("id", "name", "document", "created_at", "updated_at").
		Values(p.ID, p.Name, string(doc), formatTime(p.CreatedAt), formatTime(p.UpdatedAt)).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if err := s.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save page %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*Page, error) {
	sel := s.selector().Where(entsql.EQ("id", id))
	pages, err := s.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, ErrNotFound
	}
	return &pages[0], nil
}

func (s *SQLStore) List(ctx context.Context, opts ListOptions) ([]Page, error) {
	sel := s.selector()
	if opts.Query != "" {
		sel.Where(entsql.ContainsFold("name", opts.Query))
	}
	sel.OrderBy(entsql.Desc("updated_at"), entsql.Asc("id")).Limit(opts.limit())
	return s.query(ctx, sel)
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	query, args := entsql.Dialect(s.dialect).Delete(table).Where(entsql.EQ("id", id)).Query()
	var res entsql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("delete page %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) selector() *entsql.Selector {
	return entsql.Dialect(s.dialect).
		Select("id", "name", "document", "created_at", "updated_at").
		From(entsql.Table(table))
}

func (s *SQLStore) query(ctx context.Context, sel *entsql.Selector) ([]Page, error) {
	query, args := sel.Query()
	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	defer rows.Close()

	var out []Page
	for rows.Next() {
		var (
			p                Page
			doc              string
			created, updated string
		)
		if err := rows.Scan(&p.ID, &p.Name, &doc, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		if err := json.Unmarshal([]byte(doc), &p.Document); err != nil {
			return nil, fmt.Errorf("decode page %s: %w", p.ID, err)
		}
		var err error
		if p.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("page %s created_at: %w", p.ID, err)
		}
		if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("page %s updated_at: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// formatTime keeps a fixed width so that text ordering is time ordering.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}
