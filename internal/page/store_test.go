package page

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/cdrslab/fundam-builder/internal/types"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "pages.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := NewSQLStore(entsql.OpenDB(dialect.SQLite, db))
	require.NoError(t, s.CreateTable(context.Background()))
	return s
}

func stores(t *testing.T) map[string]Store {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mem := NewMemoryStore()
	mem.now = (&clock{t: start}).now

	db := newSQLStore(t)
	db.now = (&clock{t: start}).now

	return map[string]Store{"memory": mem, "sql": db}
}

func samplePage(id, name string) *Page {
	return &Page{
		ID:   id,
		Name: name,
		Document: types.PageDocument{Version: Version, Components: []types.PageComponent{
			{ID: "c1", Type: "Card", Name: "Card", Props: map[string]any{"title": "Users"}},
			{ID: "b1", Type: "Button", Name: "Button", Props: map[string]any{"children": "OK"}, ParentID: "c1"},
		}},
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := samplePage("page_1", "Users")
			require.NoError(t, s.Save(ctx, p))
			assert.False(t, p.CreatedAt.IsZero())
			assert.True(t, p.CreatedAt.Equal(p.UpdatedAt))

			got, err := s.Get(ctx, "page_1")
			require.NoError(t, err)
			assert.Equal(t, "Users", got.Name)
			assert.Equal(t, p.Document, got.Document)
			assert.True(t, got.CreatedAt.Equal(p.CreatedAt))
		})
	}
}

func TestStore_SaveKeepsCreatedAt(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := samplePage("page_1", "Users")
			require.NoError(t, s.Save(ctx, p))
			created := p.CreatedAt

			again := samplePage("page_1", "Renamed")
			require.NoError(t, s.Save(ctx, again))

			got, err := s.Get(ctx, "page_1")
			require.NoError(t, err)
			assert.Equal(t, "Renamed", got.Name)
			assert.True(t, got.CreatedAt.Equal(created))
			assert.True(t, got.UpdatedAt.After(created))
		})
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Save(ctx, samplePage("a", "Orders")))
			require.NoError(t, s.Save(ctx, samplePage("b", "Users list")))
			require.NoError(t, s.Save(ctx, samplePage("c", "User detail")))

			all, err := s.List(ctx, ListOptions{})
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

			users, err := s.List(ctx, ListOptions{Query: "USER"})
			require.NoError(t, err)
			require.Len(t, users, 2)

			one, err := s.List(ctx, ListOptions{Limit: 1})
			require.NoError(t, err)
			require.Len(t, one, 1)
			assert.Equal(t, "c", one[0].ID)
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Save(ctx, samplePage("a", "Orders")))
			require.NoError(t, s.Delete(ctx, "a"))

			_, err := s.Get(ctx, "a")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.Delete(ctx, "a"), ErrNotFound)
		})
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Save(ctx, samplePage("a", "Orders")))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	got.Document.Components[0].ID = "changed"

	again, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "c1", again.Document.Components[0].ID)
}
