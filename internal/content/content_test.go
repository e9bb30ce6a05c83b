package content

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
	"git.home.luguber.info/inful/seriesgen/internal/ordering"
)

func TestPathPartOf(t *testing.T) {
	assert.Equal(t, "my-long-series", PathPartOf("My Long Series"))
	g := NewGroup("1", "Tales Of Old")
	assert.Equal(t, "tales-of-old", g.PathPart)
	assert.True(t, g.FixedNavEntries)
}

func TestMetaAccessors(t *testing.T) {
	m := Meta{
		"title":      "Intro",
		"renderer_t": "preproc+markdown",
		"order":      "_0",
		"status":     "3",
		"deleted":    0,
		"blog": map[string]any{
			"published_date": int64(86400),
			"pinned":         true,
		},
	}
	assert.Equal(t, "Intro", m.Title())
	assert.Equal(t, "preproc+markdown", m.Renderer())
	assert.Equal(t, ordering.IntOrder(0), m.Order())
	status, ok := m.Status()
	require.True(t, ok)
	assert.Equal(t, 3, status)
	assert.False(t, m.Deleted())
	assert.True(t, m.IsBlog())

	b := m.Blog()
	assert.Equal(t, time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC), b.Published)
	assert.True(t, b.Pinned)

	assert.Equal(t, DefaultRenderer, Meta{}.Renderer())
	assert.Equal(t, "", Meta{"renderer_t": ""}.Renderer())
	assert.Equal(t, "", Meta{"path": nil}.Path())
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	g1 := NewGroup("g1", "One")
	g2 := NewGroup("g2", "Two")
	g2.Status = 5
	store := NewMemoryStore([]Group{g1, g2}, []Record{
		{ID: "a", GroupID: "g1", UUID: "u1", Meta: Meta{"status": 5}},
		{ID: "b", GroupID: "g1", UUID: "u2", Meta: Meta{"status": 1}},
		{ID: "c", GroupID: "g2", UUID: "u3", Meta: Meta{"status": 9, "deleted": true}},
		{ID: "d", GroupID: "g2", UUID: "u4", Meta: Meta{"status": 9, "blog": map[string]any{"published_date": 1}}},
	})

	minStatus := 4
	f := Filter{MinStatus: &minStatus}

	groups, err := store.Groups(ctx, f)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "g2", groups[0].ID)

	ids, err := store.Identities(ctx, []string{"g1", "g2"}, f)
	require.NoError(t, err)
	assert.Equal(t, []Identity{{GroupID: "g1", UUID: "u1"}, {GroupID: "g2", UUID: "u4"}}, ids)

	records, err := store.Records(ctx, []string{"g2"}, Filter{})
	require.NoError(t, err)
	pages, posts := SplitBlog(records)
	assert.Empty(t, pages)
	require.Len(t, posts, 1)

	_, err = store.Record(ctx, "c")
	assert.True(t, errors.IsNotFound(err))
	r, err := store.Record(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "u1", r.UUID)
}
