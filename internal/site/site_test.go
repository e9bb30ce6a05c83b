package site

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/seriesgen/internal/assets"
	"git.home.luguber.info/inful/seriesgen/internal/content"
	"git.home.luguber.info/inful/seriesgen/internal/pagetree"
	"git.home.luguber.info/inful/seriesgen/internal/render"
)

type stubRenderer struct{}

func (stubRenderer) Render(n *pagetree.Node, _ render.Mode, ro render.RenderOptions) (string, error) {
	return "page:" + n.Group.ID + ":" + n.PathString() + ":" + ro.Inner, nil
}

func tree(t *testing.T, id, name string) (*pagetree.Node, content.Group) {
	t.Helper()
	g := content.NewGroup(id, name)
	g.Hierarchy = []string{"volume"}
	root, err := pagetree.Build(&g, []content.Record{
		{ID: id + "-a", GroupID: id, Meta: content.Meta{"volume": 1, "path": "intro"}, Body: "a <b>"},
	})
	require.NoError(t, err)
	return root, g
}

func read(t *testing.T, fsys afero.Fs, p string) string {
	t.Helper()
	data, err := afero.ReadFile(fsys, p)
	require.NoError(t, err)
	return string(data)
}

func TestWriteTree(t *testing.T) {
	fsys := afero.NewMemMapFs()
	root, _ := tree(t, "g1", "One")

	n, err := WriteTree(fsys, "/out", root, stubRenderer{}, true)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, "page:g1::chapter-inner", read(t, fsys, "/out/index.html"))
	assert.Equal(t, "page:g1:1:chapter-inner", read(t, fsys, "/out/1/index.html"))
	assert.Equal(t, "page:g1:1/intro:chapter-inner", read(t, fsys, "/out/1/intro/index.html"))
	assert.Equal(t, "a <b>", read(t, fsys, "/out/1/intro/raw.md"))
	assert.Equal(t, "<pre>a &lt;b&gt;</pre>", read(t, fsys, "/out/1/intro/raw/index.html"))

	exists, err := afero.Exists(fsys, "/out/1/raw.md")
	require.NoError(t, err)
	assert.False(t, exists, "index nodes have no raw copy")
}

func TestGenerateGroupPrefix(t *testing.T) {
	ctx := context.Background()
	fsys := afero.NewMemMapFs()
	static := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(static, "/static/static/site.css", []byte("css"), 0o644))
	require.NoError(t, afero.WriteFile(static, "/static/favicon.ico", []byte("ico"), 0o644))

	t1, g1 := tree(t, "g1", "First Group")
	t2, g2 := tree(t, "g2", "Second")
	opts := Options{
		Dir:          "prefix",
		GroupPrefix:  true,
		StaticFS:     static,
		StaticSource: "/static",
		IndexHeading: "<h1>Groups</h1>",
	}

	stats, err := Generate(ctx, fsys, []*pagetree.Node{t1, t2}, []content.Group{g1, g2}, stubRenderer{}, opts)
	require.NoError(t, err)
	assert.Equal(t, Stats{Pages: 6, Groups: 2, Static: 2}, stats)
	assert.Equal(t, "page:g1:1/intro:chapter-inner", read(t, fsys, "/prefix/first-group/1/intro/index.html"))
	assert.Equal(t, "css", read(t, fsys, "/prefix/static/site.css"))
	assert.Equal(t,
		`<h1>Groups</h1><div><a href="first-group">First Group</a><br></div><div><a href="second">Second</a><br></div>`,
		read(t, fsys, "/prefix/index.html"))

	// Incremental: g1 changed, g2 removed.
	require.NoError(t, afero.WriteFile(fsys, "/prefix/first-group/stale.html", []byte("x"), 0o644))
	opts.KeepStatic = true
	stats, err = Generate(ctx, fsys, []*pagetree.Node{t1}, []content.Group{g1}, stubRenderer{}, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Pages)
	assert.Zero(t, stats.Static)

	for p, want := range map[string]bool{
		"/prefix/first-group/stale.html":   false,
		"/prefix/first-group/1/index.html": true,
		"/prefix/second":                   false,
		"/prefix/static/site.css":          true,
		"/prefix/favicon.ico":              true,
	} {
		got, err := afero.Exists(fsys, p)
		require.NoError(t, err)
		assert.Equal(t, want, got, p)
	}
	assert.NotContains(t, read(t, fsys, "/prefix/index.html"), "Second")
}

func TestGenerateUnchangedGroupKept(t *testing.T) {
	ctx := context.Background()
	fsys := afero.NewMemMapFs()
	t1, g1 := tree(t, "g1", "One")
	t2, g2 := tree(t, "g2", "Two")
	opts := Options{GroupPrefix: true}

	_, err := Generate(ctx, fsys, []*pagetree.Node{t1, t2}, []content.Group{g1, g2}, stubRenderer{}, opts)
	require.NoError(t, err)

	opts.KeepStatic = true
	_, err = Generate(ctx, fsys, []*pagetree.Node{t2}, []content.Group{g1, g2}, stubRenderer{}, opts)
	require.NoError(t, err)
	assert.Equal(t, "page:g1::chapter-inner", read(t, fsys, "/one/index.html"))
}

func TestGenerateFlatWithAssets(t *testing.T) {
	ctx := context.Background()
	fsys := afero.NewMemMapFs()
	imgFS := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(imgFS, "/img/cover.png", []byte("png"), 0o644))
	images, err := assets.NewImages(imgFS, "/img")
	require.NoError(t, err)
	assert.Equal(t, "/assets/cover.png", images.Handle(assets.Command, "cover"))

	require.NoError(t, afero.WriteFile(fsys, "/old/index.html", []byte("x"), 0o644))
	t1, g1 := tree(t, "g1", "One")
	stats, err := Generate(ctx, fsys, []*pagetree.Node{t1}, []content.Group{g1}, stubRenderer{}, Options{Images: images})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Assets)

	assert.Equal(t, "page:g1::chapter-inner", read(t, fsys, "/index.html"))
	assert.Equal(t, "png", read(t, fsys, "/assets/cover.png"))
	exists, err := afero.Exists(fsys, "/old")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/b/x.html", nil, 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/a.html", nil, 0o644))
	files, err := Files(fsys, "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"/a.html", "/b/x.html"}, files)
}

func TestStale(t *testing.T) {
	t1, g1 := tree(t, "g1", "One")
	_, g2 := tree(t, "g2", "Two")
	entries := []Entry{
		{Name: "one", Dir: true},
		{Name: "two", Dir: true},
		{Name: "gone", Dir: true},
		{Name: "static", Dir: true},
		{Name: "assets", Dir: true},
		{Name: "index.html"},
	}
	groups := []content.Group{g1, g2}
	trees := []*pagetree.Node{t1}

	assert.Equal(t, []string{"one", "gone"},
		Stale(entries, trees, groups, Options{GroupPrefix: true, KeepStatic: true}))
	assert.Equal(t, []string{"one", "gone", "index.html"},
		Stale(entries, trees, groups, Options{GroupPrefix: true}))
	assert.Equal(t, []string{"one", "two", "gone", "assets"},
		Stale(entries, trees, groups, Options{KeepStatic: true}))
	assert.Equal(t, []string{"one", "two", "gone", "static", "assets", "index.html"},
		Stale(entries, trees, groups, Options{}))
}
