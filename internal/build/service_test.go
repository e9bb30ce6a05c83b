package build

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/seriesgen/internal/blog"
	"git.home.luguber.info/inful/seriesgen/internal/cache"
	"git.home.luguber.info/inful/seriesgen/internal/content"
	"git.home.luguber.info/inful/seriesgen/internal/deploy"
	"git.home.luguber.info/inful/seriesgen/internal/incremental"
	"git.home.luguber.info/inful/seriesgen/internal/pagetree"
	"git.home.luguber.info/inful/seriesgen/internal/render"
	"git.home.luguber.info/inful/seriesgen/internal/site"
)

type stubRenderer struct{}

func (stubRenderer) Render(n *pagetree.Node, _ render.Mode, _ render.RenderOptions) (string, error) {
	return n.Group.ID + ":" + n.PathString() + ":" + n.Body, nil
}

func page(id, group, path, uuid, body string) content.Record {
	return content.Record{ID: id, GroupID: group, UUID: uuid, Meta: content.Meta{"path": path}, Body: body}
}

func fixture() *content.MemoryStore {
	return content.NewMemoryStore(
		[]content.Group{content.NewGroup("g1", "One"), content.NewGroup("g2", "Two")},
		[]content.Record{
			page("a", "g1", "intro", "u-a", "alpha"),
			page("b", "g2", "intro", "u-b", "beta"),
		},
	)
}

func materializer() deploy.Materializer {
	return deploy.Materializer{Renderer: stubRenderer{}, Options: site.Options{GroupPrefix: true}}
}

func read(t *testing.T, fsys afero.Fs, p string) string {
	t.Helper()
	b, err := afero.ReadFile(fsys, p)
	require.NoError(t, err)
	return string(b)
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusSuccess.IsSuccess())
	assert.True(t, StatusUnchanged.IsSuccess())
	assert.False(t, StatusFailed.IsSuccess())
	assert.False(t, StatusCanceled.IsSuccess())
	assert.True(t, StatusCanceled.IsTerminal())
	assert.False(t, Status("running").IsTerminal())
}

func TestRunIncremental(t *testing.T) {
	ctx := context.Background()
	store := fixture()
	target := deploy.NewDebug(materializer())
	svc := NewService(store, target, nil).WithIDGenerator(func() string { return "build-1" })

	res, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "build-1", res.ID)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 2, res.Groups)
	assert.Equal(t, []string{"g1", "g2"}, res.Rebuilt)
	assert.Equal(t, "g1:intro:alpha", read(t, target.FS(), "/one/intro/index.html"))
	assert.Equal(t, "g2:intro:beta", read(t, target.FS(), "/two/intro/index.html"))

	res, err = svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusUnchanged, res.Status)
	assert.Empty(t, res.Rebuilt)

	// a new record in g2 only rebuilds g2 and leaves g1's output in place
	store.Add(page("c", "g2", "more", "u-c", "gamma"))
	res, err = svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, []string{"g2"}, res.Rebuilt)
	assert.Equal(t, "g2:more:gamma", read(t, target.FS(), "/two/more/index.html"))
	assert.Equal(t, "g1:intro:alpha", read(t, target.FS(), "/one/intro/index.html"))
}

func TestRunBodyEditIsNotAChange(t *testing.T) {
	ctx := context.Background()
	store := fixture()
	target := deploy.NewDebug(materializer())
	svc := NewService(store, target, nil)

	_, err := svc.Run(ctx)
	require.NoError(t, err)

	store.Replace(
		[]content.Group{content.NewGroup("g1", "One"), content.NewGroup("g2", "Two")},
		[]content.Record{
			page("a", "g1", "intro", "u-a", "edited"),
			page("b", "g2", "intro", "u-b", "beta"),
		},
	)
	res, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusUnchanged, res.Status)
	assert.Equal(t, "g1:intro:alpha", read(t, target.FS(), "/one/intro/index.html"))
}

func TestRunRebuildAll(t *testing.T) {
	ctx := context.Background()
	store := fixture()
	target := deploy.NewDebug(materializer())
	svc := NewService(store, target, nil).WithRebuildAll(true)

	_, err := svc.Run(ctx)
	require.NoError(t, err)

	store.Add(page("c", "g2", "more", "u-c", "gamma"))
	res, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, res.Rebuilt)
}

func TestRunFilter(t *testing.T) {
	svc := NewService(fixture(), deploy.NewDebug(materializer()), nil).
		WithFilter(content.Filter{Names: []string{"Two"}})
	res, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Groups)
	assert.Equal(t, []string{"g2"}, res.Rebuilt)
}

func TestRunFSTargetPersistsAcrossServices(t *testing.T) {
	ctx := context.Background()
	fsys := afero.NewMemMapFs()
	c := cache.NewMemory()

	res, err := NewService(fixture(), deploy.NewFS(fsys, c, materializer()), nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)

	// a fresh process sees the stored fingerprints and the populated output
	res, err = NewService(fixture(), deploy.NewFS(fsys, c, materializer()), nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusUnchanged, res.Status)
}

type failingTarget struct {
	*deploy.Debug
	err       error
	finalized bool
}

func (f *failingTarget) Generate(ctx context.Context, trees []*pagetree.Node, groups []content.Group) (site.Stats, error) {
	if f.err != nil {
		return site.Stats{}, f.err
	}
	return f.Debug.Generate(ctx, trees, groups)
}

func (f *failingTarget) Finalize(ctx context.Context, fp incremental.Fingerprints) error {
	f.finalized = true
	return f.Debug.Finalize(ctx, fp)
}

func TestRunFailedGenerateDoesNotFinalize(t *testing.T) {
	ctx := context.Background()
	boom := stderrors.New("upload failed")
	target := &failingTarget{Debug: deploy.NewDebug(materializer()), err: boom}
	svc := NewService(fixture(), target, nil)

	res, err := svc.Run(ctx)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, StatusFailed, res.Status)
	assert.False(t, target.finalized)

	fp, err := target.PresentGroups(ctx)
	require.NoError(t, err)
	assert.Nil(t, fp)

	target.err = nil
	res, err = svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.True(t, target.finalized)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	target := &failingTarget{Debug: deploy.NewDebug(materializer()), err: context.Canceled}
	res, err := NewService(fixture(), target, nil).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusCanceled, res.Status)
}

func TestRunAttachesBlog(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/t/blog-post.html", []byte(`<post>{{.title}}</post>`), 0o644))
	tpl, err := render.LoadTemplates(fsys, "/t", map[string]string{render.TemplateBlogPost: "blog-post.html"})
	require.NoError(t, err)

	published := time.Date(2022, 4, 1, 12, 0, 0, 0, time.UTC).Unix()
	store := content.NewMemoryStore(
		[]content.Group{content.NewGroup("g1", "News")},
		[]content.Record{
			page("a", "g1", "about", "u-a", "about us"),
			{
				ID: "p1", GroupID: "g1", UUID: "u-p1",
				Meta: content.Meta{"title": "Launch Day", "blog": map[string]any{"published_date": published}},
				Body: "we launched",
			},
		},
	)
	target := deploy.NewDebug(materializer())
	res, err := NewService(store, target, blog.NewBuilder(tpl, render.NewMarkdown())).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)

	assert.Contains(t, read(t, target.FS(), "/news/index.html"), "<post>Launch Day</post>")
	assert.Equal(t, "g1:2022-04-01_launch-day:we launched", read(t, target.FS(), "/news/2022-04-01_launch-day/index.html"))
	assert.Equal(t, "g1:about:about us", read(t, target.FS(), "/news/about/index.html"))
}
