package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/seriesgen/internal/config"
	"git.home.luguber.info/inful/seriesgen/internal/render"
)

func writeFile(t *testing.T, name, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(name), 0o755))
	require.NoError(t, os.WriteFile(name, []byte(data), 0o644))
}

// project lays out a directory store with one group and returns an App for
// it, publishing to <dir>/public.
func project(t *testing.T, target string) (*App, string) {
	t.Helper()
	dir := t.TempDir()
	fsys := afero.NewOsFs()
	_, err := render.WriteDefaultTemplates(fsys, filepath.Join(dir, "layouts"), false)
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "content", "tales", "group.yaml"), "name: Tales Of Old\n")
	writeFile(t, filepath.Join(dir, "content", "tales", "about.md"), "---\ntitle: About\npath: about\n---\nabout us\n")

	cfg, err := config.Parse([]byte(`
content:
  source: dir
  dir: ` + filepath.Join(dir, "content") + `
output:
  path: ` + filepath.Join(dir, "public") + `
  group_prefix: true
templates:
  dir: ` + filepath.Join(dir, "layouts") + `
cache:
  type: memory
deploy:
  target: ` + target + `
`))
	require.NoError(t, err)

	app, err := newApp(context.Background(), cfg, fsys)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close(context.Background()) })
	return app, dir
}

func TestRunInit(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "seriesgen.yaml")

	require.NoError(t, RunInit(afero.NewOsFs(), cfgPath, "layouts", false))
	assert.FileExists(t, cfgPath)
	assert.FileExists(t, filepath.Join(dir, "layouts", render.TemplateFiles[render.TemplatePage]))

	err := RunInit(afero.NewOsFs(), cfgPath, "layouts", false)
	require.Error(t, err, "existing configuration is kept without --force")
	require.NoError(t, RunInit(afero.NewOsFs(), cfgPath, "layouts", true))
}

func TestRunBuild(t *testing.T) {
	app, dir := project(t, "fs")
	ctx := context.Background()

	require.NoError(t, RunBuild(ctx, app, false))
	page, err := os.ReadFile(filepath.Join(dir, "public", "tales-of-old", "about", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "about us")
	assert.FileExists(t, filepath.Join(dir, "public", "index.html"))

	require.NoError(t, RunBuild(ctx, app, false), "unchanged rebuild")
	require.NoError(t, RunBuild(ctx, app, true), "forced rebuild")
}

func TestRunTree(t *testing.T) {
	app, _ := project(t, "fs")
	var buf bytes.Buffer
	require.NoError(t, RunTree(context.Background(), app, &buf))
	assert.Contains(t, buf.String(), "# Tales Of Old\n")
	assert.Contains(t, buf.String(), "about About")
}

func TestPreview(t *testing.T) {
	app, _ := project(t, "debug")
	p, err := NewPreview(context.Background(), app)
	require.NoError(t, err)
	h := p.Server.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tales-of-old/about/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "about us")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/regen", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/p/tales/about", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "about us")
}

func TestPreviewReloadAppliesTemplates(t *testing.T) {
	app, dir := project(t, "debug")
	p, err := NewPreview(context.Background(), app)
	require.NoError(t, err)
	h := p.Server.Handler()

	writeFile(t, filepath.Join(dir, "layouts", render.TemplateFiles[render.TemplatePage]), "edited layout {{.title}}")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reload", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tales-of-old/about/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "edited layout")
}

func TestRunDaemonRejectsBadInterval(t *testing.T) {
	app, _ := project(t, "fs")
	app.Config.Daemon.Interval = "0s"
	require.Error(t, RunDaemon(context.Background(), app))
}
