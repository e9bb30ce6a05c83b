package commands

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/seriesgen/internal/assets"
	"git.home.luguber.info/inful/seriesgen/internal/blog"
	"git.home.luguber.info/inful/seriesgen/internal/build"
	"git.home.luguber.info/inful/seriesgen/internal/cache"
	"git.home.luguber.info/inful/seriesgen/internal/config"
	"git.home.luguber.info/inful/seriesgen/internal/content"
	"git.home.luguber.info/inful/seriesgen/internal/content/filestore"
	"git.home.luguber.info/inful/seriesgen/internal/content/mongostore"
	"git.home.luguber.info/inful/seriesgen/internal/deploy"
	"git.home.luguber.info/inful/seriesgen/internal/deploy/hosted"
	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
	"git.home.luguber.info/inful/seriesgen/internal/logfields"
	"git.home.luguber.info/inful/seriesgen/internal/metrics"
	"git.home.luguber.info/inful/seriesgen/internal/pagetree"
	"git.home.luguber.info/inful/seriesgen/internal/preproc"
	"git.home.luguber.info/inful/seriesgen/internal/render"
	"git.home.luguber.info/inful/seriesgen/internal/retry"
	"git.home.luguber.info/inful/seriesgen/internal/server"
	"git.home.luguber.info/inful/seriesgen/internal/site"
)

// App holds everything a command needs, wired from one configuration.
type App struct {
	Config *config.Config

	fs        afero.Fs
	cache     cache.Cache
	store     content.Store
	files     *filestore.Store
	templates *render.FileTemplates
	images    *assets.Images
	pipeline  *render.Pipeline
	blog      *blog.Builder
	registry  *prom.Registry
	recorder  metrics.Recorder
}

// loadApp loads the configuration named by root and opens the stores.
func loadApp(ctx context.Context, root *CLI) (*App, error) {
	cfg, err := config.Load(root.Config, root.Local)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, afero.NewOsFs())
}

func newApp(ctx context.Context, cfg *config.Config, fsys afero.Fs) (*App, error) {
	a := &App{Config: cfg, fs: fsys, recorder: metrics.NoopRecorder{}}

	c, err := cache.Open(ctx, cache.Options{
		Type:    string(cfg.Cache.Type),
		NATSURL: cfg.Cache.NATSURL,
		Bucket:  cfg.Cache.Bucket,
		Path:    cfg.Cache.Path,
	})
	if err != nil {
		return nil, err
	}
	a.cache = c

	if err := a.openStore(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}

	templates, err := render.LoadTemplates(fsys, cfg.Templates.Dir, nil)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.templates = templates

	images, err := assets.NewImages(fsys, cfg.Assets.ImageDir)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.images = images

	md := render.NewMarkdown()
	a.pipeline = render.New(render.Options{
		Prefix:     pagetree.Prefix{URL: urlPrefix(cfg.Output.PathPrefix()), Group: cfg.Output.GroupPrefix},
		Domain:     cfg.Site.Domain,
		Discussion: cfg.Features.Discussion,
		Analytics:  cfg.Features.Analytics,
		Social:     cfg.Features.Social,
	}, templates, preproc.New(preproc.Registry{assets.Command: images}), md)
	a.blog = blog.NewBuilder(templates, md)

	if cfg.Monitoring.Metrics {
		a.registry = metrics.NewRegistry()
		a.recorder = metrics.NewPrometheusRecorder(a.registry)
	}
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config.Content
	switch cfg.Source {
	case config.ContentDir:
		s, err := filestore.Open(a.fs, cfg.Dir)
		if err != nil {
			return err
		}
		a.store, a.files = s, s
	case config.ContentMongo:
		s, err := mongostore.Open(ctx, mongostore.Config{
			URI:               cfg.MongoURL,
			Database:          cfg.Database,
			GroupsCollection:  cfg.GroupsCollection,
			RecordsCollection: cfg.RecordsCollection,
			Timeout:           a.Config.ContentTimeout(),
		})
		if err != nil {
			return err
		}
		a.store = s
	default:
		return errors.ConfigError("unknown content source").WithContext("source", string(cfg.Source)).Build()
	}
	slog.Debug("Content store opened", slog.String("source", string(cfg.Source)))
	return nil
}

// urlPrefix makes a configured prefix absolute.
func urlPrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

// Filter is the record filter derived from the configuration.
func (a *App) Filter() content.Filter {
	return content.Filter{Names: a.Config.Content.Groups, MinStatus: a.Config.Content.MinStatus}
}

// Materializer renders pages with the configured pipeline.
func (a *App) Materializer() deploy.Materializer {
	out := a.Config.Output
	return deploy.Materializer{
		Renderer: a.pipeline,
		Options: site.Options{
			Dir:          strings.Trim(out.URLPrefix, "/"),
			GroupPrefix:  out.GroupPrefix,
			IncludeRaw:   out.IncludeRaw,
			StaticFS:     a.fs,
			StaticSource: out.StaticDir,
			Images:       a.images,
			IndexHeading: a.Config.Site.IndexHeading,
		},
		Recorder: a.recorder,
	}
}

// Target builds the deploy target named in the configuration.
func (a *App) Target() (deploy.Target, error) {
	m := a.Materializer()
	d := a.Config.Deploy
	policy := retry.FromConfig(a.Config.Retry)
	switch d.Target {
	case config.DeployFS:
		return deploy.NewOutputDir(a.Config.Output.Path, a.cache, m), nil
	case config.DeployFTP:
		dial := deploy.DialFTP(d.FTP.Host, d.FTP.User, d.FTP.Password, a.Config.FTPTimeout())
		return deploy.NewFTP(dial, a.cache, m, policy), nil
	case config.DeployHosted:
		client := hosted.New(hosted.Options{
			APIURL:      d.Hosted.APIURL,
			Token:       d.Hosted.Token,
			SiteID:      d.Hosted.SiteID,
			Concurrency: d.Hosted.Concurrency,
			Policy:      policy,
			OnRetry:     a.recorder.IncRetry,
		})
		return deploy.NewHosted(client, a.cache, m), nil
	case config.DeployDebug:
		return deploy.NewDebug(m), nil
	default:
		return nil, errors.ConfigError("unknown deploy target").WithContext("target", string(d.Target)).Build()
	}
}

// Service returns a build service publishing to target.
func (a *App) Service(target deploy.Target) *build.DefaultService {
	return build.NewService(a.store, target, a.blog).
		WithFilter(a.Filter()).
		WithRebuildAll(!a.Config.Output.GroupPrefix).
		WithRecorder(a.recorder)
}

// Pages renders single records on request.
func (a *App) Pages() *server.Pages {
	return server.NewPages(a.store, a.pipeline, a.blog, a.Filter())
}

// MetricsHandler exposes the registry, or nil when metrics are disabled.
func (a *App) MetricsHandler() http.Handler {
	if a.registry == nil {
		return nil
	}
	return metrics.HTTPHandler(a.registry)
}

// ReloadTemplates rereads templates and the image folder.
func (a *App) ReloadTemplates() error {
	if err := a.templates.Reload(); err != nil {
		return err
	}
	if err := a.images.Reload(); err != nil {
		return err
	}
	a.pipeline.ResetNavigation()
	return nil
}

// ReloadContent rereads a directory store. Other stores are queried live.
func (a *App) ReloadContent() error {
	if a.files == nil {
		return nil
	}
	return a.files.Reload()
}

// Close releases the store and cache.
func (a *App) Close(ctx context.Context) {
	if a.store != nil {
		if err := a.store.Close(ctx); err != nil {
			slog.Warn("Failed to close content store", logfields.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			slog.Warn("Failed to close cache", logfields.Error(err))
		}
	}
}
