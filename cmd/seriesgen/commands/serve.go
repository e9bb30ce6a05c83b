package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"git.home.luguber.info/inful/seriesgen/internal/build"
	"git.home.luguber.info/inful/seriesgen/internal/deploy"
	"git.home.luguber.info/inful/seriesgen/internal/logfields"
	"git.home.luguber.info/inful/seriesgen/internal/server"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Port    int  `short:"p" help:"Port to listen on (default: debug.port from the configuration)"`
	NoWatch bool `name:"no-watch" help:"Do not rebuild when templates change"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := loadApp(ctx, root)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	port := s.Port
	if port == 0 {
		port = app.Config.Debug.Port
	}
	return RunServe(ctx, app, net.JoinHostPort("", strconv.Itoa(port)), !s.NoWatch && app.Config.Debug.WatchTemplates)
}

// Preview is an in-memory build plus the server serving it.
type Preview struct {
	Server *server.Server
	Target *deploy.Debug
	app    *App
}

// NewPreview builds the site into memory and wires the preview server.
func NewPreview(ctx context.Context, app *App) (*Preview, error) {
	target := deploy.NewDebug(app.Materializer())
	svc := app.Service(target)
	if _, err := svc.Run(ctx); err != nil {
		return nil, err
	}

	p := &Preview{Target: target, app: app}
	p.Server = server.New(server.Options{
		Site: target.FS(),
		Regen: func(ctx context.Context) error {
			if err := app.ReloadTemplates(); err != nil {
				return err
			}
			_, err := target.Regenerate(ctx)
			return err
		},
		Reload: func(ctx context.Context) error {
			if err := app.ReloadContent(); err != nil {
				return err
			}
			if err := app.ReloadTemplates(); err != nil {
				return err
			}
			res, err := svc.Run(ctx)
			if err != nil {
				return err
			}
			// Unchanged content skips generation; templates may still differ.
			if res.Status == build.StatusUnchanged {
				_, err = target.Regenerate(ctx)
			}
			return err
		},
		Tree: func(w io.Writer) error {
			return dumpTrees(w, target.Trees())
		},
		Pages:      app.Pages(),
		LiveReload: app.Config.Debug.LiveReload,
		Metrics:    app.MetricsHandler(),
	})
	return p, nil
}

// RegenOnChange rebuilds the site from the remembered trees. Used as the
// template watcher callback.
func (p *Preview) RegenOnChange(ctx context.Context) {
	err := p.Server.Rebuild(ctx, func(ctx context.Context) error {
		if err := p.app.ReloadTemplates(); err != nil {
			return err
		}
		_, err := p.Target.Regenerate(ctx)
		return err
	})
	if err != nil {
		slog.Error("Regeneration after template change failed", logfields.Error(err))
		return
	}
	slog.Info("Site regenerated after template change")
}

// RunServe serves the preview on addr until ctx is canceled.
func RunServe(ctx context.Context, app *App, addr string, watch bool) error {
	p, err := NewPreview(ctx, app)
	if err != nil {
		return err
	}

	if watch {
		dirs := []string{app.Config.Templates.Dir}
		if app.Config.Assets.ImageDir != "" {
			dirs = append(dirs, app.Config.Assets.ImageDir)
		}
		w, err := server.NewWatcher(dirs, server.DefaultDebounce, p.RegenOnChange)
		if err != nil {
			return err
		}
		go w.Run(ctx)
	}

	fmt.Printf("Serving preview on http://localhost%s\n", addr)
	return p.Server.ListenAndServe(ctx, addr)
}
