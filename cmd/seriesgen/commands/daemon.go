package commands

import (
	"context"
	"log/slog"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"git.home.luguber.info/inful/seriesgen/internal/build"
	"git.home.luguber.info/inful/seriesgen/internal/daemon"
	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
	"git.home.luguber.info/inful/seriesgen/internal/logfields"
	"git.home.luguber.info/inful/seriesgen/internal/server"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	Interval string `short:"i" help:"Override daemon.interval (e.g. 5m)"`
}

func (d *DaemonCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := loadApp(ctx, root)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	if d.Interval != "" {
		app.Config.Daemon.Interval = d.Interval
	}
	return RunDaemon(ctx, app)
}

// RunDaemon runs build cycles until ctx is canceled. With metrics enabled
// they are served on debug.port.
func RunDaemon(ctx context.Context, app *App) error {
	interval := app.Config.DaemonInterval()
	if interval <= 0 {
		return errors.ValidationError("daemon interval must be a positive duration").
			WithContext("interval", app.Config.Daemon.Interval).Build()
	}
	target, err := app.Target()
	if err != nil {
		return err
	}
	svc := &reloadingService{app: app, next: app.Service(target)}

	if h := app.MetricsHandler(); h != nil {
		srv := server.New(server.Options{Metrics: h})
		addr := net.JoinHostPort("", strconv.Itoa(app.Config.Debug.Port))
		go func() {
			if err := srv.ListenAndServe(ctx, addr); err != nil {
				slog.Error("Metrics server failed", logfields.Error(err))
			}
		}()
	}

	slog.Info("Starting daemon mode", slog.Duration("interval", interval), logfields.Target(target.Name()))
	d := daemon.New(svc, interval)
	d.AfterCycle = func(res *build.Result, err error) {
		if err == nil && res != nil {
			slog.Info("Cycle finished", slog.String("status", string(res.Status)), slog.Int("pages", res.Pages))
		}
	}
	return d.Run(ctx)
}

// reloadingService rereads a directory store before every cycle.
type reloadingService struct {
	app  *App
	next build.Service
}

func (s *reloadingService) Run(ctx context.Context) (*build.Result, error) {
	if err := s.app.ReloadContent(); err != nil {
		return nil, err
	}
	return s.next.Run(ctx)
}
