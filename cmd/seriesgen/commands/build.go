package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/seriesgen/internal/deploy"
	"git.home.luguber.info/inful/seriesgen/internal/incremental"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	All bool `short:"a" help:"Rebuild every group regardless of stored fingerprints"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := loadApp(ctx, root)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())
	return RunBuild(ctx, app, b.All)
}

// RunBuild runs one build cycle against the configured target.
func RunBuild(ctx context.Context, app *App, all bool) error {
	target, err := app.Target()
	if err != nil {
		return err
	}
	if all {
		target = fullBuild{target}
	}
	svc := app.Service(target)

	fmt.Println("Starting seriesgen build")
	res, err := svc.Run(ctx)
	if err != nil {
		return err
	}
	slog.Info("Build finished",
		slog.String("status", string(res.Status)),
		slog.Int("groups", len(res.Rebuilt)),
		slog.Int("pages", res.Pages),
		slog.Duration("duration", res.Duration))
	fmt.Printf("Build %s: %d group(s) rebuilt, %d page(s) written\n", res.Status, len(res.Rebuilt), res.Pages)
	return nil
}

// fullBuild lets the target load its published state but reports none, so
// every group is rebuilt.
type fullBuild struct {
	deploy.Target
}

func (f fullBuild) PresentGroups(ctx context.Context) (*incremental.Fingerprints, error) {
	if _, err := f.Target.PresentGroups(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}
