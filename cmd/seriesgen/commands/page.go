package commands

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/seriesgen/internal/server"
)

// PageCmd implements the 'page' command: pages are rendered from the store
// on every request, next to static files served from the output directory.
type PageCmd struct {
	Port int `short:"p" help:"Port to listen on (default: debug.port from the configuration)"`
}

func (p *PageCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := loadApp(ctx, root)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	port := p.Port
	if port == 0 {
		port = app.Config.Debug.Port
	}
	srv := NewPageServer(app)
	addr := net.JoinHostPort("", strconv.Itoa(port))
	fmt.Printf("Serving single pages on http://localhost%s/p/<id>\n", addr)
	return srv.ListenAndServe(ctx, addr)
}

// NewPageServer returns a server rendering single pages. /reload rereads
// templates and a directory store.
func NewPageServer(app *App) *server.Server {
	return server.New(server.Options{
		Site:  afero.NewReadOnlyFs(afero.NewBasePathFs(app.fs, app.Config.Output.Path)),
		Pages: app.Pages(),
		Reload: func(context.Context) error {
			if err := app.ReloadContent(); err != nil {
				return err
			}
			return app.ReloadTemplates()
		},
		Metrics: app.MetricsHandler(),
	})
}
