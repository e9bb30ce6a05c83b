package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

// Global is bound into every command's Run.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"seriesgen.yaml"`
	Local   string           `name:"local" help:"Optional overlay applied on top of the configuration" default:"seriesgen.local.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build  BuildCmd  `cmd:"" help:"Run one build cycle against the configured deploy target"`
	Serve  ServeCmd  `cmd:"" help:"Build into memory and serve the site with live reload"`
	Page   PageCmd   `cmd:"" help:"Serve single pages rendered on request (/p/<id>, /pi/<id>)"`
	Daemon DaemonCmd `cmd:"" help:"Run build cycles on the configured interval"`
	Tree   TreeCmd   `cmd:"" help:"Print the page trees without rendering"`
	Init   InitCmd   `cmd:"" help:"Write an example configuration and starter templates"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	g.Logger = logger
	return nil
}
