package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/seriesgen/cmd/seriesgen/commands"
	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
	"git.home.luguber.info/inful/seriesgen/internal/version"
)

func main() {
	var cli commands.CLI
	global := &commands.Global{}

	ctx := kong.Parse(&cli,
		kong.Name("seriesgen"),
		kong.Description("Static site generator for grouped content series"),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)

	if err := ctx.Run(global, &cli); err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
