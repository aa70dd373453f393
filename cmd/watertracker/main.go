package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/watertracker/cmd/watertracker/commands"
	derrors "git.home.luguber.info/inful/watertracker/internal/errors"
	"git.home.luguber.info/inful/watertracker/internal/version"
)

func main() {
	var cli commands.CLI
	global := &commands.Global{}

	ctx := kong.Parse(&cli,
		kong.Name("watertracker"),
		kong.Description("Daily water intake counter with a midnight reset."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := ctx.Run(global, &cli)
	logger := global.Logger
	if logger == nil {
		logger = slog.Default()
	}
	derrors.NewCLIErrorAdapter(cli.Verbose, logger).HandleError(err)
}
