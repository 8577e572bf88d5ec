// Command granabox-ctl manages dashboard items from the terminal through the
// REST backend.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

var cli CLI

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kctx := kong.Parse(&cli,
		kong.Name("granabox-ctl"),
		kong.Description("Manage GranaBox items from the terminal."),
		kong.UsageOnError(),
		kong.Bind(&cli.Globals),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	err := kctx.Run()
	kctx.FatalIfErrorf(err)
}
