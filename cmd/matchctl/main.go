package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"service-courier-match/internal/app"
	"service-courier-match/internal/cli"
	"service-courier-match/internal/logx"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := cli.NewRootCommand(cli.Deps{
		OpenAdmin: func(ctx context.Context) (cli.Admin, func(), error) {
			return app.OpenAdmin(ctx, logx.Nop())
		},
	})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
