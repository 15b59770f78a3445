package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/gophdir/internal/client/cli"
	"github.com/iudanet/gophdir/internal/client/iocli"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stdio := iocli.NewStdio(os.Stdin, os.Stdout, os.Stderr)
	root := cli.NewRootCommand(stdio, cli.BuildInfo{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
	})
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
