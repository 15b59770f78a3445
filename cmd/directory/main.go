package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/gophdir/internal/config"
	"github.com/iudanet/gophdir/internal/coord"
	"github.com/iudanet/gophdir/internal/server"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	build := server.BuildInfo{Version: Version, BuildDate: BuildDate, GitCommit: GitCommit}
	if *showVersion {
		build.Print(os.Stdout, "gophdir directory replica")
		os.Exit(0)
	}

	logger := server.NewLogger(os.Stderr, *debug)
	if err := run(*configPath, *addr, build, logger); err != nil {
		logger.Error("directory replica stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath, addr string, build server.BuildInfo, logger *slog.Logger) error {
	cfg, err := config.LoadDirectory(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Listen = addr
	}
	logger = logger.With(slog.String("replica_id", cfg.ReplicaID))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	co, err := dialCoordinator(cfg.Coordinator, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = co.Close()
	}()

	r, err := newReplica(cfg, co, build, logger)
	if err != nil {
		return err
	}
	defer r.close()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	r.onFatal = func(err error) { cancel(err) }

	if err := r.start(ctx); err != nil {
		return err
	}

	logger.Info("directory replica starting",
		slog.String("listen", cfg.Listen),
		slog.String("advertise_url", cfg.AdvertiseURL),
		slog.String("version", build.Version),
	)
	if err := server.ListenAndServe(ctx, cfg.Listen, r.handler(), logger); err != nil {
		return err
	}

	// расхождение состояния: процесс завершается с ошибкой
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return fmt.Errorf("replica failed: %w", cause)
	}
	return nil
}

func dialCoordinator(cfg config.CoordinatorConfig, logger *slog.Logger) (coord.Coordinator, error) {
	if cfg.Kind == config.KindZooKeeper {
		return coord.DialZooKeeper(cfg.Servers, cfg.SessionTimeout, logger)
	}
	logger.Warn("using in-process coordinator, this replica cannot form a cluster")
	return coord.NewMemoryServer().Session(), nil
}
