package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iudanet/gophdir/internal/bus"
	"github.com/iudanet/gophdir/internal/config"
	"github.com/iudanet/gophdir/internal/server"
	"github.com/iudanet/gophdir/internal/server/handlers"
	"github.com/iudanet/gophdir/internal/server/middleware"
	"github.com/iudanet/gophdir/internal/server/storage"
	"github.com/iudanet/gophdir/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Лимиты запросов. /users (регистрация и поиск) ограничен строже
// операций над отдельной учетной записью.
const (
	registerRate   = 30
	registerWindow = time.Minute
	defaultRate    = 600
	defaultWindow  = time.Minute
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	dbPath := flag.String("db", "", "Path to SQLite database (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	build := server.BuildInfo{Version: Version, BuildDate: BuildDate, GitCommit: GitCommit}
	if *showVersion {
		build.Print(os.Stdout, "gophdir users service")
		os.Exit(0)
	}

	logger := server.NewLogger(os.Stderr, *debug)
	if err := run(*configPath, *addr, *dbPath, build, logger); err != nil {
		logger.Error("users service stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath, addr, dbPath string, build server.BuildInfo, logger *slog.Logger) error {
	cfg, err := config.LoadUsers(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Listen = addr
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.New(ctx, cfg.DBPath, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	publisher, err := server.NewPublisher(cfg.Bus, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = publisher.Close()
	}()

	logger.Info("users service starting",
		slog.String("listen", cfg.Listen),
		slog.String("db_path", cfg.DBPath),
		slog.String("bus", cfg.Bus.Kind),
		slog.String("version", build.Version),
	)
	return server.ListenAndServe(ctx, cfg.Listen, newHandler(db, publisher, build, logger), logger)
}

func newHandler(users storage.UserStorage, publisher bus.Publisher, build server.BuildInfo, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	handlers.NewUsersHandler(logger, users, publisher).Register(mux)
	mux.HandleFunc("GET /health", handlers.NewHealthHandler(logger, build.Version, nil).Health)

	limits := []middleware.PathRateLimit{
		{Path: "/users", Rate: registerRate, Window: registerWindow},
	}
	return middleware.Chain(mux,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingWithSkip(logger, []string{"/health"}),
		middleware.RateLimitByPathMiddleware(limits, defaultRate, defaultWindow, logger),
	)
}
