package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/gophdir/internal/blob"
	"github.com/iudanet/gophdir/internal/bus"
	"github.com/iudanet/gophdir/internal/config"
	"github.com/iudanet/gophdir/internal/crypto"
	"github.com/iudanet/gophdir/internal/server"
	"github.com/iudanet/gophdir/internal/server/handlers"
	"github.com/iudanet/gophdir/internal/server/middleware"
	"github.com/iudanet/gophdir/internal/token"
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
		build.Print(os.Stdout, "gophdir storage node")
		os.Exit(0)
	}

	logger := server.NewLogger(os.Stderr, *debug)
	if err := run(*configPath, *addr, build, logger); err != nil {
		logger.Error("storage node stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath, addr string, build server.BuildInfo, logger *slog.Logger) error {
	cfg, err := config.LoadStorageNode(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Listen = addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close object store", slog.Any("error", err))
		}
	}()

	subscriber, err := server.NewSubscriber(cfg.Bus, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = subscriber.Close()
	}()
	go func() {
		err := subscriber.Subscribe(ctx, bus.OnUserDeleted(logger, ownerPurger(store, logger)))
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, bus.ErrClosed) {
			logger.Error("announcement subscription stopped", slog.Any("error", err))
		}
	}()

	logger.Info("storage node starting",
		slog.String("listen", cfg.Listen),
		slog.String("backend", cfg.Backend),
		slog.Bool("encrypted", cfg.EncryptionKey != ""),
		slog.String("max_object_size", cfg.MaxObjectSize.HumanReadable()),
		slog.String("version", build.Version),
	)
	return server.ListenAndServe(ctx, cfg.Listen, newHandler(cfg, store, build, logger), logger)
}

// openStore открывает хранилище объектов; при заданном encryption_key
// объекты шифруются ключом, производным от него и секрета кластера
func openStore(ctx context.Context, cfg *config.StorageNode, logger *slog.Logger) (blob.Store, error) {
	store, err := blob.Open(ctx, cfg.Backend, cfg.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store at %s: %w", cfg.Backend, cfg.Path, err)
	}
	if cfg.EncryptionKey == "" {
		return store, nil
	}

	key, err := crypto.DeriveKey(cfg.EncryptionKey, []byte(cfg.Secret))
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	cipher, err := crypto.NewCipher(key)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return blob.NewEncrypted(store, cipher), nil
}

func newHandler(cfg *config.StorageNode, store blob.Store, build server.BuildInfo, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	handlers.NewObjectsHandler(logger, store, token.NewValidator(cfg.Secret), int64(cfg.MaxObjectSize)).Register(mux)
	mux.HandleFunc("GET /health", handlers.NewHealthHandler(logger, build.Version, nil).Health)

	return middleware.Chain(mux,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingWithSkip(logger, []string{"/health"}),
	)
}

// ownerPurger удаляет объекты пользователя после USER_DELETED
func ownerPurger(store blob.Store, logger *slog.Logger) func(ctx context.Context, userID string) error {
	return func(ctx context.Context, userID string) error {
		n, err := store.DeleteOwner(ctx, userID)
		if err != nil {
			return fmt.Errorf("delete objects of %s: %w", userID, err)
		}
		logger.InfoContext(ctx, "deleted objects of removed user",
			slog.String("user_id", userID),
			slog.Int("objects", n),
		)
		return nil
	}
}
