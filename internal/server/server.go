// Package server содержит общую обвязку процессов: логгер, HTTP сервер
// с плавной остановкой и подключение к шине объявлений.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/iudanet/gophdir/internal/bus"
	"github.com/iudanet/gophdir/internal/config"
)

// ShutdownTimeout время на завершение активных запросов
const ShutdownTimeout = 10 * time.Second

// BuildInfo метаданные сборки, задаются через ldflags
type BuildInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

// Print печатает метаданные сборки
func (b BuildInfo) Print(w io.Writer, name string) {
	_, _ = fmt.Fprintf(w, "%s\n", name)
	_, _ = fmt.Fprintf(w, "Version:    %s\n", b.Version)
	_, _ = fmt.Fprintf(w, "Build Date: %s\n", b.BuildDate)
	_, _ = fmt.Fprintf(w, "Git Commit: %s\n", b.GitCommit)
}

// NewLogger JSON в production, текст с уровнем Debug при debug
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	if debug {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// Serve обслуживает handler на ln до отмены ctx, затем ждет завершения
// активных запросов не дольше ShutdownTimeout
func Serve(ctx context.Context, ln net.Listener, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe открывает addr и вызывает Serve
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return Serve(ctx, ln, handler, logger)
}

// NewPublisher подключает издателя объявлений. Шина memory доставляет
// сообщения только внутри одного процесса.
func NewPublisher(cfg config.BusConfig, logger *slog.Logger) (bus.Publisher, error) {
	switch cfg.Kind {
	case config.KindMemory, "":
		return bus.NewMemory(logger), nil
	case config.KindKafka:
		return bus.NewKafkaPublisher(kafkaConfig(cfg)), nil
	default:
		return nil, fmt.Errorf("unknown bus kind %q", cfg.Kind)
	}
}

// NewSubscriber подключает подписчика объявлений
func NewSubscriber(cfg config.BusConfig, logger *slog.Logger) (bus.Subscriber, error) {
	switch cfg.Kind {
	case config.KindMemory, "":
		return bus.NewMemory(logger), nil
	case config.KindKafka:
		return bus.NewKafkaSubscriber(kafkaConfig(cfg), logger), nil
	default:
		return nil, fmt.Errorf("unknown bus kind %q", cfg.Kind)
	}
}

func kafkaConfig(cfg config.BusConfig) bus.KafkaConfig {
	return bus.KafkaConfig{Brokers: cfg.Brokers, Topic: cfg.Topic, GroupID: cfg.GroupID}
}
