package server

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophdir/internal/bus"
	"github.com/iudanet/gophdir/internal/config"
)

func TestServe_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, ln, handler, logger) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, false).Debug("hidden")
	NewLogger(&buf, false).Info("visible", slog.String("k", "v"))
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"visible"`)

	buf.Reset()
	NewLogger(&buf, true).Debug("debug line")
	assert.Contains(t, buf.String(), "msg=\"debug line\"")
}

func TestBuildInfo_Print(t *testing.T) {
	var buf bytes.Buffer
	BuildInfo{Version: "1.2.3", BuildDate: "today", GitCommit: "abc"}.Print(&buf, "gophdir directory")
	assert.Equal(t, "gophdir directory\nVersion:    1.2.3\nBuild Date: today\nGit Commit: abc\n", buf.String())
}

func TestBus(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	pub, err := NewPublisher(config.BusConfig{Kind: config.KindMemory}, logger)
	require.NoError(t, err)
	assert.IsType(t, &bus.Memory{}, pub)
	assert.NoError(t, pub.Publish(context.Background(), bus.UserDeleted("alice")), "no subscribers is fine")

	sub, err := NewSubscriber(config.BusConfig{}, logger)
	require.NoError(t, err)
	assert.IsType(t, &bus.Memory{}, sub)

	_, err = NewPublisher(config.BusConfig{Kind: "rabbit"}, logger)
	assert.Error(t, err)
	_, err = NewSubscriber(config.BusConfig{Kind: "rabbit"}, logger)
	assert.Error(t, err)
}
