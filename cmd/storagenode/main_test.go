package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophdir/internal/blob"
	"github.com/iudanet/gophdir/internal/config"
	"github.com/iudanet/gophdir/internal/server"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenStore(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		encrypted bool
	}{
		{name: "plain", key: ""},
		{name: "encrypted", key: "node-passphrase", encrypted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.StorageNode{
				Secret:        "cluster-secret",
				Backend:       blob.BackendFS,
				Path:          t.TempDir(),
				EncryptionKey: tt.key,
			}
			ctx := context.Background()
			store, err := openStore(ctx, cfg, setupTestLogger())
			require.NoError(t, err)
			defer store.Close()

			_, isEncrypted := store.(*blob.Encrypted)
			assert.Equal(t, tt.encrypted, isEncrypted)

			require.NoError(t, store.Put(ctx, "alice/notes.txt", []byte("hello")))
			data, err := store.Get(ctx, "alice/notes.txt")
			require.NoError(t, err)
			assert.Equal(t, "hello", string(data))

			if tt.encrypted {
				raw, err := blob.NewFS(cfg.Path)
				require.NoError(t, err)
				sealed, err := raw.Get(ctx, "alice/notes.txt")
				require.NoError(t, err)
				assert.NotEqual(t, "hello", string(sealed))
			}
		})
	}
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	cfg := &config.StorageNode{Backend: "tape", Path: t.TempDir()}
	_, err := openStore(context.Background(), cfg, setupTestLogger())
	assert.Error(t, err)
}

func TestOwnerPurger(t *testing.T) {
	ctx := context.Background()
	store, err := blob.NewFS(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put(ctx, "alice/a.txt", []byte("a")))
	require.NoError(t, store.Put(ctx, "alice/b.txt", []byte("b")))
	require.NoError(t, store.Put(ctx, "bob/c.txt", []byte("c")))

	require.NoError(t, ownerPurger(store, setupTestLogger())(ctx, "alice"))

	_, err = store.Get(ctx, "alice/a.txt")
	assert.Error(t, err)
	data, err := store.Get(ctx, "bob/c.txt")
	require.NoError(t, err)
	assert.Equal(t, "c", string(data))
}

func TestNewHandler_Health(t *testing.T) {
	store, err := blob.NewFS(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	cfg := &config.StorageNode{Secret: "cluster-secret", MaxObjectSize: 1024}
	h := newHandler(cfg, store, server.BuildInfo{Version: "1.0.0"}, setupTestLogger())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":"1.0.0"`)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/alice/notes.txt", nil))
	assert.Equal(t, http.StatusForbidden, w.Code, "object access requires a token")
}
