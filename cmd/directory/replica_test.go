package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophdir/internal/blob"
	"github.com/iudanet/gophdir/internal/bus"
	clientapi "github.com/iudanet/gophdir/internal/client/api"
	"github.com/iudanet/gophdir/internal/config"
	"github.com/iudanet/gophdir/internal/coord"
	"github.com/iudanet/gophdir/internal/server"
	"github.com/iudanet/gophdir/internal/server/handlers"
	"github.com/iudanet/gophdir/internal/server/storage/sqlite"
	"github.com/iudanet/gophdir/internal/token"
	"github.com/iudanet/gophdir/pkg/api"
)

const testSecret = "cluster-secret"

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// cluster сервис пользователей, два storage-узла и общий координатор
type cluster struct {
	logger        *slog.Logger
	coordinator   *coord.MemoryServer
	announcements *bus.Memory
	usersURL      string
	nodeURLs      []string
}

func newCluster(t *testing.T) *cluster {
	t.Helper()
	logger := setupTestLogger()
	c := &cluster{
		logger:        logger,
		coordinator:   coord.NewMemoryServer(),
		announcements: bus.NewMemory(logger),
	}

	users, err := sqlite.New(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = users.Close() })
	usersMux := http.NewServeMux()
	handlers.NewUsersHandler(logger, users, c.announcements).Register(usersMux)
	usersServer := httptest.NewServer(usersMux)
	t.Cleanup(usersServer.Close)
	c.usersURL = usersServer.URL

	for range 2 {
		store, err := blob.NewFS(t.TempDir())
		require.NoError(t, err)
		mux := http.NewServeMux()
		handlers.NewObjectsHandler(logger, store, token.NewValidator(testSecret), 1<<20).Register(mux)
		mux.HandleFunc("GET /health", handlers.NewHealthHandler(logger, "test", nil).Health)
		node := httptest.NewServer(mux)
		t.Cleanup(node.Close)
		c.nodeURLs = append(c.nodeURLs, node.URL)
	}
	return c
}

// startReplica загружает конфигурацию из YAML и запускает реплику
func (c *cluster) startReplica(t *testing.T, id string) *replica {
	t.Helper()
	srv := httptest.NewUnstartedServer(nil)
	advertise := "http://" + srv.Listener.Addr().String()

	yaml := fmt.Sprintf(`
advertise_url: "%s"
replica_id: %s
secret: %s
users_url: "%s"
nodes:
  urls:
    - "%s"
    - "%s"
  probe_interval: 100ms
replication:
  quorum_timeout: 2s
placement:
  candidates: 2
  replicas: 2
`, advertise, id, testSecret, c.usersURL, c.nodeURLs[0], c.nodeURLs[1])
	path := filepath.Join(t.TempDir(), "directory.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	cfg, err := config.LoadDirectory(path)
	require.NoError(t, err)

	session := c.coordinator.Session()
	r, err := newReplica(cfg, session, server.BuildInfo{Version: "test"}, c.logger)
	require.NoError(t, err)
	r.subscriber = c.announcements
	r.onFatal = func(err error) { t.Errorf("replica %s failed: %v", id, err) }

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		srv.Close()
		_ = session.Close()
	})
	require.NoError(t, r.start(ctx))

	srv.Config.Handler = r.handler()
	srv.Start()
	return r
}

func TestReplica_EndToEnd(t *testing.T) {
	c := newCluster(t)
	ctx := context.Background()

	users := clientapi.NewUsersClient(c.usersURL, time.Second, 0)
	for _, id := range []string{"alice", "bob"} {
		_, err := users.Create(ctx, api.CreateUserRequest{ID: id, Password: "password123"})
		require.NoError(t, err)
	}

	leader := c.startReplica(t, "r1")
	follower := c.startReplica(t, "r2")

	require.Eventually(t, func() bool {
		l, ok := follower.election.Leader()
		return ok && l.ReplicaID == "r1" && len(leader.election.Followers()) == 1
	}, 5*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool {
		return c.announcements.Subscribers() == 2
	}, 5*time.Second, 20*time.Millisecond)

	alice := clientapi.NewDirectoryClient(follower.cfg.AdvertiseURL, "alice", "password123")
	bob := clientapi.NewDirectoryClient(follower.cfg.AdvertiseURL, "bob", "password123")

	// запись через последователя уходит лидеру
	info, err := alice.Write(ctx, "alice", "notes.txt", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "alice", info.Owner)
	assert.Equal(t, "r1", alice.LastVersion().ReplicaID)
	assert.Equal(t, alice.LastVersion(), leader.manager.CurrentVersion())

	data, err := alice.Read(ctx, "alice", "notes.txt", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = bob.Read(ctx, "alice", "notes.txt", "bob")
	assert.Error(t, err, "not shared yet")

	require.NoError(t, alice.Share(ctx, "alice", "notes.txt", "bob"))
	require.Eventually(t, func() bool {
		data, err = bob.Read(ctx, "alice", "notes.txt", "bob")
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, "hello", string(data))

	files, err := bob.List(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, []string{"bob"}, files[0].SharedWith)

	// удаление учетной записи убирает ее файлы на всех репликах
	require.NoError(t, users.Delete(ctx, "alice", "password123"))
	require.Eventually(t, func() bool {
		files, err := bob.List(ctx, "bob")
		return err == nil && len(files) == 0
	}, 5*time.Second, 50*time.Millisecond)
	assert.Eventually(t, func() bool {
		return leader.manager.CurrentVersion() == follower.manager.CurrentVersion()
	}, 5*time.Second, 50*time.Millisecond)
}

func TestReplica_Health(t *testing.T) {
	c := newCluster(t)
	r := c.startReplica(t, "solo")

	resp := api.HealthResponse{Status: "ok"}
	r.status(&resp)
	assert.Equal(t, "solo", resp.ReplicaID)
	assert.Equal(t, "leader", resp.Role)
	assert.Equal(t, r.cfg.AdvertiseURL, resp.Leader)
	require.NotNil(t, resp.Current)
}
