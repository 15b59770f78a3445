package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophdir/internal/directory"
	"github.com/iudanet/gophdir/internal/election"
	"github.com/iudanet/gophdir/internal/models"
	"github.com/iudanet/gophdir/internal/replication"
	"github.com/iudanet/gophdir/internal/token"
	"github.com/iudanet/gophdir/pkg/api"
)

const (
	testSecret   = "cluster-secret"
	testPassword = "password123"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCluster одновременно replication.Cluster и directory.Leadership
type fakeCluster struct {
	leaderURL string
	leader    bool
}

func (c *fakeCluster) AmLeader() bool { return c.leader }

func (c *fakeCluster) Followers() []election.Candidate { return nil }

func (c *fakeCluster) Leader() (election.Candidate, bool) {
	if c.leader {
		return election.Candidate{Handle: "c1", URL: "http://self:8080"}, true
	}
	return election.Candidate{Handle: "c0", URL: c.leaderURL}, c.leaderURL != ""
}

type staticNodes []string

func (n staticNodes) Reachable() []string { return slices.Clone(n) }

type testDirectory struct {
	service *directory.Service
	manager *replication.Manager
	state   *directory.State
	blobs   *directory.BlobPusherMock
	mux     *http.ServeMux
}

// newTestDirectory собирает реплику каталога без последователей
func newTestDirectory(t *testing.T, cluster *fakeCluster) *testDirectory {
	t.Helper()
	logger := setupTestLogger()

	users := &directory.UserDirectoryMock{
		AuthenticateFunc: func(_ context.Context, userID, password string) error {
			if !slices.Contains([]string{"alice", "bob"}, userID) {
				return models.ErrNotFound
			}
			if password != testPassword {
				return models.ErrForbidden
			}
			return nil
		},
		ExistsFunc: func(_ context.Context, userID string) (bool, error) {
			return slices.Contains([]string{"alice", "bob"}, userID), nil
		},
	}
	blobs := &directory.BlobPusherMock{
		PushFunc:   func(context.Context, string, string, []byte) error { return nil },
		RemoveFunc: func(context.Context, string, string) error { return nil },
	}

	state := directory.NewState(staticNodes{"http://n1", "http://n2"}, users, blobs, directory.Options{}, logger)
	manager := replication.NewManager(replication.Config{
		ReplicaID:   "r1",
		VersionWait: 100 * time.Millisecond,
	}, state, cluster, nil, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	manager.Start(ctx)

	svc := directory.NewService(state, manager, cluster, token.NewIssuer(testSecret, 0), logger)

	mux := http.NewServeMux()
	NewDirectoryHandler(logger, svc, token.NewValidator(testSecret)).Register(mux)
	NewReplicaHandler(logger, manager).Register(mux)

	return &testDirectory{service: svc, manager: manager, state: state, blobs: blobs, mux: mux}
}

func (d *testDirectory) do(t *testing.T, method, target string, body io.Reader, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	for k, v := range header {
		req.Header[http.CanonicalHeaderKey(k)] = v
	}
	w := httptest.NewRecorder()
	d.mux.ServeHTTP(w, req)
	return w
}

func responseVersion(t *testing.T, w *httptest.ResponseRecorder) models.Version {
	t.Helper()
	v, err := models.ParseVersionHeader(w.Header().Get(api.VersionHeader))
	require.NoError(t, err)
	return v
}

func versionHeader(v models.Version) http.Header {
	return http.Header{api.VersionHeader: []string{v.Header()}}
}
