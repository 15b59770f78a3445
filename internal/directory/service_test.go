package directory

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophdir/internal/election"
	"github.com/iudanet/gophdir/internal/models"
	"github.com/iudanet/gophdir/internal/replication"
	"github.com/iudanet/gophdir/internal/token"
)

// localReplicator фиксирует дельты сразу в локальном состоянии
type localReplicator struct {
	state    *State
	commits  []*models.FileDelta
	version  models.Version
	degraded bool
	waitErr  error
	mu       sync.Mutex
}

func (r *localReplicator) Commit(ctx context.Context, delta *models.FileDelta, payload []byte) (replication.CommitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.version = r.version.Next("leader")
	r.commits = append(r.commits, delta.Clone())
	comp, err := r.state.ApplyDelta(ctx, delta, true, payload)
	if err != nil {
		return replication.CommitResult{}, err
	}
	return replication.CommitResult{Version: r.version, Degraded: r.degraded, Compensation: comp}, nil
}

func (r *localReplicator) CurrentVersion() models.Version {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

func (r *localReplicator) WaitFor(context.Context, models.Version) error {
	return r.waitErr
}

func (r *localReplicator) committed() []*models.FileDelta {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commits
}

type fakeLeadership struct {
	leader election.Candidate
	am     bool
}

func (f fakeLeadership) AmLeader() bool { return f.am }

func (f fakeLeadership) Leader() (election.Candidate, bool) {
	return f.leader, f.leader.Handle != ""
}

const testSecret = "cluster-secret"

func newTestService(t *testing.T, nodes *staticNodes, blobs *BlobPusherMock) (*Service, *localReplicator) {
	t.Helper()
	state := newTestState(nodes, blobs)
	repl := &localReplicator{state: state}
	cluster := fakeLeadership{am: true, leader: election.Candidate{Handle: "c1", URL: "http://leader:8080"}}
	return NewService(state, repl, cluster, token.NewIssuer(testSecret, 0), setupTestLogger()), repl
}

func TestService_Write(t *testing.T) {
	ctx := context.Background()
	blobs := newTestBlobs()
	svc, repl := newTestService(t, &staticNodes{nodes: []string{"http://n1", "http://n2", "http://n3"}}, blobs)

	res, err := svc.Write(ctx, "report.txt", "alice", testPassword, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Version.Counter)
	assert.False(t, res.Degraded)
	require.NotNil(t, res.Record)
	assert.Equal(t, []string{"http://n1", "http://n2"}, res.Record.Locations)
	assert.Len(t, blobs.PushCalls(), 2)

	// повторная запись не меняет узлы, но обновляет байты
	res, err = svc.Write(ctx, "report.txt", "alice", testPassword, []byte("hello again"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Version.Counter, "no delta committed")
	assert.Len(t, repl.committed(), 1)
	require.Len(t, blobs.PushCalls(), 4)
	assert.Equal(t, []byte("hello again"), blobs.PushCalls()[3].Payload)

	assert.Equal(t, "http://n1/files/alice/report.txt", svc.FileURL(res.Record))
}

func TestService_WriteRollsBackFailedNodes(t *testing.T) {
	blobs := newTestBlobs()
	blobs.PushFunc = func(_ context.Context, node, _ string, _ []byte) error {
		if node == "n2" {
			return models.ErrTimeout
		}
		return nil
	}
	svc, repl := newTestService(t, &staticNodes{nodes: []string{"n1", "n2"}}, blobs)

	res, err := svc.Write(context.Background(), "a.txt", "alice", testPassword, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"n1"}, res.Record.Locations)
	assert.Equal(t, int64(2), res.Version.Counter)

	commits := repl.committed()
	require.Len(t, commits, 2)
	assert.Equal(t, []string{"n2"}, commits[1].RemovedLocations)
}

func TestService_WriteReplacesRejectingNodes(t *testing.T) {
	tests := []struct {
		name      string
		nodes     []string
		rejecting []string
		want      []string
		commits   int
	}{
		{
			name:      "next candidate takes the slot",
			nodes:     []string{"n1", "n2", "n3"},
			rejecting: []string{"n2"},
			want:      []string{"n1", "n3"},
			commits:   3,
		},
		{
			name:      "keeps trying until a candidate accepts",
			nodes:     []string{"n1", "n2", "n3", "n4"},
			rejecting: []string{"n2", "n3"},
			want:      []string{"n1", "n4"},
			commits:   5,
		},
		{
			name:      "candidates run out",
			nodes:     []string{"n1", "n2", "n3"},
			rejecting: []string{"n2", "n3"},
			want:      []string{"n1"},
			commits:   4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blobs := newTestBlobs()
			blobs.PushFunc = func(_ context.Context, node, _ string, _ []byte) error {
				if slices.Contains(tt.rejecting, node) {
					return models.ErrTimeout
				}
				return nil
			}
			svc, repl := newTestService(t, &staticNodes{nodes: tt.nodes}, blobs)

			res, err := svc.Write(context.Background(), "a.txt", "alice", testPassword, []byte("x"))
			require.NoError(t, err)
			require.NotNil(t, res.Record)
			assert.ElementsMatch(t, tt.want, res.Record.Locations)
			assert.Len(t, repl.committed(), tt.commits)
			assert.Equal(t, int64(tt.commits), res.Version.Counter)

			for _, n := range tt.nodes {
				want := int64(0)
				if slices.Contains(tt.want, n) {
					want = 1
				}
				assert.Equal(t, want, svc.State().Load(n), "load of %s", n)
			}
		})
	}
}

func TestService_WriteNoNodeAccepted(t *testing.T) {
	blobs := newTestBlobs()
	blobs.PushFunc = func(context.Context, string, string, []byte) error { return models.ErrTimeout }
	svc, _ := newTestService(t, &staticNodes{nodes: []string{"n1", "n2"}}, blobs)

	_, err := svc.Write(context.Background(), "a.txt", "alice", testPassword, []byte("x"))
	assert.ErrorIs(t, err, models.ErrBadRequest)
	assert.Nil(t, svc.State().Lookup("alice/a.txt"))
}

func TestService_FollowerRedirects(t *testing.T) {
	state := newTestState(&staticNodes{nodes: []string{"n1"}}, newTestBlobs())
	repl := &localReplicator{state: state}
	follower := NewService(state, repl, fakeLeadership{leader: election.Candidate{Handle: "c1", URL: "http://leader:8080"}},
		token.NewIssuer(testSecret, 0), setupTestLogger())

	_, err := follower.Write(context.Background(), "a.txt", "alice", testPassword, nil)
	var redirect *models.RedirectError
	require.True(t, errors.As(err, &redirect))
	assert.Equal(t, "http://leader:8080", redirect.Location)
	assert.Empty(t, repl.committed())

	_, err = follower.Purge(context.Background(), "alice")
	require.True(t, errors.As(err, &redirect))

	orphan := NewService(state, repl, fakeLeadership{}, token.NewIssuer(testSecret, 0), setupTestLogger())
	_, err = orphan.Delete(context.Background(), "a.txt", "alice", testPassword)
	assert.ErrorIs(t, err, models.ErrTimeout)
}

func TestService_ReadIssuesToken(t *testing.T) {
	ctx := context.Background()
	nodes := &staticNodes{nodes: []string{"http://n1", "http://n2"}}
	svc, _ := newTestService(t, nodes, newTestBlobs())

	_, err := svc.Write(ctx, "my report.txt", "alice", testPassword, []byte("x"))
	require.NoError(t, err)

	nodes.set("http://n2")
	target, version, err := svc.Read(ctx, "my report.txt", "alice", "alice", testPassword, models.Version{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), version.Counter)

	u, err := url.Parse(target)
	require.NoError(t, err)
	assert.Equal(t, "n2", u.Host)
	assert.True(t, strings.HasPrefix(target, "http://n2/files/alice/my%20report.txt?token="))

	validator := token.NewValidator(testSecret)
	assert.NoError(t, validator.Validate(u.Query().Get("token"), "alice/my report.txt", token.ModeRead))
}

func TestService_ReadWaitsForVersion(t *testing.T) {
	svc, repl := newTestService(t, &staticNodes{nodes: []string{"n1"}}, newTestBlobs())
	repl.waitErr = models.ErrTimeout

	_, _, err := svc.Read(context.Background(), "a.txt", "alice", "alice", testPassword, models.Version{Counter: 5})
	assert.ErrorIs(t, err, models.ErrTimeout)

	_, _, err = svc.List(context.Background(), "alice", testPassword, models.Version{Counter: 5})
	assert.ErrorIs(t, err, models.ErrTimeout)
}

func TestService_ShareDeleteAndList(t *testing.T) {
	ctx := context.Background()
	svc, repl := newTestService(t, &staticNodes{nodes: []string{"n1", "n2"}}, newTestBlobs())

	_, err := svc.Write(ctx, "a.txt", "alice", testPassword, []byte("x"))
	require.NoError(t, err)

	res, err := svc.Share(ctx, "a.txt", "alice", "bob", testPassword)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, res.Record.SharedWith)

	_, err = svc.Share(ctx, "a.txt", "alice", "bob", testPassword)
	require.NoError(t, err)
	assert.Len(t, repl.committed(), 2, "repeated share commits nothing")

	list, _, err := svc.List(ctx, "bob", testPassword, models.Version{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.Unshare(ctx, "a.txt", "alice", "bob", testPassword)
	require.NoError(t, err)

	res, err = svc.Delete(ctx, "a.txt", "alice", testPassword)
	require.NoError(t, err)
	assert.Nil(t, res.Record)
	assert.Equal(t, int64(4), res.Version.Counter)

	_, err = svc.Delete(ctx, "a.txt", "alice", testPassword)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestService_Purge(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &staticNodes{nodes: []string{"n1", "n2"}}, newTestBlobs())

	_, err := svc.Write(ctx, "own.txt", "bob", testPassword, []byte("x"))
	require.NoError(t, err)
	_, err = svc.Write(ctx, "a.txt", "alice", testPassword, []byte("x"))
	require.NoError(t, err)
	_, err = svc.Share(ctx, "a.txt", "alice", "bob", testPassword)
	require.NoError(t, err)

	res, err := svc.Purge(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Version.Counter)
	assert.Nil(t, svc.State().Lookup("bob/own.txt"))
	assert.Empty(t, svc.State().Lookup("alice/a.txt").SharedWith)

	again, err := svc.Purge(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, res.Version, again.Version)
}
