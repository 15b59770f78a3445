package directory

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/iudanet/gophdir/internal/models"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// staticNodes управляемый набор достижимых узлов
type staticNodes struct {
	nodes []string
	mu    sync.Mutex
}

func (n *staticNodes) Reachable() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.nodes)
}

func (n *staticNodes) set(nodes ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nodes = nodes
}

const testPassword = "password123"

func newTestUsers(known ...string) *UserDirectoryMock {
	return &UserDirectoryMock{
		AuthenticateFunc: func(_ context.Context, userID, password string) error {
			if !slices.Contains(known, userID) {
				return models.ErrNotFound
			}
			if password != testPassword {
				return models.ErrForbidden
			}
			return nil
		},
		ExistsFunc: func(_ context.Context, userID string) (bool, error) {
			return slices.Contains(known, userID), nil
		},
	}
}

func newTestBlobs() *BlobPusherMock {
	return &BlobPusherMock{
		PushFunc:   func(context.Context, string, string, []byte) error { return nil },
		RemoveFunc: func(context.Context, string, string) error { return nil },
	}
}

func newTestState(nodes *staticNodes, blobs *BlobPusherMock) *State {
	return NewState(nodes, newTestUsers("alice", "bob", "carol"), blobs, Options{}, setupTestLogger())
}

func mustApply(s *State, delta *models.FileDelta, isLeader bool, payload []byte) *models.FileDelta {
	comp, err := s.ApplyDelta(context.Background(), delta, isLeader, payload)
	if err != nil {
		panic(err)
	}
	return comp
}
