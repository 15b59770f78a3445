package replication

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/iudanet/gophdir/internal/election"
	"github.com/iudanet/gophdir/internal/models"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memApplier упрощенный конечный автомат: fileID -> множество узлов
type memApplier struct {
	files    map[string][]string
	applied  []string
	faulty   bool // возвращает компенсацию даже последователю
	leaderFn func(d *models.FileDelta) *models.FileDelta
	mu       sync.Mutex
}

func newMemApplier() *memApplier {
	return &memApplier{files: make(map[string][]string)}
}

func (a *memApplier) ApplyDelta(_ context.Context, d *models.FileDelta, isLeader bool, _ []byte) (*models.FileDelta, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := d.FileID()
	a.applied = append(a.applied, id)
	if d.Removed {
		delete(a.files, id)
		return nil, nil
	}
	locs := a.files[id]
	for _, n := range d.AddedLocations {
		if !slices.Contains(locs, n) {
			locs = append(locs, n)
		}
	}
	for _, n := range d.RemovedLocations {
		if i := slices.Index(locs, n); i >= 0 {
			locs = slices.Delete(locs, i, i+1)
		}
	}
	if len(locs) == 0 {
		delete(a.files, id)
	} else {
		a.files[id] = locs
	}

	if a.faulty {
		return &models.FileDelta{Owner: d.Owner, Filename: d.Filename, RemovedLocations: d.AddedLocations}, nil
	}
	if isLeader && a.leaderFn != nil {
		return a.leaderFn(d), nil
	}
	return nil, nil
}

func (a *memApplier) Snapshot() []models.FileRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.FileRecord, 0, len(a.files))
	for id, locs := range a.files {
		owner, name, _ := models.SplitFileID(id)
		out = append(out, models.FileRecord{Owner: owner, Filename: name, Locations: slices.Clone(locs)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileID() < out[j].FileID() })
	return out
}

func (a *memApplier) Restore(records []models.FileRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files = make(map[string][]string, len(records))
	for _, r := range records {
		a.files[r.FileID()] = slices.Clone(r.Locations)
	}
}

func (a *memApplier) state() map[string][]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string][]string, len(a.files))
	for k, v := range a.files {
		out[k] = slices.Clone(v)
	}
	return out
}

// fakeCluster управляемый состав реплик
type fakeCluster struct {
	followers []election.Candidate
	leader    atomic.Bool
	mu        sync.Mutex
}

func (c *fakeCluster) AmLeader() bool { return c.leader.Load() }

func (c *fakeCluster) Followers() []election.Candidate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.followers)
}

func (c *fakeCluster) setFollowers(f ...election.Candidate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.followers = f
}

// localPeer доставляет вызовы менеджеру последователя в том же процессе
type localPeer struct {
	m    *Manager
	down atomic.Bool
}

func (p *localPeer) ApplyDelta(ctx context.Context, v models.Version, d *models.FileDelta) error {
	if p.down.Load() {
		return models.ErrTimeout
	}
	return p.m.Receive(ctx, v, d.Clone())
}

func (p *localPeer) Version(context.Context) (models.Version, error) {
	if p.down.Load() {
		return models.Version{}, models.ErrTimeout
	}
	return p.m.CurrentVersion(), nil
}

func (p *localPeer) InstallSnapshot(_ context.Context, v models.Version, records []models.FileRecord) error {
	if p.down.Load() {
		return models.ErrTimeout
	}
	return p.m.InstallSnapshot(v, records)
}

func write(owner, name string, nodes ...string) *models.FileDelta {
	return &models.FileDelta{Owner: owner, Filename: name, AddedLocations: nodes}
}
