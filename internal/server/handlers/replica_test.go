package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophdir/internal/models"
	"github.com/iudanet/gophdir/pkg/api"
)

func deltaBody(t *testing.T, d *models.FileDelta) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(d)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func TestReplicaHandler_Deltas(t *testing.T) {
	d := newTestDirectory(t, &fakeCluster{leaderURL: "http://leader:8080"})
	write := &models.FileDelta{Owner: "alice", Filename: "a.txt", AddedLocations: []string{"http://n1"}}

	// вторая версия приходит раньше первой и ждет в буфере
	share := &models.FileDelta{Owner: "alice", Filename: "a.txt", AddedShares: []string{"bob"}}
	w := d.do(t, http.MethodPost, "/replica/deltas", deltaBody(t, share), versionHeader(models.Version{Counter: 2, ReplicaID: "l1"}))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, int64(0), d.manager.CurrentVersion().Counter)

	w = d.do(t, http.MethodPost, "/replica/deltas", deltaBody(t, write), versionHeader(models.Version{Counter: 1, ReplicaID: "l1"}))
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, models.Version{Counter: 2, ReplicaID: "l1"}, responseVersion(t, w))

	record := d.state.Lookup("alice/a.txt")
	require.NotNil(t, record)
	assert.Equal(t, []string{"http://n1"}, record.Locations)
	assert.Equal(t, []string{"bob"}, record.SharedWith)
	assert.Empty(t, d.blobs.PushCalls(), "followers never push bytes")
}

func TestReplicaHandler_DeltaErrors(t *testing.T) {
	follower := newTestDirectory(t, &fakeCluster{leaderURL: "http://leader:8080"})
	leader := newTestDirectory(t, &fakeCluster{leader: true})
	valid := &models.FileDelta{Owner: "alice", Filename: "a.txt", AddedLocations: []string{"n1"}}
	v1 := versionHeader(models.Version{Counter: 1, ReplicaID: "l1"})

	tests := []struct {
		dir    *testDirectory
		body   func() *bytes.Reader
		header http.Header
		name   string
		status int
	}{
		{
			name:   "missing version header",
			dir:    follower,
			body:   func() *bytes.Reader { return deltaBody(t, valid) },
			status: http.StatusBadRequest,
		},
		{
			name:   "malformed body",
			dir:    follower,
			body:   func() *bytes.Reader { return bytes.NewReader([]byte("{")) },
			header: v1,
			status: http.StatusBadRequest,
		},
		{
			name:   "delta without target",
			dir:    follower,
			body:   func() *bytes.Reader { return deltaBody(t, &models.FileDelta{AddedLocations: []string{"n1"}}) },
			header: v1,
			status: http.StatusBadRequest,
		},
		{
			name:   "receiver is the leader",
			dir:    leader,
			body:   func() *bytes.Reader { return deltaBody(t, valid) },
			header: v1,
			status: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tt.dir.do(t, http.MethodPost, "/replica/deltas", tt.body(), tt.header)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestReplicaHandler_VersionAndSnapshot(t *testing.T) {
	d := newTestDirectory(t, &fakeCluster{leaderURL: "http://leader:8080"})

	snapshot := api.SnapshotRequest{
		Version: models.Version{Counter: 40, ReplicaID: "l1"},
		Records: []models.FileRecord{
			{Owner: "alice", Filename: "a.txt", Locations: []string{"http://n2"}, SharedWith: []string{"bob"}},
		},
	}
	body, err := json.Marshal(snapshot)
	require.NoError(t, err)

	w := d.do(t, http.MethodPost, "/replica/snapshot", bytes.NewReader(body), nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = d.do(t, http.MethodGet, "/replica/version", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var current models.Version
	require.NoError(t, json.NewDecoder(w.Body).Decode(&current))
	assert.Equal(t, snapshot.Version, current)
	assert.Equal(t, snapshot.Version, responseVersion(t, w))

	record := d.state.Lookup("alice/a.txt")
	require.NotNil(t, record)
	assert.Equal(t, []string{"http://n2"}, record.Locations)

	w = d.do(t, http.MethodPost, "/replica/snapshot", strings.NewReader("not json"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
