package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophdir/internal/models"
	"github.com/iudanet/gophdir/internal/token"
	"github.com/iudanet/gophdir/pkg/api"
)

func TestDirectoryHandler_WriteAndRead(t *testing.T) {
	d := newTestDirectory(t, &fakeCluster{leader: true})

	w := d.do(t, http.MethodPost, "/dir/alice/report.txt?password="+testPassword, strings.NewReader("hello"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.Version{Counter: 1, ReplicaID: "r1"}, responseVersion(t, w))
	assert.Empty(t, w.Header().Get(api.ReplicationHeader))

	var info api.FileInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
	assert.Equal(t, "alice", info.Owner)
	assert.Equal(t, "report.txt", info.Filename)
	assert.True(t, strings.HasSuffix(info.FileURL, "/files/alice/report.txt"), info.FileURL)
	require.Len(t, d.blobs.PushCalls(), 2)
	assert.Equal(t, []byte("hello"), d.blobs.PushCalls()[0].Payload)

	w = d.do(t, http.MethodGet, "/dir/alice/report.txt?password="+testPassword, nil, versionHeader(responseVersion(t, w)))
	require.Equal(t, http.StatusTemporaryRedirect, w.Code, w.Body.String())

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/files/alice/report.txt", location.Path)
	assert.Contains(t, []string{"n1", "n2"}, location.Host)
	assert.NoError(t, token.NewValidator(testSecret).Validate(location.Query().Get("token"), "alice/report.txt", token.ModeRead))
}

func TestDirectoryHandler_ReadWaitsForVersion(t *testing.T) {
	d := newTestDirectory(t, &fakeCluster{leader: true})

	w := d.do(t, http.MethodGet, "/dir/alice?password="+testPassword, nil, versionHeader(models.Version{Counter: 7, ReplicaID: "r9"}))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, models.Version{}, responseVersion(t, w), "every response carries the current version")

	w = d.do(t, http.MethodGet, "/dir/alice?password="+testPassword, nil, http.Header{api.VersionHeader: []string{"{not json"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDirectoryHandler_MutationsWaitForVersion(t *testing.T) {
	d := newTestDirectory(t, &fakeCluster{leader: true})
	pwd := "?password=" + testPassword
	require.Equal(t, http.StatusOK, d.do(t, http.MethodPost, "/dir/alice/a.txt"+pwd, strings.NewReader("x"), nil).Code)
	require.Len(t, d.blobs.PushCalls(), 2)

	future := versionHeader(models.Version{Counter: 9, ReplicaID: "r1"})
	tests := []struct {
		name   string
		method string
		target string
	}{
		{name: "write", method: http.MethodPost, target: "/dir/alice/b.txt" + pwd},
		{name: "delete", method: http.MethodDelete, target: "/dir/alice/a.txt" + pwd},
		{name: "share", method: http.MethodPost, target: "/dir/alice/a.txt/share/bob" + pwd},
		{name: "unshare", method: http.MethodDelete, target: "/dir/alice/a.txt/share/bob" + pwd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := d.do(t, tt.method, tt.target, strings.NewReader("y"), future)
			assert.Equal(t, http.StatusGatewayTimeout, w.Code, w.Body.String())
			assert.Equal(t, int64(1), responseVersion(t, w).Counter)
		})
	}
	assert.Len(t, d.blobs.PushCalls(), 2, "nothing is placed before the version is reached")
	assert.Equal(t, int64(1), d.manager.CurrentVersion().Counter)

	w := d.do(t, http.MethodPost, "/dir/alice/a.txt/share/bob"+pwd, nil, http.Header{api.VersionHeader: []string{"{not json"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// достигнутая версия не задерживает изменение
	w = d.do(t, http.MethodPost, "/dir/alice/a.txt/share/bob"+pwd, nil, versionHeader(models.Version{Counter: 1, ReplicaID: "r1"}))
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	assert.Equal(t, int64(2), responseVersion(t, w).Counter)

	// последователь перенаправляет, не дожидаясь версии
	follower := newTestDirectory(t, &fakeCluster{leaderURL: "http://leader:8080"})
	w = follower.do(t, http.MethodDelete, "/dir/alice/a.txt"+pwd, nil, future)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
}

func TestDirectoryHandler_Errors(t *testing.T) {
	d := newTestDirectory(t, &fakeCluster{leader: true})

	w := d.do(t, http.MethodPost, "/dir/alice/a.txt?password="+testPassword, strings.NewReader("x"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	tests := []struct {
		name   string
		method string
		target string
		status int
	}{
		{name: "wrong password", method: http.MethodGet, target: "/dir/alice/a.txt?password=wrong-password", status: http.StatusForbidden},
		{name: "unknown user", method: http.MethodGet, target: "/dir/mallory?password=" + testPassword, status: http.StatusNotFound},
		{name: "missing file", method: http.MethodGet, target: "/dir/alice/missing.txt?password=" + testPassword, status: http.StatusNotFound},
		{name: "not shared", method: http.MethodGet, target: "/dir/alice/a.txt?accUserId=bob&password=" + testPassword, status: http.StatusForbidden},
		{name: "delete missing", method: http.MethodDelete, target: "/dir/alice/missing.txt?password=" + testPassword, status: http.StatusNotFound},
		{name: "share with unknown", method: http.MethodPost, target: "/dir/alice/a.txt/share/mallory?password=" + testPassword, status: http.StatusNotFound},
		{name: "forbidden character", method: http.MethodPost, target: "/dir/alice/a%7Cb.txt?password=" + testPassword, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := d.do(t, tt.method, tt.target, nil, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())

			var resp api.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, http.StatusText(tt.status), resp.Error)
		})
	}
}

func TestDirectoryHandler_ShareListDelete(t *testing.T) {
	d := newTestDirectory(t, &fakeCluster{leader: true})
	pwd := "?password=" + testPassword

	require.Equal(t, http.StatusOK, d.do(t, http.MethodPost, "/dir/alice/a.txt"+pwd, strings.NewReader("x"), nil).Code)

	w := d.do(t, http.MethodPost, "/dir/alice/a.txt/share/bob"+pwd, nil, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(2), responseVersion(t, w).Counter)

	w = d.do(t, http.MethodGet, "/dir/bob"+pwd, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var files []api.FileInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&files))
	require.Len(t, files, 1)
	assert.Equal(t, []string{"bob"}, files[0].SharedWith)

	w = d.do(t, http.MethodGet, "/dir/alice/a.txt?accUserId=bob&password="+testPassword, nil, nil)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)

	require.Equal(t, http.StatusNoContent, d.do(t, http.MethodDelete, "/dir/alice/a.txt/share/bob"+pwd, nil, nil).Code)
	w = d.do(t, http.MethodDelete, "/dir/alice/a.txt"+pwd, nil, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(4), responseVersion(t, w).Counter)

	w = d.do(t, http.MethodGet, "/dir/alice"+pwd, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestDirectoryHandler_FollowerRedirectsMutations(t *testing.T) {
	d := newTestDirectory(t, &fakeCluster{leaderURL: "http://leader:8080/"})

	w := d.do(t, http.MethodPost, "/dir/alice/a.txt?password="+testPassword, strings.NewReader("x"), nil)
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "http://leader:8080/dir/alice/a.txt?password="+testPassword, w.Header().Get("Location"))
	assert.Empty(t, d.blobs.PushCalls())

	// чтение обслуживает сам последователь
	w = d.do(t, http.MethodGet, "/dir/alice?password="+testPassword, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	orphan := newTestDirectory(t, &fakeCluster{})
	w = orphan.do(t, http.MethodDelete, "/dir/alice/a.txt?password="+testPassword, nil, nil)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestDirectoryHandler_Purge(t *testing.T) {
	d := newTestDirectory(t, &fakeCluster{leader: true})
	pwd := "?password=" + testPassword

	require.Equal(t, http.StatusOK, d.do(t, http.MethodPost, "/dir/bob/b.txt"+pwd, strings.NewReader("x"), nil).Code)
	require.Equal(t, http.StatusOK, d.do(t, http.MethodPost, "/dir/alice/a.txt"+pwd, strings.NewReader("x"), nil).Code)
	require.Equal(t, http.StatusNoContent, d.do(t, http.MethodPost, "/dir/alice/a.txt/share/bob"+pwd, nil, nil).Code)

	w := d.do(t, http.MethodDelete, "/dir/bob?token=not-the-secret", nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = d.do(t, http.MethodDelete, "/dir/bob?token="+testSecret, nil, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(5), responseVersion(t, w).Counter)
	assert.Nil(t, d.state.Lookup("bob/b.txt"))
	assert.Empty(t, d.state.Lookup("alice/a.txt").SharedWith)

	signed := token.NewIssuer(testSecret, 0).Issue("bob", token.ModePurge)
	w = d.do(t, http.MethodDelete, "/dir/bob?token="+url.QueryEscape(signed), nil, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(5), responseVersion(t, w).Counter, "repeated purge commits nothing")
}
