package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/iudanet/gophdir/internal/election"
	"github.com/iudanet/gophdir/internal/models"
	"github.com/iudanet/gophdir/internal/replication"
	"github.com/iudanet/gophdir/internal/server/jwt"
	"github.com/iudanet/gophdir/pkg/api"
)

// PeerClient передает дельты одному последователю по /replica/*
type PeerClient struct {
	httpClient *http.Client
	tokens     *jwt.Service
	baseURL    string
	replicaID  string
}

var _ replication.Peer = (*PeerClient)(nil)

// NewPeerClient создает клиента последователя с адресом baseURL.
// replicaID идентифицирует отправителя в JWT.
func NewPeerClient(baseURL, replicaID string, tokens *jwt.Service, timeout time.Duration) *PeerClient {
	return &PeerClient{
		httpClient: newHTTPClient(timeout, nil),
		tokens:     tokens,
		baseURL:    strings.TrimRight(baseURL, "/"),
		replicaID:  replicaID,
	}
}

// NewPeerDialer возвращает replication.PeerDialer поверх PeerClient
func NewPeerDialer(replicaID string, tokens *jwt.Service, timeout time.Duration) replication.PeerDialer {
	return func(c election.Candidate) replication.Peer {
		return NewPeerClient(c.URL, replicaID, tokens, timeout)
	}
}

// ApplyDelta передает дельту с версией v
func (c *PeerClient) ApplyDelta(ctx context.Context, v models.Version, delta *models.FileDelta) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/replica/deltas", delta)
	if err != nil {
		return err
	}
	req.Header.Set(api.VersionHeader, v.Header())
	_, _, err = do(c.httpClient, req)
	return c.mapError("apply delta "+v.String(), err)
}

// Version возвращает текущую версию последователя
func (c *PeerClient) Version(ctx context.Context) (models.Version, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/replica/version", nil)
	if err != nil {
		return models.Version{}, err
	}
	_, body, err := do(c.httpClient, req)
	if err != nil {
		return models.Version{}, c.mapError("get version", err)
	}
	var v models.Version
	if err := decode(body, &v); err != nil {
		return models.Version{}, err
	}
	return v, nil
}

// InstallSnapshot заменяет состояние последователя
func (c *PeerClient) InstallSnapshot(ctx context.Context, v models.Version, records []models.FileRecord) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/replica/snapshot", api.SnapshotRequest{Version: v, Records: records})
	if err != nil {
		return err
	}
	_, _, err = do(c.httpClient, req)
	return c.mapError("install snapshot "+v.String(), err)
}

func (c *PeerClient) newRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	body, err := jsonBody(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	bearer, err := c.tokens.Issue(c.replicaID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInternal, err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// mapError 409 означает, что получатель уже считает себя лидером
func (c *PeerClient) mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConflict) {
		return fmt.Errorf("%s on %s: %w: %v", op, c.baseURL, replication.ErrNotFollower, err)
	}
	return fmt.Errorf("%s on %s: %w", op, c.baseURL, err)
}
