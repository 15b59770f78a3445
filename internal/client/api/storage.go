package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iudanet/gophdir/internal/models"
	"github.com/iudanet/gophdir/internal/token"
)

// StorageClient передает байты файлов на storage-узлы и опрашивает их
// /health. Каждый запрос несет свежий токен доступа.
type StorageClient struct {
	httpClient *http.Client
	issuer     *token.Issuer
}

// NewStorageClient создает клиента storage-узлов
func NewStorageClient(issuer *token.Issuer, timeout time.Duration) *StorageClient {
	return &StorageClient{
		httpClient: newHTTPClient(timeout, nil),
		issuer:     issuer,
	}
}

// Push сохраняет payload под fileID на узле node
func (c *StorageClient) Push(ctx context.Context, node, fileID string, payload []byte) error {
	target, err := objectURL(node, fileID, c.issuer.Issue(fileID, token.ModeWrite))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	if _, _, err := do(c.httpClient, req); err != nil {
		return fmt.Errorf("push %s to %s: %w", fileID, node, err)
	}
	return nil
}

// Remove удаляет байты fileID с узла node; отсутствие объекта не ошибка
func (c *StorageClient) Remove(ctx context.Context, node, fileID string) error {
	target, err := objectURL(node, fileID, c.issuer.Issue(fileID, token.ModeDelete))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if _, _, err := do(c.httpClient, req); err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("remove %s from %s: %w", fileID, node, err)
	}
	return nil
}

// Health проверяет, что узел отвечает на /health
func (c *StorageClient) Health(ctx context.Context, node string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(node, "/")+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	_, _, err = do(c.httpClient, req)
	return err
}

func objectURL(node, fileID, tok string) (string, error) {
	owner, filename, ok := models.SplitFileID(fileID)
	if !ok {
		return "", fmt.Errorf("%w: malformed file id %q", models.ErrBadRequest, fileID)
	}
	return strings.TrimRight(node, "/") + "/files/" + url.PathEscape(owner) + "/" + url.PathEscape(filename) +
		"?token=" + url.QueryEscape(tok), nil
}
