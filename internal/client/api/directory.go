package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/iudanet/gophdir/internal/models"
	"github.com/iudanet/gophdir/pkg/api"
)

// RetryAttempts число попыток операции, завершившейся Timeout
const RetryAttempts = 3

// DirectoryClient клиент REST API каталога. Следует редиректам на лидера
// и на storage-узлы, повторяет Timeout с линейной задержкой и отправляет
// последнюю увиденную версию для чтения собственных записей.
type DirectoryClient struct {
	httpClient *http.Client
	backoff    func() retry.Backoff
	baseURL    string
	user       string
	password   string

	last models.Version
	mu   sync.Mutex
}

// NewDirectoryClient создает клиента каталога для пользователя user
func NewDirectoryClient(baseURL, user, password string) *DirectoryClient {
	c := &DirectoryClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		user:     user,
		password: password,
		last:     models.ZeroVersion,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(RetryAttempts-1, retry.NewLinear(500*time.Millisecond))
		},
	}
	c.httpClient = newHTTPClient(DefaultTimeout, func(resp *http.Response) {
		c.observe(resp.Header)
	})
	return c
}

// User пользователь, от имени которого выполняются запросы
func (c *DirectoryClient) User() string {
	return c.user
}

// LastVersion последняя версия, сообщенная каталогом; ZeroVersion до первого ответа
func (c *DirectoryClient) LastVersion() models.Version {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Write записывает файл владельца owner
func (c *DirectoryClient) Write(ctx context.Context, owner, filename string, payload []byte) (*api.FileInfo, error) {
	body, err := c.call(ctx, http.MethodPost, filePath(owner, filename), nil, payload)
	if err != nil {
		return nil, fmt.Errorf("write %s/%s: %w", owner, filename, err)
	}
	var info api.FileInfo
	if err := decode(body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Read возвращает байты файла. accUser пустой при чтении собственного файла.
func (c *DirectoryClient) Read(ctx context.Context, owner, filename, accUser string) ([]byte, error) {
	query := url.Values{}
	if accUser != "" {
		query.Set("accUserId", accUser)
	}
	data, err := c.call(ctx, http.MethodGet, filePath(owner, filename), query, nil)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", owner, filename, err)
	}
	return data, nil
}

// Delete удаляет файл
func (c *DirectoryClient) Delete(ctx context.Context, owner, filename string) error {
	if _, err := c.call(ctx, http.MethodDelete, filePath(owner, filename), nil, nil); err != nil {
		return fmt.Errorf("delete %s/%s: %w", owner, filename, err)
	}
	return nil
}

// Share открывает доступ к файлу пользователю shareUser
func (c *DirectoryClient) Share(ctx context.Context, owner, filename, shareUser string) error {
	path := filePath(owner, filename) + "/share/" + url.PathEscape(shareUser)
	if _, err := c.call(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("share %s/%s with %s: %w", owner, filename, shareUser, err)
	}
	return nil
}

// Unshare закрывает доступ к файлу пользователю shareUser
func (c *DirectoryClient) Unshare(ctx context.Context, owner, filename, shareUser string) error {
	path := filePath(owner, filename) + "/share/" + url.PathEscape(shareUser)
	if _, err := c.call(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("unshare %s/%s with %s: %w", owner, filename, shareUser, err)
	}
	return nil
}

// List возвращает файлы, доступные пользователю user
func (c *DirectoryClient) List(ctx context.Context, user string) ([]api.FileInfo, error) {
	body, err := c.call(ctx, http.MethodGet, "/dir/"+url.PathEscape(user), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", user, err)
	}
	var files []api.FileInfo
	if err := decode(body, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// call выполняет запрос, повторяя его только при Timeout
func (c *DirectoryClient) call(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("password", c.password)
	target := c.baseURL + path + "?" + query.Encode()

	var result []byte
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, body)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/octet-stream")
		}
		if v := c.LastVersion(); !v.IsZero() {
			req.Header.Set(api.VersionHeader, v.Header())
		}

		resp, data, err := do(c.httpClient, req)
		if resp != nil {
			c.observe(resp.Header)
		}
		if err != nil {
			if models.IsRetryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		result = data
		return nil
	})
	return result, err
}

// observe запоминает версию из ответа, если она новее известной
func (c *DirectoryClient) observe(header http.Header) {
	raw := header.Get(api.VersionHeader)
	if raw == "" {
		return
	}
	v, err := models.ParseVersionHeader(raw)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if v.IsNewerThan(c.last) {
		c.last = v
	}
}

func filePath(owner, filename string) string {
	return "/dir/" + url.PathEscape(owner) + "/" + url.PathEscape(filename)
}
