package api

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/iudanet/gophdir/internal/models"
	"github.com/iudanet/gophdir/pkg/api"
)

// DefaultUserCacheTTL срок жизни закэшированных результатов проверки
const DefaultUserCacheTTL = 3 * time.Second

// UsersClient клиент сервиса пользователей. Успешные проверки кэшируются
// на cacheTTL; отказы не кэшируются.
type UsersClient struct {
	httpClient *http.Client
	cache      *cache.Cache
	baseURL    string
}

// NewUsersClient создает клиента сервиса пользователей.
// cacheTTL <= 0 заменяется на DefaultUserCacheTTL.
func NewUsersClient(baseURL string, timeout, cacheTTL time.Duration) *UsersClient {
	if cacheTTL <= 0 {
		cacheTTL = DefaultUserCacheTTL
	}
	return &UsersClient{
		httpClient: newHTTPClient(timeout, nil),
		cache:      cache.New(cacheTTL, 2*cacheTTL),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Authenticate проверяет пароль пользователя
func (c *UsersClient) Authenticate(ctx context.Context, userID, password string) error {
	digest := sha256.Sum256([]byte(password))
	if cached, ok := c.cache.Get(authKey(userID)); ok {
		if sum, ok := cached.([sha256.Size]byte); ok && subtle.ConstantTimeCompare(sum[:], digest[:]) == 1 {
			return nil
		}
	}

	target := c.userURL(userID) + "?" + url.Values{"password": {password}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if _, _, err := do(c.httpClient, req); err != nil {
		return fmt.Errorf("authenticate %s: %w", userID, err)
	}

	c.cache.SetDefault(authKey(userID), digest)
	c.cache.SetDefault(existsKey(userID), true)
	return nil
}

// Exists сообщает, существует ли учетная запись
func (c *UsersClient) Exists(ctx context.Context, userID string) (bool, error) {
	if _, ok := c.cache.Get(existsKey(userID)); ok {
		return true, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.userURL(userID), nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	if _, _, err := do(c.httpClient, req); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check user %s: %w", userID, err)
	}

	c.cache.SetDefault(existsKey(userID), true)
	return true, nil
}

// Forget сбрасывает закэшированные сведения о пользователе
func (c *UsersClient) Forget(userID string) {
	c.cache.Delete(authKey(userID))
	c.cache.Delete(existsKey(userID))
}

// Create регистрирует нового пользователя
func (c *UsersClient) Create(ctx context.Context, req api.CreateUserRequest) (*api.UserResponse, error) {
	body, err := jsonBody(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/users", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	_, data, err := do(c.httpClient, httpReq)
	if err != nil {
		return nil, fmt.Errorf("create user %s: %w", req.ID, err)
	}
	var user api.UserResponse
	if err := decode(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Delete удаляет учетную запись; сервис объявляет USER_DELETED
func (c *UsersClient) Delete(ctx context.Context, userID, password string) error {
	target := c.userURL(userID) + "?" + url.Values{"password": {password}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if _, _, err := do(c.httpClient, req); err != nil {
		return fmt.Errorf("delete user %s: %w", userID, err)
	}
	c.Forget(userID)
	return nil
}

// Search ищет пользователей по подстроке id, имени или email
func (c *UsersClient) Search(ctx context.Context, query string, limit int) ([]api.UserResponse, error) {
	params := url.Values{"query": {query}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	_, data, err := do(c.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	var users []api.UserResponse
	if err := decode(data, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *UsersClient) userURL(userID string) string {
	return c.baseURL + "/users/" + url.PathEscape(userID)
}

func authKey(userID string) string   { return "auth:" + userID }
func existsKey(userID string) string { return "exists:" + userID }
