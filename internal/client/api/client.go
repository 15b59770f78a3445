// Package api содержит HTTP клиентов каталога, storage-узлов, сервиса
// пользователей и протокола реплик.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iudanet/gophdir/internal/models"
	"github.com/iudanet/gophdir/pkg/api"
)

// DefaultTimeout таймаут одного HTTP запроса по умолчанию
const DefaultTimeout = 30 * time.Second

// ErrConflict сервер отклонил запрос из-за конфликта (409)
var ErrConflict = errors.New("conflict")

// newHTTPClient создает http.Client, который следует не более чем 10 редиректам
func newHTTPClient(timeout time.Duration, onRedirect func(*http.Response)) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("stopped after 10 redirects")
			}
			if onRedirect != nil && req.Response != nil {
				onRedirect(req.Response)
			}
			return nil
		},
	}
}

// jsonBody кодирует тело запроса
func jsonBody(body any) (io.Reader, error) {
	if body == nil {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return bytes.NewReader(data), nil
}

// do выполняет запрос и переводит ответ в ошибку таксономии.
// Тело успешного ответа возвращается целиком.
func do(client *http.Client, req *http.Request) (*http.Response, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		// узел недоступен или не ответил вовремя
		return nil, nil, fmt.Errorf("%w: %s %s: %v", models.ErrTimeout, req.Method, req.URL.Redacted(), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read response body: %v", models.ErrTimeout, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, nil, statusError(resp.StatusCode, body)
	}
	return resp, body, nil
}

// statusError переводит код ответа в sentinel-ошибку
func statusError(code int, body []byte) error {
	message := string(body)
	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		message = errResp.Message
	}

	var sentinel error
	switch code {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		sentinel = models.ErrBadRequest
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = models.ErrForbidden
	case http.StatusNotFound:
		sentinel = models.ErrNotFound
	case http.StatusConflict:
		sentinel = ErrConflict
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		sentinel = models.ErrTimeout
	default:
		sentinel = models.ErrInternal
	}
	return fmt.Errorf("%w (%d): %s", sentinel, code, message)
}

// decode разбирает JSON тело успешного ответа
func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", models.ErrInternal, err)
	}
	return nil
}
