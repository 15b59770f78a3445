// Package handlers содержит HTTP-адаптеры сервисов: каталога, реплик,
// storage-узлов и пользователей.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/iudanet/gophdir/internal/models"
	"github.com/iudanet/gophdir/pkg/api"
)

// contextKey тип для ключей контекста
type contextKey string

// ReplicaIDKey ключ для хранения replica_id вызывающей реплики в контексте
const ReplicaIDKey contextKey = "replica_id"

// GetReplicaID извлекает replica_id из контекста
func GetReplicaID(ctx context.Context) (string, bool) {
	replicaID, ok := ctx.Value(ReplicaIDKey).(string)
	return replicaID, ok
}

// StatusFor отображает ошибку таксономии в HTTP статус
func StatusFor(err error) int {
	var redirect *models.RedirectError
	switch {
	case errors.As(err, &redirect):
		return http.StatusTemporaryRedirect
	case errors.Is(err, models.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// sendJSON отправляет JSON ответ
func sendJSON(w http.ResponseWriter, logger *slog.Logger, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func sendError(w http.ResponseWriter, logger *slog.Logger, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	sendJSON(w, logger, resp, statusCode)
}

// sendErr отвечает на ошибку операции; внутренние детали клиенту не уходят
func sendErr(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error) {
	status := StatusFor(err)
	switch {
	case status >= http.StatusInternalServerError && status != http.StatusGatewayTimeout:
		logger.ErrorContext(ctx, "request failed", slog.Any("error", err))
		sendError(w, logger, "internal server error", status)
	default:
		logger.DebugContext(ctx, "request rejected", slog.Int("status", status), slog.Any("error", err))
		sendError(w, logger, err.Error(), status)
	}
}

// decodeJSON декодирует тело запроса; ошибка формата это ErrBadRequest
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", models.ErrBadRequest, err)
	}
	return nil
}
