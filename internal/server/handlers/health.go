package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/gophdir/pkg/api"
)

// StatusFunc дополняет ответ health check сведениями сервиса
type StatusFunc func(resp *api.HealthResponse)

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger  *slog.Logger
	status  StatusFunc
	version string
}

// NewHealthHandler создает новый handler для health check.
// version версия сборки; status может быть nil.
func NewHealthHandler(logger *slog.Logger, version string, status StatusFunc) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		version: version,
		status:  status,
	}
}

// Health обрабатывает GET /health
// Health check endpoint для мониторинга и проб каталога
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthResponse{
		Status:  "ok",
		Version: h.version,
	}
	if h.status != nil {
		h.status(&resp)
	}

	sendJSON(w, h.logger, resp, http.StatusOK)
}
