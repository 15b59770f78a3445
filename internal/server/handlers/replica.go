package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/iudanet/gophdir/internal/models"
	"github.com/iudanet/gophdir/internal/replication"
	"github.com/iudanet/gophdir/pkg/api"
)

// Replica сторона последователя протокола синхронизации
type Replica interface {
	Receive(ctx context.Context, v models.Version, delta *models.FileDelta) error
	CurrentVersion() models.Version
	InstallSnapshot(v models.Version, records []models.FileRecord) error
}

// ReplicaHandler обслуживает /replica/*; маршруты закрыты JWT реплик
type ReplicaHandler struct {
	repl   Replica
	logger *slog.Logger
}

// NewReplicaHandler создает handler протокола реплик
func NewReplicaHandler(logger *slog.Logger, repl Replica) *ReplicaHandler {
	return &ReplicaHandler{
		repl:   repl,
		logger: logger,
	}
}

// Register регистрирует маршруты реплик
func (h *ReplicaHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /replica/deltas", h.Deltas)
	mux.HandleFunc("GET /replica/version", h.Version)
	mux.HandleFunc("POST /replica/snapshot", h.Snapshot)
}

// Deltas обрабатывает POST /replica/deltas
// Дельта принимается (буферизуется или применяется) и подтверждается 202.
func (h *ReplicaHandler) Deltas(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	header := r.Header.Get(api.VersionHeader)
	if header == "" {
		h.fail(w, r, fmt.Errorf("%w: %s header is required", models.ErrBadRequest, api.VersionHeader))
		return
	}
	version, err := models.ParseVersionHeader(header)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var delta models.FileDelta
	if err := decodeJSON(r, &delta); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := delta.Validate(); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %v", models.ErrBadRequest, err))
		return
	}

	if err := h.repl.Receive(ctx, version, &delta); err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set(api.VersionHeader, h.repl.CurrentVersion().Header())
	w.WriteHeader(http.StatusAccepted)
}

// Version обрабатывает GET /replica/version
func (h *ReplicaHandler) Version(w http.ResponseWriter, r *http.Request) {
	current := h.repl.CurrentVersion()
	w.Header().Set(api.VersionHeader, current.Header())
	sendJSON(w, h.logger, current, http.StatusOK)
}

// Snapshot обрабатывает POST /replica/snapshot
func (h *ReplicaHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	var req api.SnapshotRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.repl.InstallSnapshot(req.Version, req.Records); err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "snapshot installed",
		slog.String("version", req.Version.String()),
		slog.Int("records", len(req.Records)),
	)
	w.Header().Set(api.VersionHeader, h.repl.CurrentVersion().Header())
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReplicaHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, replication.ErrNotFollower) {
		// отправитель считает нас последователем, а мы уже лидер
		sendError(w, h.logger, err.Error(), http.StatusConflict)
		return
	}
	sendErr(r.Context(), w, h.logger, err)
}
