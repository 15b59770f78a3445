package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/iudanet/gophdir/internal/blob"
	"github.com/iudanet/gophdir/internal/models"
	"github.com/iudanet/gophdir/internal/token"
	"github.com/iudanet/gophdir/pkg/api"
)

// ObjectsHandler обслуживает байты файлов на storage-узле.
// Каждый запрос предъявляет capability-токен в параметре token.
type ObjectsHandler struct {
	store   blob.Store
	tokens  *token.Validator
	logger  *slog.Logger
	maxSize int64
}

// NewObjectsHandler создает handler объектов; maxSize ограничивает PUT
func NewObjectsHandler(logger *slog.Logger, store blob.Store, tokens *token.Validator, maxSize int64) *ObjectsHandler {
	return &ObjectsHandler{
		store:   store,
		tokens:  tokens,
		logger:  logger,
		maxSize: maxSize,
	}
}

// Register регистрирует маршруты storage-узла
func (h *ObjectsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("PUT /files/{owner}/{filename}", h.Put)
	mux.HandleFunc("GET /files/{owner}/{filename}", h.Get)
	mux.HandleFunc("DELETE /files/{owner}/{filename}", h.Delete)
	mux.HandleFunc("DELETE /users/{owner}", h.PurgeOwner)
}

// Put обрабатывает PUT /files/{owner}/{filename}?token=
func (h *ObjectsHandler) Put(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fileID, ok := h.authorize(w, r, token.ModeWrite)
	if !ok {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, h.logger, fmt.Sprintf("object exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		sendError(w, h.logger, "failed to read body", http.StatusBadRequest)
		return
	}

	if err := h.store.Put(ctx, fileID, data); err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.DebugContext(ctx, "object stored", slog.String("file_id", fileID), slog.Int("size", len(data)))
	w.WriteHeader(http.StatusNoContent)
}

// Get обрабатывает GET /files/{owner}/{filename}?token=
func (h *ObjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	fileID, ok := h.authorize(w, r, token.ModeRead)
	if !ok {
		return
	}

	data, err := h.store.Get(r.Context(), fileID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.WarnContext(r.Context(), "failed to send object", slog.String("file_id", fileID), slog.Any("error", err))
	}
}

// Delete обрабатывает DELETE /files/{owner}/{filename}?token=
func (h *ObjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	fileID, ok := h.authorize(w, r, token.ModeDelete)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), fileID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PurgeOwner обрабатывает DELETE /users/{owner}?token=
func (h *ObjectsHandler) PurgeOwner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := r.PathValue("owner")

	if err := h.tokens.Validate(r.URL.Query().Get("token"), owner, token.ModePurge); err != nil {
		sendErr(ctx, w, h.logger, err)
		return
	}

	deleted, err := h.store.DeleteOwner(ctx, owner)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "owner objects purged", slog.String("owner", owner), slog.Int("deleted", deleted))
	sendJSON(w, h.logger, api.PurgeResponse{Deleted: deleted}, http.StatusOK)
}

// authorize проверяет токен для объекта из пути
func (h *ObjectsHandler) authorize(w http.ResponseWriter, r *http.Request, mode token.AccessMode) (string, bool) {
	fileID := models.FileID(r.PathValue("owner"), r.PathValue("filename"))
	if err := h.tokens.Validate(r.URL.Query().Get("token"), fileID, mode); err != nil {
		h.logger.WarnContext(r.Context(), "object access denied",
			slog.String("file_id", fileID),
			slog.String("mode", string(mode)),
			slog.Any("error", err),
		)
		sendErr(r.Context(), w, h.logger, err)
		return "", false
	}
	return fileID, true
}

func (h *ObjectsHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, blob.ErrObjectNotFound) {
		err = fmt.Errorf("%w: %v", models.ErrNotFound, err)
	}
	sendErr(r.Context(), w, h.logger, err)
}
