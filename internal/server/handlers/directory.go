package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/gophdir/internal/directory"
	"github.com/iudanet/gophdir/internal/models"
	"github.com/iudanet/gophdir/internal/token"
	"github.com/iudanet/gophdir/pkg/api"
)

// MaxFilePayload предельный размер тела записи файла через каталог
const MaxFilePayload = 64 << 20

// Directory операции каталога, которые обслуживает адаптер
type Directory interface {
	Write(ctx context.Context, filename, userID, password string, payload []byte) (directory.Result, error)
	Delete(ctx context.Context, filename, userID, password string) (directory.Result, error)
	Share(ctx context.Context, filename, userID, targetUserID, password string) (directory.Result, error)
	Unshare(ctx context.Context, filename, userID, targetUserID, password string) (directory.Result, error)
	Read(ctx context.Context, filename, ownerID, requesterID, password string, atLeast models.Version) (string, models.Version, error)
	List(ctx context.Context, userID, password string, atLeast models.Version) ([]*models.FileRecord, models.Version, error)
	Purge(ctx context.Context, userID string) (directory.Result, error)
	AwaitVersion(ctx context.Context, atLeast models.Version) error
	CurrentVersion() models.Version
	FileURL(record *models.FileRecord) string
}

// DirectoryHandler клиентский REST адаптер каталога
type DirectoryHandler struct {
	dir    Directory
	tokens *token.Validator
	logger *slog.Logger
}

// NewDirectoryHandler создает handler каталога. tokens проверяет токены
// удаления пользователя (DELETE /dir/{userId}).
func NewDirectoryHandler(logger *slog.Logger, dir Directory, tokens *token.Validator) *DirectoryHandler {
	return &DirectoryHandler{
		dir:    dir,
		tokens: tokens,
		logger: logger,
	}
}

// Register регистрирует маршруты каталога
func (h *DirectoryHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /dir/{userId}/{filename}", h.Write)
	mux.HandleFunc("DELETE /dir/{userId}/{filename}", h.Delete)
	mux.HandleFunc("GET /dir/{userId}/{filename}", h.Read)
	mux.HandleFunc("POST /dir/{userId}/{filename}/share/{shareUserId}", h.Share)
	mux.HandleFunc("DELETE /dir/{userId}/{filename}/share/{shareUserId}", h.Unshare)
	mux.HandleFunc("GET /dir/{userId}", h.List)
	mux.HandleFunc("DELETE /dir/{userId}", h.Purge)
}

// Write обрабатывает POST /dir/{userId}/{filename}?password=
func (h *DirectoryHandler) Write(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.awaitVersion(r); err != nil {
		h.fail(w, r, err)
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxFilePayload))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(w, r, fmt.Errorf("%w: file exceeds %d bytes", models.ErrBadRequest, tooLarge.Limit))
			return
		}
		h.fail(w, r, fmt.Errorf("%w: failed to read body: %v", models.ErrBadRequest, err))
		return
	}

	res, err := h.dir.Write(ctx, r.PathValue("filename"), r.PathValue("userId"), password(r), payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "file written",
		slog.String("file_id", res.Record.FileID()),
		slog.String("version", res.Version.String()),
		slog.Bool("degraded", res.Degraded),
	)

	h.mutated(w, res)
	sendJSON(w, h.logger, h.fileInfo(res.Record), http.StatusOK)
}

// Delete обрабатывает DELETE /dir/{userId}/{filename}?password=
func (h *DirectoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.awaitVersion(r); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.dir.Delete(r.Context(), r.PathValue("filename"), r.PathValue("userId"), password(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.mutated(w, res)
	w.WriteHeader(http.StatusNoContent)
}

// Share обрабатывает POST /dir/{userId}/{filename}/share/{shareUserId}?password=
func (h *DirectoryHandler) Share(w http.ResponseWriter, r *http.Request) {
	if err := h.awaitVersion(r); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.dir.Share(r.Context(), r.PathValue("filename"), r.PathValue("userId"), r.PathValue("shareUserId"), password(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.mutated(w, res)
	w.WriteHeader(http.StatusNoContent)
}

// Unshare обрабатывает DELETE /dir/{userId}/{filename}/share/{shareUserId}?password=
func (h *DirectoryHandler) Unshare(w http.ResponseWriter, r *http.Request) {
	if err := h.awaitVersion(r); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.dir.Unshare(r.Context(), r.PathValue("filename"), r.PathValue("userId"), r.PathValue("shareUserId"), password(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.mutated(w, res)
	w.WriteHeader(http.StatusNoContent)
}

// Read обрабатывает GET /dir/{userId}/{filename}?accUserId=&password=
// Отвечает 307 на адрес байтов файла с токеном чтения.
func (h *DirectoryHandler) Read(w http.ResponseWriter, r *http.Request) {
	atLeast, err := h.requestVersion(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	owner := r.PathValue("userId")
	requester := r.URL.Query().Get("accUserId")
	if requester == "" {
		requester = owner
	}

	target, version, err := h.dir.Read(r.Context(), r.PathValue("filename"), owner, requester, password(r), atLeast)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set(api.VersionHeader, version.Header())
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// List обрабатывает GET /dir/{userId}?password=
func (h *DirectoryHandler) List(w http.ResponseWriter, r *http.Request) {
	atLeast, err := h.requestVersion(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	records, version, err := h.dir.List(r.Context(), r.PathValue("userId"), password(r), atLeast)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	files := make([]api.FileInfo, 0, len(records))
	for _, record := range records {
		files = append(files, h.fileInfo(record))
	}

	w.Header().Set(api.VersionHeader, version.Header())
	sendJSON(w, h.logger, files, http.StatusOK)
}

// Purge обрабатывает DELETE /dir/{userId}?token=
// Удаляет файлы пользователя и отзывает выданный ему доступ.
func (h *DirectoryHandler) Purge(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if err := h.tokens.Validate(r.URL.Query().Get("token"), userID, token.ModePurge); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.dir.Purge(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.mutated(w, res)
	w.WriteHeader(http.StatusNoContent)
}

// requestVersion версия из X-DFS-Version; без заголовка текущая версия реплики
func (h *DirectoryHandler) requestVersion(r *http.Request) (models.Version, error) {
	value := strings.TrimSpace(r.Header.Get(api.VersionHeader))
	if value == "" {
		return h.dir.CurrentVersion(), nil
	}
	return models.ParseVersionHeader(value)
}

// awaitVersion дожидается версии клиента перед изменением
func (h *DirectoryHandler) awaitVersion(r *http.Request) error {
	atLeast, err := h.requestVersion(r)
	if err != nil {
		return err
	}
	return h.dir.AwaitVersion(r.Context(), atLeast)
}

// mutated выставляет заголовки версии и деградации репликации
func (h *DirectoryHandler) mutated(w http.ResponseWriter, res directory.Result) {
	w.Header().Set(api.VersionHeader, res.Version.Header())
	if res.Degraded {
		w.Header().Set(api.ReplicationHeader, api.ReplicationDegraded)
	}
}

// fail отвечает на ошибку; перенаправление на лидера сохраняет путь и query
func (h *DirectoryHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set(api.VersionHeader, h.dir.CurrentVersion().Header())

	var redirect *models.RedirectError
	if errors.As(err, &redirect) {
		location := strings.TrimRight(redirect.Location, "/") + r.URL.RequestURI()
		h.logger.DebugContext(r.Context(), "redirecting to leader", slog.String("location", redirect.Location))
		http.Redirect(w, r, location, http.StatusTemporaryRedirect)
		return
	}
	sendErr(r.Context(), w, h.logger, err)
}

func (h *DirectoryHandler) fileInfo(record *models.FileRecord) api.FileInfo {
	return api.FileInfo{
		Owner:      record.Owner,
		Filename:   record.Filename,
		FileURL:    h.dir.FileURL(record),
		SharedWith: record.SharedWith,
	}
}

func password(r *http.Request) string {
	return r.URL.Query().Get("password")
}
