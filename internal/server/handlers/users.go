package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/iudanet/gophdir/internal/bus"
	"github.com/iudanet/gophdir/internal/crypto"
	"github.com/iudanet/gophdir/internal/models"
	"github.com/iudanet/gophdir/internal/server/storage"
	"github.com/iudanet/gophdir/internal/validation"
	"github.com/iudanet/gophdir/pkg/api"
)

// announceAttempts попытки публикации USER_DELETED
const announceAttempts = 3

// UsersHandler обслуживает учетные записи сервиса пользователей
type UsersHandler struct {
	logger      *slog.Logger
	userStorage storage.UserStorage
	publisher   bus.Publisher
	backoff     func() retry.Backoff
}

// NewUsersHandler создает handler пользователей. publisher получает
// объявления USER_DELETED.
func NewUsersHandler(logger *slog.Logger, userStorage storage.UserStorage, publisher bus.Publisher) *UsersHandler {
	return &UsersHandler{
		logger:      logger,
		userStorage: userStorage,
		publisher:   publisher,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(announceAttempts-1, retry.NewExponential(100*time.Millisecond))
		},
	}
}

// Register регистрирует маршруты пользователей
func (h *UsersHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /users", h.Create)
	mux.HandleFunc("GET /users", h.Search)
	mux.HandleFunc("GET /users/{userId}", h.Get)
	mux.HandleFunc("PUT /users/{userId}", h.Update)
	mux.HandleFunc("DELETE /users/{userId}", h.Delete)
}

// Create обрабатывает POST /users
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		sendErr(ctx, w, h.logger, err)
		return
	}

	if err := validation.ValidateUserID(req.ID); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:        req.ID,
		FullName:  req.FullName,
		Email:     req.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := setPassword(user, req.Password); err != nil {
		sendErr(ctx, w, h.logger, err)
		return
	}

	if err := h.userStorage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			h.logger.WarnContext(ctx, "user already exists", slog.String("user_id", req.ID))
			sendError(w, h.logger, "user id already taken", http.StatusConflict)
			return
		}
		sendErr(ctx, w, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "user created", slog.String("user_id", user.ID))
	sendJSON(w, h.logger, userResponse(user), http.StatusCreated)
}

// Get обрабатывает GET /users/{userId}?password=
// HEAD без пароля только сообщает, существует ли пользователь.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method == http.MethodHead {
		if _, err := h.userStorage.GetUser(ctx, r.PathValue("userId")); err != nil {
			w.WriteHeader(StatusFor(storageError(err)))
			return
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	user, err := h.authenticate(ctx, r)
	if err != nil {
		sendErr(ctx, w, h.logger, err)
		return
	}
	sendJSON(w, h.logger, userResponse(user), http.StatusOK)
}

// Update обрабатывает PUT /users/{userId}?password=
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.authenticate(ctx, r)
	if err != nil {
		sendErr(ctx, w, h.logger, err)
		return
	}

	var req api.UpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		sendErr(ctx, w, h.logger, err)
		return
	}

	if req.FullName != "" {
		user.FullName = req.FullName
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.NewPassword != "" {
		if err := validation.ValidatePassword(req.NewPassword); err != nil {
			sendError(w, h.logger, err.Error(), http.StatusBadRequest)
			return
		}
		if err := setPassword(user, req.NewPassword); err != nil {
			sendErr(ctx, w, h.logger, err)
			return
		}
	}
	user.UpdatedAt = time.Now().UTC()

	if err := h.userStorage.UpdateUser(ctx, user); err != nil {
		sendErr(ctx, w, h.logger, storageError(err))
		return
	}

	sendJSON(w, h.logger, userResponse(user), http.StatusOK)
}

// Delete обрабатывает DELETE /users/{userId}?password=
// После удаления публикует USER_DELETED.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.authenticate(ctx, r)
	if err != nil {
		sendErr(ctx, w, h.logger, err)
		return
	}

	if err := h.userStorage.DeleteUser(ctx, user.ID); err != nil {
		sendErr(ctx, w, h.logger, storageError(err))
		return
	}
	h.logger.InfoContext(ctx, "user deleted", slog.String("user_id", user.ID))

	// учетная запись уже удалена, поэтому сбой объявления только логируется
	err = retry.Do(ctx, h.backoff(), func(ctx context.Context) error {
		return retry.RetryableError(h.publisher.Publish(ctx, bus.UserDeleted(user.ID)))
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to announce user deletion",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	w.WriteHeader(http.StatusNoContent)
}

// Search обрабатывает GET /users?query=&limit=
func (h *UsersHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			sendError(w, h.logger, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	users, err := h.userStorage.SearchUsers(ctx, r.URL.Query().Get("query"), limit)
	if err != nil {
		sendErr(ctx, w, h.logger, err)
		return
	}

	resp := make([]api.UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, userResponse(u))
	}
	sendJSON(w, h.logger, resp, http.StatusOK)
}

// authenticate проверяет пароль из query для пользователя из пути
func (h *UsersHandler) authenticate(ctx context.Context, r *http.Request) (*models.User, error) {
	userID := r.PathValue("userId")
	user, err := h.userStorage.GetUser(ctx, userID)
	if err != nil {
		return nil, storageError(err)
	}

	salt, err := base64.StdEncoding.DecodeString(user.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupted salt of %s: %v", models.ErrInternal, userID, err)
	}
	if !crypto.VerifyPassword(password(r), salt, user.PasswordHash) {
		h.logger.WarnContext(ctx, "wrong password", slog.String("user_id", userID))
		return nil, fmt.Errorf("%w: wrong password for %s", models.ErrForbidden, userID)
	}
	return user, nil
}

// setPassword создает новую соль и хеш пароля
func setPassword(user *models.User, pwd string) error {
	salt, err := crypto.GenerateSalt()
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrInternal, err)
	}
	hashed, err := crypto.HashPassword(pwd, salt)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrInternal, err)
	}
	user.Salt = base64.StdEncoding.EncodeToString(salt)
	user.PasswordHash = hashed
	return nil
}

func storageError(err error) error {
	if errors.Is(err, storage.ErrUserNotFound) {
		return fmt.Errorf("%w: %v", models.ErrNotFound, err)
	}
	return err
}

func userResponse(u *models.User) api.UserResponse {
	return api.UserResponse{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
