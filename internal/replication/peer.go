package replication

import (
	"context"
	"errors"

	"github.com/iudanet/gophdir/internal/models"
)

// ErrNotFollower реплика-получатель сама считает себя лидером
var ErrNotFollower = errors.New("replica is not a follower")

// Peer удаленная сторона последователя
//
//go:generate moq -out peer_mock.go . Peer
type Peer interface {
	// ApplyDelta передает дельту с версией v на применение последователю.
	ApplyDelta(ctx context.Context, v models.Version, delta *models.FileDelta) error
	// Version возвращает текущую версию последователя.
	Version(ctx context.Context) (models.Version, error)
	// InstallSnapshot заменяет состояние последователя снимком.
	InstallSnapshot(ctx context.Context, v models.Version, records []models.FileRecord) error
}

// isTransient сообщает, что ошибку можно переждать и повторить
func isTransient(err error) bool {
	return errors.Is(err, models.ErrTimeout) ||
		errors.Is(err, ErrNotFollower) ||
		errors.Is(err, context.DeadlineExceeded)
}
