// Package blob хранит байты объектов на storage-узле.
//
// Объект адресуется fileId = owner/filename; DeleteOwner удаляет все
// объекты владельца. Доступны бэкенды bbolt (по умолчанию), badger и
// файловая система, а также прозрачное шифрование поверх любого из них.
package blob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iudanet/gophdir/internal/models"
)

var (
	// ErrObjectNotFound объект отсутствует
	ErrObjectNotFound = errors.New("object not found")
	// ErrStorageClosed хранилище закрыто
	ErrStorageClosed = errors.New("storage is closed")
)

// Backend имена бэкендов для конфигурации
const (
	BackendBolt   = "bolt"
	BackendBadger = "badger"
	BackendFS     = "fs"
)

// Store хранилище объектов
type Store interface {
	Put(ctx context.Context, fileID string, data []byte) error
	Get(ctx context.Context, fileID string) ([]byte, error)
	Delete(ctx context.Context, fileID string) error
	// DeleteOwner удаляет все объекты владельца и возвращает их число
	DeleteOwner(ctx context.Context, owner string) (int, error)
	Close() error
}

// Open открывает хранилище выбранного бэкенда по пути path
func Open(ctx context.Context, backend, path string, logger *slog.Logger) (Store, error) {
	switch backend {
	case BackendBolt, "":
		return NewBolt(ctx, path)
	case BackendBadger:
		return NewBadger(path, logger)
	case BackendFS:
		return NewFS(path)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", backend)
	}
}

// ownerPrefix префикс ключей всех объектов владельца
func ownerPrefix(owner string) string {
	return owner + models.FileIDSeparator
}
