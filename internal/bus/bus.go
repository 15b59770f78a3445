// Package bus доставляет объявления сервисов (например, USER_DELETED)
// всем заинтересованным процессам. Доставка at-least-once, поэтому
// обработчики должны быть идемпотентны.
package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iudanet/gophdir/internal/models"
)

// ErrClosed шина закрыта
var ErrClosed = errors.New("bus is closed")

// Message объявление: Key определяет тип, Value - аргумент
type Message struct {
	Key   string
	Value string
}

// Handler обрабатывает одно объявление
type Handler func(ctx context.Context, msg Message) error

// Publisher публикует объявления
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Subscriber доставляет объявления обработчику до отмены ctx
type Subscriber interface {
	Subscribe(ctx context.Context, handler Handler) error
	Close() error
}

// UserDeleted объявление об удалении пользователя
func UserDeleted(userID string) Message {
	return Message{Key: models.UserDeletedAnnouncement, Value: userID}
}

// OnUserDeleted возвращает обработчик, вызывающий fn только для USER_DELETED
func OnUserDeleted(logger *slog.Logger, fn func(ctx context.Context, userID string) error) Handler {
	return func(ctx context.Context, msg Message) error {
		if msg.Key != models.UserDeletedAnnouncement {
			logger.DebugContext(ctx, "ignoring announcement", slog.String("key", msg.Key))
			return nil
		}
		if msg.Value == "" {
			return fmt.Errorf("%s without user id", msg.Key)
		}
		return fn(ctx, msg.Value)
	}
}
