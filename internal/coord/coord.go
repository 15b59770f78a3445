// Package coord содержит минимальный набор примитивов сервиса координации,
// нужный выбору лидера: persistent и ephemeral-sequential узлы, список
// детей, одноразовое наблюдение за изменением детей и чтение данных узла.
package coord

import (
	"context"
	"errors"
	"path"
	"strings"
)

var (
	// ErrNoNode узел не существует
	ErrNoNode = errors.New("coord: node does not exist")
	// ErrClosed сессия закрыта
	ErrClosed = errors.New("coord: session closed")
)

// Coordinator абстракция над ZooKeeper-подобным хранилищем метаданных
//
//go:generate moq -out coordinator_mock.go . Coordinator
type Coordinator interface {
	// EnsurePath создает persistent-узел path вместе с родителями, если его нет.
	EnsurePath(ctx context.Context, path string) error

	// CreateEphemeralSequential создает ephemeral-sequential узел с префиксом
	// prefix и возвращает полный путь созданного узла.
	// Узел исчезает при закрытии или истечении сессии.
	CreateEphemeralSequential(ctx context.Context, prefix string, data []byte) (string, error)

	// Children возвращает имена (не пути) дочерних узлов.
	Children(ctx context.Context, path string) ([]string, error)

	// WatchChildren возвращает детей и канал, который закрывается один раз
	// при следующем изменении набора детей или разрыве сессии.
	WatchChildren(ctx context.Context, path string) ([]string, <-chan struct{}, error)

	// Get возвращает данные узла или ErrNoNode, если узла нет.
	Get(ctx context.Context, path string) ([]byte, error)

	// Close закрывает сессию; все ephemeral-узлы сессии удаляются.
	Close() error
}

// parents возвращает цепочку путей от корня до p включительно
func parents(p string) []string {
	p = path.Clean("/" + p)
	if p == "/" {
		return nil
	}
	segments := strings.Split(strings.TrimPrefix(p, "/"), "/")
	out := make([]string, 0, len(segments))
	cur := ""
	for _, s := range segments {
		cur += "/" + s
		out = append(out, cur)
	}
	return out
}
