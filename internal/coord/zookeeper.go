package coord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-zookeeper/zk"
)

// ZooKeeper реализует Coordinator поверх github.com/go-zookeeper/zk
type ZooKeeper struct {
	conn   *zk.Conn
	logger *slog.Logger
}

var _ Coordinator = (*ZooKeeper)(nil)

// zkLogger перенаправляет лог клиента ZooKeeper в slog
type zkLogger struct {
	logger *slog.Logger
}

func (l zkLogger) Printf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...), slog.String("component", "zookeeper"))
}

// DialZooKeeper подключается к ансамблю servers.
// Сессия истекает через sessionTimeout после потери связи, и ее
// ephemeral-узлы удаляются сервером.
func DialZooKeeper(servers []string, sessionTimeout time.Duration, logger *slog.Logger) (*ZooKeeper, error) {
	conn, events, err := zk.Connect(servers, sessionTimeout, zk.WithLogger(zkLogger{logger: logger}))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zookeeper: %w", err)
	}

	go func() {
		for ev := range events {
			if ev.State == zk.StateExpired {
				logger.Warn("zookeeper session expired", slog.String("server", ev.Server))
			}
		}
	}()

	return &ZooKeeper{conn: conn, logger: logger}, nil
}

func (z *ZooKeeper) EnsurePath(ctx context.Context, p string) error {
	for _, node := range parents(p) {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := z.conn.Create(node, nil, 0, zk.WorldACL(zk.PermAll))
		if err != nil && !errors.Is(err, zk.ErrNodeExists) {
			return fmt.Errorf("failed to create %s: %w", node, err)
		}
	}
	return nil
}

func (z *ZooKeeper) CreateEphemeralSequential(ctx context.Context, prefix string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	created, err := z.conn.Create(prefix, data, zk.FlagEphemeral|zk.FlagSequence, zk.WorldACL(zk.PermAll))
	if err != nil {
		return "", fmt.Errorf("failed to create candidate %s: %w", prefix, mapZKError(err))
	}
	return created, nil
}

func (z *ZooKeeper) Children(ctx context.Context, p string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	children, _, err := z.conn.Children(p)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", p, mapZKError(err))
	}
	return children, nil
}

func (z *ZooKeeper) WatchChildren(ctx context.Context, p string) ([]string, <-chan struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	children, _, events, err := z.conn.ChildrenW(p)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to watch %s: %w", p, mapZKError(err))
	}

	changed := make(chan struct{})
	go func() {
		defer close(changed)
		select {
		case ev := <-events:
			if ev.Err != nil {
				z.logger.Warn("zookeeper watch failed", slog.String("path", p), slog.Any("error", ev.Err))
			}
		case <-ctx.Done():
		}
	}()

	return children, changed, nil
}

func (z *ZooKeeper) Get(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, _, err := z.conn.Get(p)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", p, mapZKError(err))
	}
	return data, nil
}

func (z *ZooKeeper) Close() error {
	z.conn.Close()
	return nil
}

func mapZKError(err error) error {
	switch {
	case errors.Is(err, zk.ErrNoNode):
		return ErrNoNode
	case errors.Is(err, zk.ErrClosing), errors.Is(err, zk.ErrConnectionClosed):
		return ErrClosed
	}
	return err
}
