package bus

import (
	"context"
	"log/slog"
	"sync"
)

const memoryBuffer = 64

type memorySub struct {
	ch   chan Message
	done chan struct{}
}

// Memory шина внутри процесса: каждое сообщение получает каждый подписчик
type Memory struct {
	logger *slog.Logger
	subs   map[int]*memorySub
	closed chan struct{}
	next   int
	once   sync.Once
	mu     sync.Mutex
}

// NewMemory создает шину в памяти
func NewMemory(logger *slog.Logger) *Memory {
	return &Memory{
		logger: logger.With(slog.String("component", "bus")),
		subs:   make(map[int]*memorySub),
		closed: make(chan struct{}),
	}
}

// Publish рассылает сообщение всем текущим подписчикам
func (m *Memory) Publish(ctx context.Context, msg Message) error {
	select {
	case <-m.closed:
		return ErrClosed
	default:
	}

	m.mu.Lock()
	subs := make([]*memorySub, 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- msg:
		case <-s.done:
		case <-m.closed:
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe вызывает handler для каждого сообщения до отмены ctx или
// закрытия шины. Ошибка обработчика только логируется.
func (m *Memory) Subscribe(ctx context.Context, handler Handler) error {
	select {
	case <-m.closed:
		return ErrClosed
	default:
	}

	sub := &memorySub{ch: make(chan Message, memoryBuffer), done: make(chan struct{})}
	m.mu.Lock()
	id := m.next
	m.next++
	m.subs[id] = sub
	m.mu.Unlock()

	defer func() {
		close(sub.done)
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}()

	for {
		select {
		case msg := <-sub.ch:
			if err := handler(ctx, msg); err != nil {
				m.logger.WarnContext(ctx, "announcement handler failed",
					slog.String("key", msg.Key),
					slog.String("value", msg.Value),
					slog.Any("error", err),
				)
			}
		case <-m.closed:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// Subscribers число активных подписчиков
func (m *Memory) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// Close завершает всех подписчиков
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}
