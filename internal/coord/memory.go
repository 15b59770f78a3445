package coord

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

// MemoryServer хранит дерево узлов в памяти процесса.
// Используется в тестах и для запуска одной реплики без ZooKeeper.
type MemoryServer struct {
	nodes    map[string]*memoryNode
	watches  map[string][]chan struct{}
	sequence map[string]int64
	mu       sync.Mutex
}

type memoryNode struct {
	owner *MemorySession // nil для persistent-узлов
	data  []byte
}

// NewMemoryServer создает пустое дерево с корнем "/"
func NewMemoryServer() *MemoryServer {
	return &MemoryServer{
		nodes:    map[string]*memoryNode{"/": {}},
		watches:  make(map[string][]chan struct{}),
		sequence: make(map[string]int64),
	}
}

// Session открывает новую сессию; ее ephemeral-узлы живут до Close.
func (s *MemoryServer) Session() *MemorySession {
	return &MemorySession{server: s}
}

// fire закрывает наблюдателей за детьми parent. Вызывается под s.mu.
func (s *MemoryServer) fire(parent string) {
	for _, ch := range s.watches[parent] {
		close(ch)
	}
	delete(s.watches, parent)
}

func (s *MemoryServer) children(p string) ([]string, error) {
	p = path.Clean(p)
	if _, ok := s.nodes[p]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoNode, p)
	}
	prefix := strings.TrimSuffix(p, "/") + "/"
	var out []string
	for name := range s.nodes {
		if rest, ok := strings.CutPrefix(name, prefix); ok && rest != "" && !strings.Contains(rest, "/") {
			out = append(out, rest)
		}
	}
	sort.Strings(out)
	return out, nil
}

// MemorySession реализует Coordinator поверх MemoryServer
type MemorySession struct {
	server *MemoryServer
	closed bool
}

var _ Coordinator = (*MemorySession)(nil)

func (m *MemorySession) EnsurePath(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := m.server
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	for _, node := range parents(p) {
		if _, ok := s.nodes[node]; ok {
			continue
		}
		s.nodes[node] = &memoryNode{}
		s.fire(path.Dir(node))
	}
	return nil
}

func (m *MemorySession) CreateEphemeralSequential(ctx context.Context, prefix string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s := m.server
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.closed {
		return "", ErrClosed
	}

	parent := path.Dir(prefix)
	if _, ok := s.nodes[parent]; !ok {
		return "", fmt.Errorf("%w: %s", ErrNoNode, parent)
	}

	seq := s.sequence[parent]
	s.sequence[parent] = seq + 1
	name := fmt.Sprintf("%s%010d", prefix, seq)

	s.nodes[name] = &memoryNode{owner: m, data: append([]byte(nil), data...)}
	s.fire(parent)
	return name, nil
}

func (m *MemorySession) Children(ctx context.Context, p string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := m.server
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return s.children(p)
}

func (m *MemorySession) WatchChildren(ctx context.Context, p string) ([]string, <-chan struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	s := m.server
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.closed {
		return nil, nil, ErrClosed
	}

	children, err := s.children(p)
	if err != nil {
		return nil, nil, err
	}
	ch := make(chan struct{})
	key := path.Clean(p)
	s.watches[key] = append(s.watches[key], ch)
	return children, ch, nil
}

func (m *MemorySession) Get(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := m.server
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	node, ok := s.nodes[path.Clean(p)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoNode, p)
	}
	return append([]byte(nil), node.data...), nil
}

// Close удаляет ephemeral-узлы сессии, как это делает ZooKeeper при ее истечении
func (m *MemorySession) Close() error {
	s := m.server
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	for name, node := range s.nodes {
		if node.owner == m {
			delete(s.nodes, name)
			s.fire(path.Dir(name))
		}
	}
	return nil
}
