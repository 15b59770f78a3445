// Package nodes отслеживает достижимость storage-узлов.
package nodes

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Prober проверяет доступность одного узла
type Prober interface {
	Health(ctx context.Context, node string) error
}

// Registry статический список узлов с периодическим опросом /health.
// Узел считается достижимым, пока не истек срок последнего успешного
// опроса (три периода).
type Registry struct {
	prober   Prober
	logger   *slog.Logger
	alive    *cache.Cache
	nodes    []string
	interval time.Duration
	timeout  time.Duration

	down map[string]bool // последнее известное состояние, только для журнала
	mu   sync.Mutex
}

// NewRegistry создает реестр; до первого опроса ни один узел не достижим
func NewRegistry(nodes []string, prober Prober, interval, timeout time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		prober:   prober,
		logger:   logger.With(slog.String("component", "nodes")),
		alive:    cache.New(3*interval, 3*interval),
		nodes:    nodes,
		interval: interval,
		timeout:  timeout,
		down:     make(map[string]bool, len(nodes)),
	}
}

// Reachable возвращает достижимые узлы в порядке конфигурации
func (r *Registry) Reachable() []string {
	out := make([]string, 0, len(r.nodes))
	for _, n := range r.nodes {
		if _, ok := r.alive.Get(n); ok {
			out = append(out, n)
		}
	}
	return out
}

// All возвращает все сконфигурированные узлы
func (r *Registry) All() []string {
	return r.nodes
}

// Run опрашивает узлы каждые interval до отмены ctx.
// Первый опрос выполняется сразу.
func (r *Registry) Run(ctx context.Context) {
	r.ProbeAll(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.ProbeAll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// ProbeAll опрашивает все узлы параллельно и ждет результатов
func (r *Registry) ProbeAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, n := range r.nodes {
		wg.Add(1)
		go func(node string) {
			defer wg.Done()
			r.probe(ctx, node)
		}(n)
	}
	wg.Wait()
}

func (r *Registry) probe(ctx context.Context, node string) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := r.prober.Health(ctx, node)
	if err == nil {
		r.alive.SetDefault(node, struct{}{})
	} else {
		r.alive.Delete(node)
	}

	r.mu.Lock()
	wasDown, known := r.down[node]
	r.down[node] = err != nil
	r.mu.Unlock()

	switch {
	case err != nil && (!known || !wasDown):
		r.logger.Warn("storage node unreachable", slog.String("node", node), slog.Any("error", err))
	case err == nil && wasDown:
		r.logger.Info("storage node is back", slog.String("node", node))
	}
}
