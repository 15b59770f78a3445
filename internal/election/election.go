// Package election выбирает лидера среди реплик каталога.
//
// Каждая реплика регистрирует ephemeral-sequential кандидата в сервисе
// координации. Лидер - кандидат с наименьшим именем среди живых; порядок
// задается счетчиком последовательности сервиса, поэтому совпадений нет.
package election

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"sync"
	"time"

	"github.com/iudanet/gophdir/internal/coord"
)

const candidatePrefix = "candidate"

// Candidate регистрация реплики в выборах
type Candidate struct {
	Handle    string `json:"-"`         // имя узла у сервиса координации
	ReplicaID string `json:"replicaID"` // идентификатор реплики
	URL       string `json:"url"`       // базовый URL реплики
}

// Election поддерживает кэш живых кандидатов и уведомляет об изменениях
type Election struct {
	coord  coord.Coordinator
	logger *slog.Logger
	root   string
	self   Candidate

	applyMu    sync.Mutex // сериализует пересчет кэша
	mu         sync.RWMutex
	handle     string
	candidates []Candidate // отсортированы по Handle

	cbMu     sync.Mutex
	onNew    []func(Candidate)
	onGone   []func(Candidate)
	onLeader []func(leader Candidate, amLeader bool)
}

// New создает выборы с именем name. self описывает эту реплику.
func New(c coord.Coordinator, name string, self Candidate, logger *slog.Logger) *Election {
	return &Election{
		coord:  c,
		logger: logger.With(slog.String("component", "election"), slog.String("election", name)),
		root:   "/Election." + name,
		self:   self,
	}
}

// OnNewCandidate регистрирует callback на появление кандидата (кроме себя)
func (e *Election) OnNewCandidate(fn func(Candidate)) {
	e.cbMu.Lock()
	defer e.cbMu.Unlock()
	e.onNew = append(e.onNew, fn)
}

// OnCandidateGone регистрирует callback на исчезновение кандидата
func (e *Election) OnCandidateGone(fn func(Candidate)) {
	e.cbMu.Lock()
	defer e.cbMu.Unlock()
	e.onGone = append(e.onGone, fn)
}

// OnLeaderChange регистрирует callback на смену лидера
func (e *Election) OnLeaderChange(fn func(leader Candidate, amLeader bool)) {
	e.cbMu.Lock()
	defer e.cbMu.Unlock()
	e.onLeader = append(e.onLeader, fn)
}

// Register регистрирует кандидата этой реплики и обновляет кэш
func (e *Election) Register(ctx context.Context) (string, error) {
	if err := e.coord.EnsurePath(ctx, e.root); err != nil {
		return "", fmt.Errorf("failed to create election root: %w", err)
	}

	payload, err := json.Marshal(e.self)
	if err != nil {
		return "", fmt.Errorf("failed to marshal candidate: %w", err)
	}

	created, err := e.coord.CreateEphemeralSequential(ctx, path.Join(e.root, candidatePrefix), payload)
	if err != nil {
		return "", fmt.Errorf("failed to register candidate: %w", err)
	}

	handle := path.Base(created)
	e.mu.Lock()
	e.handle = handle
	e.mu.Unlock()

	e.logger.Info("registered candidate", slog.String("handle", handle), slog.String("replica_id", e.self.ReplicaID))

	if err := e.Refresh(ctx); err != nil {
		return handle, err
	}
	return handle, nil
}

// Run наблюдает за кандидатами до отмены ctx.
// Если собственная регистрация пропала (истекла сессия), регистрируется заново.
func (e *Election) Run(ctx context.Context) error {
	for {
		names, changed, err := e.coord.WatchChildren(ctx, e.root)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, coord.ErrClosed) {
				return ctx.Err()
			}
			e.logger.Warn("failed to watch candidates", slog.Any("error", err))
			if !sleep(ctx, time.Second) {
				return ctx.Err()
			}
			continue
		}

		e.apply(ctx, names)

		e.mu.RLock()
		handle := e.handle
		e.mu.RUnlock()
		if handle != "" && !slices.Contains(names, handle) {
			e.logger.Warn("own candidate disappeared, registering again", slog.String("handle", handle))
			if _, err := e.Register(ctx); err != nil {
				e.logger.Error("failed to register again", slog.Any("error", err))
			}
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Refresh перечитывает список кандидатов без установки наблюдения
func (e *Election) Refresh(ctx context.Context) error {
	names, err := e.coord.Children(ctx, e.root)
	if err != nil {
		return fmt.Errorf("failed to list candidates: %w", err)
	}
	e.apply(ctx, names)
	return nil
}

// apply пересчитывает кэш по списку имен и вызывает callbacks вне блокировки
func (e *Election) apply(ctx context.Context, names []string) {
	e.applyMu.Lock()
	defer e.applyMu.Unlock()

	names = slices.Clone(names)
	slices.Sort(names)

	e.mu.RLock()
	known := make(map[string]Candidate, len(e.candidates))
	for _, c := range e.candidates {
		known[c.Handle] = c
	}
	oldLeader, hadLeader := e.leaderLocked()
	e.mu.RUnlock()

	next := make([]Candidate, 0, len(names))
	for _, name := range names {
		if c, ok := known[name]; ok {
			next = append(next, c)
			continue
		}
		data, err := e.coord.Get(ctx, path.Join(e.root, name))
		if err != nil {
			if !errors.Is(err, coord.ErrNoNode) {
				e.logger.Warn("failed to read candidate", slog.String("handle", name), slog.Any("error", err))
			}
			continue
		}
		var c Candidate
		if err := json.Unmarshal(data, &c); err != nil {
			e.logger.Warn("skipping malformed candidate", slog.String("handle", name), slog.Any("error", err))
			continue
		}
		c.Handle = name
		next = append(next, c)
	}

	e.mu.Lock()
	e.candidates = next
	me := e.handle
	newLeader, hasLeader := e.leaderLocked()
	e.mu.Unlock()

	current := make(map[string]struct{}, len(next))
	var added, gone []Candidate
	for _, c := range next {
		current[c.Handle] = struct{}{}
		if _, ok := known[c.Handle]; !ok && c.Handle != me {
			added = append(added, c)
		}
	}
	for handle, c := range known {
		if _, ok := current[handle]; !ok && handle != me {
			gone = append(gone, c)
		}
	}

	e.cbMu.Lock()
	onNew, onGone, onLeader := slices.Clone(e.onNew), slices.Clone(e.onGone), slices.Clone(e.onLeader)
	e.cbMu.Unlock()

	for _, c := range added {
		e.logger.Info("candidate joined", slog.String("handle", c.Handle), slog.String("url", c.URL))
		for _, fn := range onNew {
			fn(c)
		}
	}
	for _, c := range gone {
		e.logger.Info("candidate gone", slog.String("handle", c.Handle), slog.String("url", c.URL))
		for _, fn := range onGone {
			fn(c)
		}
	}

	if hasLeader && (!hadLeader || oldLeader.Handle != newLeader.Handle) {
		amLeader := newLeader.Handle == me
		e.logger.Info("leader changed",
			slog.String("leader", newLeader.Handle),
			slog.String("url", newLeader.URL),
			slog.Bool("am_leader", amLeader),
		)
		for _, fn := range onLeader {
			fn(newLeader, amLeader)
		}
	}
}

func (e *Election) leaderLocked() (Candidate, bool) {
	if len(e.candidates) == 0 {
		return Candidate{}, false
	}
	return e.candidates[0], true
}

// AmLeader локальная проверка по кэшу кандидатов, без обращения к сервису
func (e *Election) AmLeader() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	leader, ok := e.leaderLocked()
	return ok && e.handle != "" && leader.Handle == e.handle
}

// Leader возвращает текущего лидера
func (e *Election) Leader() (Candidate, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.leaderLocked()
}

// Followers возвращает всех живых кандидатов, кроме лидера
func (e *Election) Followers() []Candidate {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.candidates) < 2 {
		return nil
	}
	return slices.Clone(e.candidates[1:])
}

// Candidates возвращает упорядоченный список живых кандидатов
func (e *Election) Candidates() []Candidate {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.candidates)
}

// Self возвращает описание этой реплики с текущим handle
func (e *Election) Self() Candidate {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c := e.self
	c.Handle = e.handle
	return c
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
