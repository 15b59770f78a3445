package directory

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"
)

// userIndex производный индекс файлов пользователя.
// Каждый индекс защищен собственной блокировкой.
type userIndex struct {
	owned  map[string]struct{}
	shared map[string]struct{}
	mu     sync.Mutex
}

// indexes хранит userIndex по пользователям
type indexes struct {
	byUser map[string]*userIndex
	mu     sync.Mutex
}

func newIndexes() *indexes {
	return &indexes{byUser: make(map[string]*userIndex)}
}

// add применяет put к индексу пользователя, создавая его при необходимости
func (x *indexes) add(userID string, put func(idx *userIndex)) {
	x.mu.Lock()
	defer x.mu.Unlock()

	idx, ok := x.byUser[userID]
	if !ok {
		idx = &userIndex{
			owned:  make(map[string]struct{}),
			shared: make(map[string]struct{}),
		}
		x.byUser[userID] = idx
	}
	idx.mu.Lock()
	put(idx)
	idx.mu.Unlock()
}

func (x *indexes) addOwned(userID, fileID string) {
	x.add(userID, func(idx *userIndex) { idx.owned[fileID] = struct{}{} })
}

func (x *indexes) removeOwned(userID, fileID string) {
	x.remove(userID, func(idx *userIndex) { delete(idx.owned, fileID) })
}

func (x *indexes) addShared(userID, fileID string) {
	x.add(userID, func(idx *userIndex) { idx.shared[fileID] = struct{}{} })
}

func (x *indexes) removeShared(userID, fileID string) {
	x.remove(userID, func(idx *userIndex) { delete(idx.shared, fileID) })
}

// remove применяет drop к индексу пользователя и убирает опустевший индекс.
// Блокировка x.mu удерживается, чтобы параллельный add не попал в
// уже удаленный индекс.
func (x *indexes) remove(userID string, drop func(idx *userIndex)) {
	x.mu.Lock()
	defer x.mu.Unlock()

	idx, ok := x.byUser[userID]
	if !ok {
		return
	}
	idx.mu.Lock()
	drop(idx)
	empty := len(idx.owned) == 0 && len(idx.shared) == 0
	idx.mu.Unlock()
	if empty {
		delete(x.byUser, userID)
	}
}

// files возвращает отсортированные owned и shared идентификаторы
func (x *indexes) files(userID string) (owned, shared []string) {
	x.mu.Lock()
	idx, ok := x.byUser[userID]
	x.mu.Unlock()
	if !ok {
		return nil, nil
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return slices.Sorted(maps.Keys(idx.owned)), slices.Sorted(maps.Keys(idx.shared))
}

// users число пользователей с непустым индексом
func (x *indexes) users() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.byUser)
}

func (x *indexes) reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.byUser = make(map[string]*userIndex)
}

// loadCounters приблизительные счетчики файлов на storage-узлах.
// Используются только для ранжирования при размещении.
type loadCounters struct {
	counters sync.Map // node -> *atomic.Int64
}

func (l *loadCounters) counter(node string) *atomic.Int64 {
	if c, ok := l.counters.Load(node); ok {
		return c.(*atomic.Int64)
	}
	c, _ := l.counters.LoadOrStore(node, new(atomic.Int64))
	return c.(*atomic.Int64)
}

func (l *loadCounters) add(node string, delta int64) {
	l.counter(node).Add(delta)
}

func (l *loadCounters) get(node string) int64 {
	if c, ok := l.counters.Load(node); ok {
		return c.(*atomic.Int64).Load()
	}
	return 0
}

func (l *loadCounters) reset() {
	l.counters.Range(func(k, _ any) bool {
		l.counters.Delete(k)
		return true
	})
}
