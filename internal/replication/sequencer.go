package replication

import (
	"container/heap"
	"slices"
	"sync"

	"github.com/iudanet/gophdir/internal/models"
)

// DefaultLedgerSize число последних примененных дельт, по которым
// распознаются устаревшие повторы
const DefaultLedgerSize = 4096

// applyFunc применяет дельту к локальному состоянию
type applyFunc func(item *pendingDelta) (*models.FileDelta, error)

// pendingDelta дельта в буфере применения
type pendingDelta struct {
	sd       *SequencedDelta
	done     chan applyOutcome // nil для дельт от лидера
	isLeader bool
}

type applyOutcome struct {
	compensation *models.FileDelta
	err          error
	discarded    bool
}

func (p *pendingDelta) finish(out applyOutcome) {
	if p.done != nil {
		p.done <- out
	}
}

// ledgerEntry запись о примененной дельте
type ledgerEntry struct {
	fileID  string
	version models.Version
}

// sequencer применяет дельты строго по порядку версий.
//
// Текущая версия и журнал примененных дельт меняются вместе под mu.
// Дельта со счетчиком current+1 применяется и продвигает версию; дельта из
// прошлого отбрасывается, если тот же файл уже изменен не более старой
// дельтой, иначе применяется без продвижения версии; дельта из будущего
// ждет недостающих предшественников.
type sequencer struct {
	apply   applyFunc
	changed chan struct{}
	pending pendingHeap
	ledger  []ledgerEntry
	current models.Version
	floor   models.Version // журнал полон начиная с floor

	ledgerLimit int
	draining    bool

	mu      sync.Mutex
	applyMu sync.Mutex // одно применение за раз; также снимки
}

func newSequencer(apply applyFunc, ledgerLimit int) *sequencer {
	if ledgerLimit <= 0 {
		ledgerLimit = DefaultLedgerSize
	}
	return &sequencer{
		apply:       apply,
		changed:     make(chan struct{}),
		ledgerLimit: ledgerLimit,
		floor:       models.ZeroVersion,
	}
}

// Current возвращает последнюю версию, примененную по порядку
func (q *sequencer) Current() models.Version {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

// watch возвращает текущую версию и канал, закрываемый при ее изменении
func (q *sequencer) watch() (models.Version, <-chan struct{}) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current, q.changed
}

// Pending возвращает число дельт в буфере
func (q *sequencer) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}

// submit ставит дельту в буфер и применяет все, что стало применимым.
// Применение выполняет одна горутина; остальные только пополняют буфер.
func (q *sequencer) submit(item *pendingDelta) {
	q.mu.Lock()
	heap.Push(&q.pending, item)
	if q.draining {
		q.mu.Unlock()
		return
	}
	q.draining = true
	q.mu.Unlock()

	q.drain()
}

type step int

const (
	stepWait step = iota
	stepApply
	stepApplyPast
	stepDiscard
)

func (q *sequencer) drain() {
	for {
		q.mu.Lock()
		item, action := q.nextLocked()
		if action == stepWait {
			q.draining = false
			q.mu.Unlock()
			return
		}
		heap.Pop(&q.pending)
		q.mu.Unlock()

		if action == stepDiscard {
			item.finish(applyOutcome{discarded: true})
			continue
		}

		q.applyMu.Lock()
		comp, err := q.apply(item)
		q.mu.Lock()
		q.recordLocked(item.sd, action == stepApply)
		q.mu.Unlock()
		q.applyMu.Unlock()

		item.finish(applyOutcome{compensation: comp, err: err})
	}
}

// nextLocked решает судьбу минимальной дельты буфера. Вызывается под mu.
func (q *sequencer) nextLocked() (*pendingDelta, step) {
	if q.pending.Len() == 0 {
		return nil, stepWait
	}
	item := q.pending[0]
	sd := item.sd
	v := sd.Version

	switch {
	case v.Follows(q.current):
		return item, stepApply
	case v.Counter > q.current.Counter:
		return item, stepWait
	case q.supersededLocked(v, sd.Delta.FileID()):
		return item, stepDiscard
	default:
		return item, stepApplyPast
	}
}

// supersededLocked сообщает, что файл уже изменен дельтой с версией не
// меньше v. Версии старше журнала считаются вытесненными.
func (q *sequencer) supersededLocked(v models.Version, fileID string) bool {
	if v.Compare(q.floor) < 0 {
		return true
	}
	i, _ := slices.BinarySearchFunc(q.ledger, v, func(e ledgerEntry, t models.Version) int {
		return e.version.Compare(t)
	})
	for _, e := range q.ledger[i:] {
		if e.fileID == fileID {
			return true
		}
	}
	return false
}

// recordLocked добавляет дельту в журнал и при advance продвигает версию
func (q *sequencer) recordLocked(sd *SequencedDelta, advance bool) {
	entry := ledgerEntry{fileID: sd.Delta.FileID(), version: sd.Version}
	i, _ := slices.BinarySearchFunc(q.ledger, sd.Version, func(e ledgerEntry, t models.Version) int {
		return e.version.Compare(t)
	})
	q.ledger = slices.Insert(q.ledger, i, entry)
	if over := len(q.ledger) - q.ledgerLimit; over > 0 {
		q.floor = q.ledger[over].version
		q.ledger = slices.Delete(q.ledger, 0, over)
	}

	if advance {
		q.current = sd.Version
		close(q.changed)
		q.changed = make(chan struct{})
	}
}

// pendingHeap буфер дельт с приоритетом по версии
type pendingHeap []*pendingDelta

func (h pendingHeap) Len() int           { return len(h) }
func (h pendingHeap) Less(i, j int) bool { return h[i].sd.Version.Compare(h[j].sd.Version) < 0 }
func (h pendingHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *pendingHeap) Push(x any) { *h = append(*h, x.(*pendingDelta)) }

func (h *pendingHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// dropPending отбрасывает буфер; возвращает число отброшенных дельт.
// Вызывается при повышении до лидера: дельты прежнего лидера с разрывами
// уже не будут дополнены.
func (q *sequencer) dropPending() int {
	q.mu.Lock()
	dropped := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, item := range dropped {
		item.finish(applyOutcome{discarded: true})
	}
	return len(dropped)
}

// install заменяет состояние снимком с версией v.
// Дельты со счетчиком не больше v.Counter после этого считаются вытесненными.
func (q *sequencer) install(v models.Version, restore func()) {
	q.applyMu.Lock()
	restore()

	q.mu.Lock()
	q.ledger = nil
	q.floor = models.Version{Counter: v.Counter + 1}
	q.current = v
	close(q.changed)
	q.changed = make(chan struct{})

	var stale []*pendingDelta
	kept := q.pending[:0]
	for _, item := range q.pending {
		if item.sd.Version.Counter <= v.Counter {
			stale = append(stale, item)
		} else {
			kept = append(kept, item)
		}
	}
	q.pending = kept
	heap.Init(&q.pending)
	start := !q.draining && q.pending.Len() > 0
	if start {
		q.draining = true
	}
	q.mu.Unlock()
	q.applyMu.Unlock()

	for _, item := range stale {
		item.finish(applyOutcome{discarded: true})
	}
	if start {
		q.drain()
	}
}

// exclusive выполняет fn без параллельных применений; fn получает текущую версию
func (q *sequencer) exclusive(fn func(current models.Version)) {
	q.applyMu.Lock()
	defer q.applyMu.Unlock()
	fn(q.Current())
}
