package replication

import (
	"slices"
	"sync"

	"github.com/iudanet/gophdir/internal/models"
)

// DefaultHistorySize число последних дельт, хранимых для догоняющих последователей
const DefaultHistorySize = 4096

// history ограниченный журнал применяемых дельт, упорядоченный по версии.
// Журнал непрерывен начиная со счетчика base: дельты с меньшими
// счетчиками вытеснены или получены в составе снимка.
type history struct {
	entries []*SequencedDelta
	base    int64
	limit   int
	mu      sync.Mutex
}

func newHistory(limit int) *history {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return &history{limit: limit}
}

// add вставляет дельту по порядку версий; повтор той же версии игнорируется
func (h *history) add(sd *SequencedDelta) {
	h.mu.Lock()
	defer h.mu.Unlock()

	i, found := slices.BinarySearchFunc(h.entries, sd.Version, func(e *SequencedDelta, v models.Version) int {
		return e.Version.Compare(v)
	})
	if found {
		return
	}
	h.entries = slices.Insert(h.entries, i, sd)

	if over := len(h.entries) - h.limit; over > 0 {
		h.base = h.entries[over-1].Version.Counter
		clear(h.entries[:over])
		h.entries = h.entries[over:]
	}
}

// after возвращает дельты со счетчиком больше v.Counter.
// complete=false означает, что часть нужных дельт в журнале отсутствует.
func (h *history) after(v models.Version) (out []*SequencedDelta, complete bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, e := range h.entries {
		if e.Version.Counter > v.Counter {
			out = append(out, e)
		}
	}
	return out, v.Counter >= h.base
}

// rebase очищает журнал; следующая дельта должна идти за base
func (h *history) rebase(base models.Version) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
	h.base = max(base.Counter, 0)
}
