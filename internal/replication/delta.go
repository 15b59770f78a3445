package replication

import (
	"container/heap"
	"sync"
	"time"

	"github.com/iudanet/gophdir/internal/models"
)

// SequencedDelta дельта с присвоенной версией.
// Создается лидером и принадлежит ему на время распространения;
// последователи получают только Delta и Version.
type SequencedDelta struct {
	Delta   *models.FileDelta
	quorum  *quorumLatch
	Payload []byte
	Version models.Version
}

// quorumLatch счетчик подтверждений последователей.
// Подтверждения одного последователя учитываются один раз.
type quorumLatch struct {
	acked     map[string]struct{}
	done      chan struct{}
	remaining int
	mu        sync.Mutex
}

func newQuorumLatch(n int) *quorumLatch {
	l := &quorumLatch{
		acked:     make(map[string]struct{}),
		done:      make(chan struct{}),
		remaining: n,
	}
	if n <= 0 {
		close(l.done)
	}
	return l
}

// countDown засчитывает подтверждение последователя follower
func (l *quorumLatch) countDown(follower string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.remaining <= 0 {
		return
	}
	if _, dup := l.acked[follower]; dup {
		return
	}
	l.acked[follower] = struct{}{}
	l.remaining--
	if l.remaining == 0 {
		close(l.done)
	}
}

// wait ждет кворума не дольше timeout; false означает таймаут
func (l *quorumLatch) wait(timeout time.Duration) bool {
	select {
	case <-l.done:
		return true
	default:
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-l.done:
		return true
	case <-t.C:
		return false
	}
}

// deltaHeap очередь с приоритетом по версии (минимальная версия первой)
type deltaHeap []*SequencedDelta

func (h deltaHeap) Len() int           { return len(h) }
func (h deltaHeap) Less(i, j int) bool { return h[i].Version.Compare(h[j].Version) < 0 }
func (h deltaHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *deltaHeap) Push(x any) { *h = append(*h, x.(*SequencedDelta)) }

func (h *deltaHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

func (h *deltaHeap) peek() *SequencedDelta {
	if len(*h) == 0 {
		return nil
	}
	return (*h)[0]
}

var _ heap.Interface = (*deltaHeap)(nil)
