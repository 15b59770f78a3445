package replication

import (
	"container/heap"
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/iudanet/gophdir/internal/election"
	"github.com/iudanet/gophdir/internal/models"
)

const (
	// DefaultQueueSize емкость входного канала последователя
	DefaultQueueSize = 256

	resendBase  = 100 * time.Millisecond
	resendCap   = 2 * time.Second
	callTimeout = 5 * time.Second
)

// sender доставляет дельты одному последователю в порядке версий.
// Входной канал принимает дельты в любом порядке; горутина складывает их
// в кучу и отправляет минимальную. При временной ошибке та же дельта
// повторяется с backoff, пока последователь не станет доступен.
type sender struct {
	peer     Peer
	manager  *Manager
	logger   *slog.Logger
	queue    chan *SequencedDelta
	stop     chan struct{}
	stopped  chan struct{}
	target   election.Candidate
	inflight map[models.Version]struct{}
	pending  deltaHeap
	resync   atomic.Bool // канал был полон: часть дельт есть только в журнале
}

func newSender(m *Manager, target election.Candidate, peer Peer) *sender {
	return &sender{
		peer:     peer,
		manager:  m,
		logger:   m.logger.With(slog.String("follower", target.Handle), slog.String("url", target.URL)),
		queue:    make(chan *SequencedDelta, m.cfg.QueueSize),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
		target:   target,
		inflight: make(map[models.Version]struct{}),
	}
}

// enqueue передает дельту горутине отправителя, ожидая не дольше timeout.
// Если канал так и не освободился, отправитель позже дочитает журнал.
func (s *sender) enqueue(sd *SequencedDelta, timeout time.Duration) {
	select {
	case s.queue <- sd:
		return
	case <-s.stop:
		return
	default:
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case s.queue <- sd:
	case <-s.stop:
	case <-t.C:
		s.logger.Warn("follower queue is full, falling back to history replay",
			slog.String("version", sd.Version.String()))
		s.resync.Store(true)
	}
}

func (s *sender) close() {
	close(s.stop)
	<-s.stopped
}

func (s *sender) push(sd *SequencedDelta) {
	if _, dup := s.inflight[sd.Version]; dup {
		return
	}
	s.inflight[sd.Version] = struct{}{}
	heap.Push(&s.pending, sd)
}

// drainQueue забирает все, что уже лежит в канале
func (s *sender) drainQueue() {
	for {
		select {
		case sd := <-s.queue:
			s.push(sd)
		default:
			return
		}
	}
}

func newResendBackoff() retry.Backoff {
	return retry.WithCappedDuration(resendCap, retry.NewExponential(resendBase))
}

func (s *sender) run(ctx context.Context) {
	defer close(s.stopped)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	if !s.catchUp(ctx) {
		return
	}

	backoff := newResendBackoff()
	for {
		if s.resync.CompareAndSwap(true, false) && !s.catchUp(ctx) {
			return
		}
		if s.pending.Len() == 0 {
			select {
			case sd := <-s.queue:
				s.push(sd)
			case <-ctx.Done():
				return
			}
			continue
		}
		s.drainQueue()

		sd := s.pending.peek()
		err := s.call(ctx, func(ctx context.Context) error {
			return s.peer.ApplyDelta(ctx, sd.Version, sd.Delta)
		})
		switch {
		case err == nil:
			heap.Pop(&s.pending)
			delete(s.inflight, sd.Version)
			sd.quorum.countDown(s.target.Handle)
			backoff = newResendBackoff()
		case ctx.Err() != nil:
			return
		case isTransient(err):
			delay, _ := backoff.Next()
			s.logger.Debug("follower unreachable, will resend",
				slog.String("version", sd.Version.String()),
				slog.Duration("delay", delay),
				slog.Any("error", err),
			)
			if !s.wait(ctx, delay) {
				return
			}
		default:
			s.manager.fail(err)
			return
		}
	}
}

// catchUp выясняет версию последователя и ставит в очередь недостающие
// дельты из журнала; если журнал неполон, сначала отправляет снимок.
func (s *sender) catchUp(ctx context.Context) bool {
	backoff := newResendBackoff()
	for {
		err := s.call(ctx, func(ctx context.Context) error {
			followerVersion, err := s.peer.Version(ctx)
			if err != nil {
				return err
			}

			missing, complete := s.manager.history.after(followerVersion)
			if !complete {
				snapshotVersion, records := s.manager.Snapshot()
				s.logger.Info("follower is behind retained history, sending snapshot",
					slog.String("follower_version", followerVersion.String()),
					slog.String("snapshot_version", snapshotVersion.String()),
					slog.Int("records", len(records)),
				)
				if err := s.peer.InstallSnapshot(ctx, snapshotVersion, records); err != nil {
					return err
				}
				missing, _ = s.manager.history.after(snapshotVersion)
			}

			for _, sd := range missing {
				s.push(sd)
			}
			if len(missing) > 0 {
				s.logger.Info("replaying history to follower",
					slog.String("follower_version", followerVersion.String()),
					slog.Int("deltas", len(missing)),
				)
			}
			return nil
		})
		switch {
		case err == nil:
			return true
		case ctx.Err() != nil:
			return false
		case isTransient(err):
			delay, _ := backoff.Next()
			if !s.wait(ctx, delay) {
				return false
			}
		default:
			s.manager.fail(err)
			return false
		}
	}
}

func (s *sender) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return fn(ctx)
}

// wait ждет delay, продолжая принимать новые дельты в кучу
func (s *sender) wait(ctx context.Context, delay time.Duration) bool {
	t := time.NewTimer(delay)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			return true
		case sd := <-s.queue:
			s.push(sd)
		case <-ctx.Done():
			return false
		}
	}
}
