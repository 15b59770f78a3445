// Package replication распространяет дельты каталога от лидера к
// последователям и применяет их на каждой реплике в порядке версий.
package replication

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iudanet/gophdir/internal/election"
	"github.com/iudanet/gophdir/internal/models"
)

const (
	// DefaultWriteQuorum число подтверждений последователей для фиксации
	DefaultWriteQuorum = 1
	// DefaultQuorumTimeout предельное ожидание кворума
	DefaultQuorumTimeout = 3 * time.Second
	// DefaultVersionWait предельное ожидание версии при чтении
	DefaultVersionWait = 10 * time.Second
)

var (
	// ErrNotLeader операция требует лидера
	ErrNotLeader = errors.New("replica is not the leader")
	// ErrDiverged последователь нарушил инвариант конечного автомата
	ErrDiverged = errors.New("replica state diverged")
)

// Applier локальное состояние, к которому применяются дельты
type Applier interface {
	ApplyDelta(ctx context.Context, delta *models.FileDelta, isLeader bool, payload []byte) (*models.FileDelta, error)
	Snapshot() []models.FileRecord
	Restore(records []models.FileRecord)
}

// Cluster текущий состав реплик
type Cluster interface {
	AmLeader() bool
	Followers() []election.Candidate
}

// PeerDialer создает клиента последователя
type PeerDialer func(c election.Candidate) Peer

// Config параметры репликации
type Config struct {
	ReplicaID     string
	WriteQuorum   int
	QuorumTimeout time.Duration
	VersionWait   time.Duration
	HistorySize   int
	QueueSize     int
}

func (c *Config) setDefaults() {
	if c.WriteQuorum <= 0 {
		c.WriteQuorum = DefaultWriteQuorum
	}
	if c.QuorumTimeout <= 0 {
		c.QuorumTimeout = DefaultQuorumTimeout
	}
	if c.VersionWait <= 0 {
		c.VersionWait = DefaultVersionWait
	}
	if c.HistorySize <= 0 {
		c.HistorySize = DefaultHistorySize
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
}

// CommitResult итог фиксации дельты лидером
type CommitResult struct {
	Compensation *models.FileDelta // узлы, не принявшие байты файла
	Version      models.Version
	Degraded     bool // кворум не набран за QuorumTimeout
}

// Manager владеет версией реплики, буфером применения и отправителями.
// Создается один раз при старте процесса и передается явно.
type Manager struct {
	applier Applier
	cluster Cluster
	dial    PeerDialer
	logger  *slog.Logger
	seq     *sequencer
	history *history
	onFatal func(error)
	fatal   atomic.Pointer[error]
	senders map[string]*sender
	ctx     context.Context
	cfg     Config

	issued   models.Version
	issueMu  sync.Mutex
	senderMu sync.Mutex
	leading  bool
}

// NewManager создает менеджер. onFatal вызывается один раз при
// расхождении состояния; процесс должен прекратить обслуживание.
func NewManager(cfg Config, applier Applier, cluster Cluster, dial PeerDialer, onFatal func(error), logger *slog.Logger) *Manager {
	cfg.setDefaults()
	m := &Manager{
		cfg:     cfg,
		applier: applier,
		cluster: cluster,
		dial:    dial,
		onFatal: onFatal,
		logger:  logger.With(slog.String("component", "replication"), slog.String("replica_id", cfg.ReplicaID)),
		history: newHistory(cfg.HistorySize),
		senders: make(map[string]*sender),
		ctx:     context.Background(),
	}
	m.seq = newSequencer(m.applyItem, cfg.HistorySize)
	return m
}

// Start задает время жизни отправителей и запускает их, если реплика лидер
func (m *Manager) Start(ctx context.Context) {
	m.senderMu.Lock()
	m.ctx = ctx
	m.senderMu.Unlock()

	if m.cluster.AmLeader() {
		m.promote()
	}

	go func() {
		<-ctx.Done()
		m.stopSenders()
	}()
}

// CurrentVersion последняя версия, примененная по порядку
func (m *Manager) CurrentVersion() models.Version {
	return m.seq.Current()
}

// Failed возвращает ошибку расхождения, если она произошла
func (m *Manager) Failed() error {
	if p := m.fatal.Load(); p != nil {
		return *p
	}
	return nil
}

func (m *Manager) fail(err error) {
	if !m.fatal.CompareAndSwap(nil, &err) {
		return
	}
	m.logger.Error("replica can no longer serve consistently", slog.Any("error", err))
	if m.onFatal != nil {
		m.onFatal(err)
	}
}

// Commit фиксирует дельту на лидере: присваивает версию, рассылает
// последователям, ждет кворума (не дольше QuorumTimeout) и применяет
// локально. Таймаут кворума не отменяет фиксацию: результат помечается
// Degraded. Отмена ctx не прерывает начатую фиксацию.
func (m *Manager) Commit(ctx context.Context, delta *models.FileDelta, payload []byte) (CommitResult, error) {
	if err := m.Failed(); err != nil {
		return CommitResult{}, fmt.Errorf("%w: %v", models.ErrInternal, err)
	}
	if !m.cluster.AmLeader() {
		return CommitResult{}, ErrNotLeader
	}

	senders := m.activeSenders()
	quorum := min(m.cfg.WriteQuorum, len(senders))

	m.issueMu.Lock()
	base := m.issued
	if current := m.seq.Current(); current.IsNewerThan(base) {
		base = current
	}
	sd := &SequencedDelta{
		Delta:   delta.Clone(),
		Version: base.Next(m.cfg.ReplicaID),
		Payload: payload,
		quorum:  newQuorumLatch(quorum),
	}
	m.issued = sd.Version
	m.history.add(sd)
	m.issueMu.Unlock()

	for _, s := range senders {
		s.enqueue(sd, m.cfg.QuorumTimeout)
	}

	degraded := !sd.quorum.wait(m.cfg.QuorumTimeout)
	if degraded {
		m.logger.WarnContext(ctx, "quorum not reached, committed locally",
			slog.String("version", sd.Version.String()),
			slog.Int("quorum", quorum),
		)
	}

	done := make(chan applyOutcome, 1)
	m.seq.submit(&pendingDelta{sd: sd, isLeader: true, done: done})
	out := <-done
	if out.err != nil {
		return CommitResult{}, fmt.Errorf("%w: %v", models.ErrInternal, out.err)
	}
	if out.discarded {
		// версия была выпущена до смены лидера
		return CommitResult{}, fmt.Errorf("%w: leadership changed during commit", models.ErrTimeout)
	}

	return CommitResult{
		Version:      sd.Version,
		Degraded:     degraded,
		Compensation: out.compensation,
	}, nil
}

// Receive путь последователя: буферизует дельту и применяет все, что
// стало применимым по порядку версий.
func (m *Manager) Receive(ctx context.Context, v models.Version, delta *models.FileDelta) error {
	if err := m.Failed(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInternal, err)
	}
	if m.cluster.AmLeader() {
		return ErrNotFollower
	}

	sd := &SequencedDelta{Delta: delta, Version: v}
	m.seq.submit(&pendingDelta{sd: sd})

	if n := m.seq.Pending(); n > 0 {
		m.logger.DebugContext(ctx, "deltas waiting for predecessors",
			slog.Int("pending", n),
			slog.String("current", m.seq.Current().String()),
		)
	}
	return nil
}

// applyItem вызывается sequencer-ом для каждой применяемой дельты
func (m *Manager) applyItem(item *pendingDelta) (*models.FileDelta, error) {
	ctx := context.Background()
	comp, err := m.applier.ApplyDelta(ctx, item.sd.Delta, item.isLeader, item.sd.Payload)
	if err != nil {
		m.fail(fmt.Errorf("%w: apply %s: %v", ErrDiverged, item.sd.Version, err))
		return nil, err
	}
	if !item.isLeader {
		if comp != nil {
			err := fmt.Errorf("%w: follower produced a compensating delta at %s", ErrDiverged, item.sd.Version)
			m.fail(err)
			return nil, err
		}
		m.history.add(item.sd)
	}
	return comp, nil
}

// WaitFor блокирует, пока реплика не применит версию v (по счетчику),
// не дольше VersionWait. По истечении возвращает models.ErrTimeout.
func (m *Manager) WaitFor(ctx context.Context, v models.Version) error {
	timer := time.NewTimer(m.cfg.VersionWait)
	defer timer.Stop()

	for {
		current, changed := m.seq.watch()
		if current.Counter >= v.Counter {
			return nil
		}
		select {
		case <-changed:
		case <-timer.C:
			return fmt.Errorf("%w: version %s not reached (at %s)", models.ErrTimeout, v, current)
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", models.ErrTimeout, ctx.Err())
		}
	}
}

// Snapshot возвращает согласованную пару версия + записи
func (m *Manager) Snapshot() (models.Version, []models.FileRecord) {
	var (
		version models.Version
		records []models.FileRecord
	)
	m.seq.exclusive(func(current models.Version) {
		version = current
		records = m.applier.Snapshot()
	})
	return version, records
}

// InstallSnapshot заменяет состояние последователя снимком лидера
func (m *Manager) InstallSnapshot(v models.Version, records []models.FileRecord) error {
	if err := m.Failed(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInternal, err)
	}
	if m.cluster.AmLeader() {
		return ErrNotFollower
	}
	m.seq.install(v, func() {
		m.applier.Restore(records)
		m.history.rebase(v)
	})
	m.logger.Info("installed snapshot", slog.String("version", v.String()), slog.Int("records", len(records)))
	return nil
}

// OnLeaderChange реагирует на смену лидера
func (m *Manager) OnLeaderChange(leader election.Candidate, amLeader bool) {
	if amLeader {
		m.promote()
		return
	}
	m.demote(leader)
}

// OnNewCandidate запускает отправителя для нового последователя
func (m *Manager) OnNewCandidate(c election.Candidate) {
	if m.cluster.AmLeader() {
		m.syncSenders()
	}
}

// OnCandidateGone останавливает отправителя ушедшей реплики
func (m *Manager) OnCandidateGone(c election.Candidate) {
	m.senderMu.Lock()
	s, ok := m.senders[c.Handle]
	delete(m.senders, c.Handle)
	m.senderMu.Unlock()
	if ok {
		s.close()
	}
}

func (m *Manager) promote() {
	m.senderMu.Lock()
	wasLeading := m.leading
	m.leading = true
	m.senderMu.Unlock()

	if !wasLeading {
		if n := m.seq.dropPending(); n > 0 {
			m.logger.Warn("dropped deltas buffered from previous leader", slog.Int("count", n))
		}
		m.issueMu.Lock()
		m.issued = m.seq.Current()
		m.issueMu.Unlock()
		m.logger.Info("promoted to leader", slog.String("version", m.seq.Current().String()))
	}
	m.syncSenders()
}

func (m *Manager) demote(leader election.Candidate) {
	m.senderMu.Lock()
	wasLeading := m.leading
	m.leading = false
	m.senderMu.Unlock()

	if wasLeading {
		m.logger.Warn("lost leadership", slog.String("leader", leader.URL))
	}
	m.stopSenders()
}

// syncSenders приводит набор отправителей к текущему списку последователей
func (m *Manager) syncSenders() {
	followers := m.cluster.Followers()
	live := make(map[string]election.Candidate, len(followers))
	for _, f := range followers {
		live[f.Handle] = f
	}

	m.senderMu.Lock()
	var stale []*sender
	for handle, s := range m.senders {
		if _, ok := live[handle]; !ok {
			stale = append(stale, s)
			delete(m.senders, handle)
		}
	}
	if m.leading {
		for handle, f := range live {
			if _, ok := m.senders[handle]; ok {
				continue
			}
			s := newSender(m, f, m.dial(f))
			m.senders[handle] = s
			go s.run(m.ctx)
			m.logger.Info("started follower sender", slog.String("follower", handle), slog.String("url", f.URL))
		}
	}
	m.senderMu.Unlock()

	for _, s := range stale {
		s.close()
	}
}

func (m *Manager) stopSenders() {
	m.senderMu.Lock()
	senders := m.senders
	m.senders = make(map[string]*sender)
	m.senderMu.Unlock()

	for _, s := range senders {
		s.close()
	}
}

func (m *Manager) activeSenders() []*sender {
	m.senderMu.Lock()
	defer m.senderMu.Unlock()
	out := make([]*sender, 0, len(m.senders))
	for _, s := range m.senders {
		out = append(out, s)
	}
	return out
}
