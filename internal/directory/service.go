package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/iudanet/gophdir/internal/election"
	"github.com/iudanet/gophdir/internal/models"
	"github.com/iudanet/gophdir/internal/replication"
	"github.com/iudanet/gophdir/internal/token"
)

// Replicator фиксирует дельты и сообщает версию реплики
type Replicator interface {
	Commit(ctx context.Context, delta *models.FileDelta, payload []byte) (replication.CommitResult, error)
	CurrentVersion() models.Version
	WaitFor(ctx context.Context, v models.Version) error
}

// Leadership текущая роль реплики
type Leadership interface {
	AmLeader() bool
	Leader() (election.Candidate, bool)
}

// Result итог изменяющей операции
type Result struct {
	Record   *models.FileRecord // nil после удаления
	Version  models.Version
	Degraded bool
}

// Service связывает конечный автомат каталога с репликацией.
// Изменяющие операции выполняет только лидер; на последователе они
// возвращают *models.RedirectError с адресом лидера.
type Service struct {
	state   *State
	repl    Replicator
	cluster Leadership
	tokens  *token.Issuer
	locks   *keyedMutex
	logger  *slog.Logger
}

// NewService создает сервис каталога
func NewService(state *State, repl Replicator, cluster Leadership, tokens *token.Issuer, logger *slog.Logger) *Service {
	return &Service{
		state:   state,
		repl:    repl,
		cluster: cluster,
		tokens:  tokens,
		locks:   newKeyedMutex(),
		logger:  logger.With(slog.String("component", "directory_service")),
	}
}

// State возвращает конечный автомат каталога
func (s *Service) State() *State {
	return s.state
}

// CurrentVersion последняя примененная версия реплики
func (s *Service) CurrentVersion() models.Version {
	return s.repl.CurrentVersion()
}

// Write записывает файл: выбирает узлы, реплицирует дельту и передает
// байты на узлы. Узлы, не принявшие байты, откатываются компенсирующей
// дельтой, а их место занимают следующие кандидаты, пока файл не получит
// нужное число реплик или кандидаты не закончатся.
func (s *Service) Write(ctx context.Context, filename, userID, password string, payload []byte) (Result, error) {
	if err := s.requireLeader(); err != nil {
		return Result{}, err
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	delta, err := s.state.Write(ctx, filename, userID, password)
	if err != nil {
		return Result{}, err
	}
	if payload == nil {
		payload = []byte{}
	}
	fileID := delta.FileID()

	var (
		res      Result
		rejected []string
	)
	if delta.IsEmpty() {
		res.Version = s.repl.CurrentVersion()
	} else {
		res, rejected, err = s.commitTracked(ctx, delta, payload)
		if err != nil {
			return Result{}, err
		}
	}

	// узлы, оставшиеся от прежней версии файла, тоже получают новые байты
	if comp := s.state.Refresh(ctx, fileID, payload, delta.AddedLocations); comp != nil {
		fixed, err := s.commit(ctx, comp, nil)
		if err != nil {
			return Result{}, err
		}
		rejected = append(rejected, comp.RemovedLocations...)
		res.merge(fixed)
	}

	// каждый шаг либо добавляет узел, либо пополняет rejected
	for {
		fill := s.state.Backfill(userID, filename, rejected)
		if fill == nil {
			break
		}
		s.logger.InfoContext(ctx, "placing file on replacement nodes",
			slog.String("file_id", fileID),
			slog.Any("nodes", fill.AddedLocations),
		)
		added, failed, err := s.commitTracked(ctx, fill, payload)
		if err != nil {
			return Result{}, err
		}
		rejected = append(rejected, failed...)
		res.merge(added)
	}

	res.Record = s.state.Lookup(fileID)
	if res.Record == nil {
		return res, fmt.Errorf("%w: no storage node accepted %s", models.ErrBadRequest, fileID)
	}
	return res, nil
}

// Delete удаляет файл
func (s *Service) Delete(ctx context.Context, filename, userID, password string) (Result, error) {
	if err := s.requireLeader(); err != nil {
		return Result{}, err
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	delta, err := s.state.Delete(ctx, filename, userID, password)
	if err != nil {
		return Result{}, err
	}
	return s.commit(ctx, delta, nil)
}

// Share открывает файл пользователю targetUserID
func (s *Service) Share(ctx context.Context, filename, userID, targetUserID, password string) (Result, error) {
	return s.changeShare(ctx, userID, func() (*models.FileDelta, error) {
		return s.state.Share(ctx, filename, userID, targetUserID, password)
	})
}

// Unshare закрывает доступ пользователю targetUserID
func (s *Service) Unshare(ctx context.Context, filename, userID, targetUserID, password string) (Result, error) {
	return s.changeShare(ctx, userID, func() (*models.FileDelta, error) {
		return s.state.Unshare(ctx, filename, userID, targetUserID, password)
	})
}

func (s *Service) changeShare(ctx context.Context, userID string, compute func() (*models.FileDelta, error)) (Result, error) {
	if err := s.requireLeader(); err != nil {
		return Result{}, err
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	delta, err := compute()
	if err != nil {
		return Result{}, err
	}
	if delta.IsEmpty() {
		return Result{Record: s.state.Lookup(delta.FileID()), Version: s.repl.CurrentVersion()}, nil
	}
	res, err := s.commit(ctx, delta, nil)
	if err != nil {
		return Result{}, err
	}
	res.Record = s.state.Lookup(delta.FileID())
	return res, nil
}

// AwaitVersion дожидается версии atLeast, прежде чем вычислять изменение.
// Последователь не ждет: изменение все равно уйдет лидеру.
func (s *Service) AwaitVersion(ctx context.Context, atLeast models.Version) error {
	if !s.cluster.AmLeader() {
		return nil
	}
	return s.repl.WaitFor(ctx, atLeast)
}

// Read дожидается версии atLeast, проверяет доступ и возвращает адрес
// байтов файла на лучшем достижимом узле с токеном чтения.
func (s *Service) Read(ctx context.Context, filename, ownerID, requesterID, password string, atLeast models.Version) (string, models.Version, error) {
	if err := s.repl.WaitFor(ctx, atLeast); err != nil {
		return "", models.Version{}, err
	}

	record, node, err := s.state.Read(ctx, filename, ownerID, requesterID, password)
	if err != nil {
		return "", models.Version{}, err
	}

	fileID := record.FileID()
	target := ObjectURL(node, fileID) + "?token=" + url.QueryEscape(s.tokens.Issue(fileID, token.ModeRead))
	return target, s.repl.CurrentVersion(), nil
}

// List возвращает файлы, доступные пользователю, после версии atLeast
func (s *Service) List(ctx context.Context, userID, password string, atLeast models.Version) ([]*models.FileRecord, models.Version, error) {
	if err := s.repl.WaitFor(ctx, atLeast); err != nil {
		return nil, models.Version{}, err
	}
	records, err := s.state.ListAccessible(ctx, userID, password)
	if err != nil {
		return nil, models.Version{}, err
	}
	return records, s.repl.CurrentVersion(), nil
}

// Purge удаляет файлы пользователя и отзывает выданный ему доступ.
// Повторный вызов ничего не делает.
func (s *Service) Purge(ctx context.Context, userID string) (Result, error) {
	if err := s.requireLeader(); err != nil {
		return Result{}, err
	}

	res := Result{Version: s.repl.CurrentVersion()}
	for _, delta := range s.state.Purge(userID) {
		committed, err := s.commitLocked(ctx, delta)
		if err != nil {
			return res, fmt.Errorf("purge %s: %w", userID, err)
		}
		res.Version = committed.Version
		res.Degraded = res.Degraded || committed.Degraded
	}
	s.state.ForgetUser(userID)

	s.logger.InfoContext(ctx, "purged user", slog.String("user_id", userID), slog.String("version", res.Version.String()))
	return res, nil
}

func (s *Service) commitLocked(ctx context.Context, delta *models.FileDelta) (Result, error) {
	unlock := s.locks.lock(delta.Owner)
	defer unlock()
	return s.commit(ctx, delta, nil)
}

// FileURL адрес байтов файла на текущем основном узле (без токена)
func (s *Service) FileURL(record *models.FileRecord) string {
	node, ok := s.state.Primary(record)
	if !ok {
		if len(record.Locations) == 0 {
			return ""
		}
		node = record.Locations[0]
	}
	return ObjectURL(node, record.FileID())
}

// ObjectURL адрес объекта fileID на storage-узле node
func ObjectURL(node, fileID string) string {
	owner, filename, _ := models.SplitFileID(fileID)
	return strings.TrimRight(node, "/") + "/files/" + url.PathEscape(owner) + "/" + url.PathEscape(filename)
}

// commit реплицирует дельту и доводит компенсирующие дельты до фиксации
func (s *Service) commit(ctx context.Context, delta *models.FileDelta, payload []byte) (Result, error) {
	res, _, err := s.commitTracked(ctx, delta, payload)
	return res, err
}

// commitTracked как commit, но дополнительно возвращает узлы, которые
// не приняли байты и были откачены
func (s *Service) commitTracked(ctx context.Context, delta *models.FileDelta, payload []byte) (Result, []string, error) {
	committed, err := s.repl.Commit(ctx, delta, payload)
	if err != nil {
		return Result{}, nil, s.commitError(err)
	}
	res := Result{Version: committed.Version, Degraded: committed.Degraded}

	var rejected []string
	comp := committed.Compensation
	for comp != nil && !comp.IsEmpty() {
		s.logger.WarnContext(ctx, "rolling back storage nodes that rejected the write",
			slog.String("file_id", comp.FileID()),
			slog.Any("nodes", comp.RemovedLocations),
		)
		rejected = append(rejected, comp.RemovedLocations...)
		committed, err = s.repl.Commit(ctx, comp, nil)
		if err != nil {
			return Result{}, rejected, s.commitError(err)
		}
		res.merge(Result{Version: committed.Version, Degraded: committed.Degraded})
		comp = committed.Compensation
	}
	return res, rejected, nil
}

// merge переносит версию и признак деградации более поздней фиксации
func (r *Result) merge(later Result) {
	r.Version = later.Version
	r.Degraded = r.Degraded || later.Degraded
}

func (s *Service) commitError(err error) error {
	if errors.Is(err, replication.ErrNotLeader) {
		if redirect := s.redirect(); redirect != nil {
			return redirect
		}
		return fmt.Errorf("%w: leader is not known yet", models.ErrTimeout)
	}
	return err
}

func (s *Service) requireLeader() error {
	if s.cluster.AmLeader() {
		return nil
	}
	if redirect := s.redirect(); redirect != nil {
		return redirect
	}
	return fmt.Errorf("%w: leader is not known yet", models.ErrTimeout)
}

func (s *Service) redirect() *models.RedirectError {
	leader, ok := s.cluster.Leader()
	if !ok || leader.URL == "" {
		return nil
	}
	return &models.RedirectError{Location: leader.URL}
}
