// Package directory реализует конечный автомат каталога файлов.
//
// Состояние меняется только через ApplyDelta. Клиентские операции
// (Write, Delete, Share, Unshare) ничего не меняют: они вычисляют дельту,
// которую затем реплицирует и применяет Service.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/iudanet/gophdir/internal/models"
	"github.com/iudanet/gophdir/internal/validation"
)

// ErrInvalidDelta дельта нарушает инварианты конечного автомата
var ErrInvalidDelta = errors.New("invalid delta")

// blobRemoveTimeout ограничивает фоновое удаление байтов на узлах
const blobRemoveTimeout = 10 * time.Second

// NodeSet сообщает текущий набор достижимых storage-узлов
type NodeSet interface {
	Reachable() []string
}

// UserDirectory проверяет учетные записи пользователей
//
//go:generate moq -out users_mock.go . UserDirectory
type UserDirectory interface {
	// Authenticate возвращает models.ErrNotFound, если пользователя нет,
	// и models.ErrForbidden при неверном пароле.
	Authenticate(ctx context.Context, userID, password string) error
	// Exists сообщает, существует ли учетная запись.
	Exists(ctx context.Context, userID string) (bool, error)
}

// BlobPusher передает байты файлов на storage-узлы.
// Используется только лидером.
//
//go:generate moq -out blobs_mock.go . BlobPusher
type BlobPusher interface {
	Push(ctx context.Context, node, fileID string, payload []byte) error
	Remove(ctx context.Context, node, fileID string) error
}

// Options параметры размещения
type Options struct {
	Candidates int // K слотов orderCandidateNodes
	Replicas   int // число различных узлов на файл
}

// State конечный автомат каталога
type State struct {
	nodes  NodeSet
	users  UserDirectory
	blobs  BlobPusher
	logger *slog.Logger

	files map[string]*fileEntry
	mu    sync.RWMutex

	index *indexes
	load  loadCounters

	candidates int
	replicas   int
}

// fileEntry изменяемое представление записи; живет только внутри State
type fileEntry struct {
	shared    map[string]struct{}
	owner     string
	filename  string
	locations []string
}

func (e *fileEntry) snapshot() *models.FileRecord {
	return &models.FileRecord{
		Owner:      e.owner,
		Filename:   e.filename,
		Locations:  slices.Clone(e.locations),
		SharedWith: slices.Sorted(maps.Keys(e.shared)),
	}
}

// NewState создает пустой каталог
func NewState(nodes NodeSet, users UserDirectory, blobs BlobPusher, opts Options, logger *slog.Logger) *State {
	if opts.Candidates <= 0 {
		opts.Candidates = DefaultCandidates
	}
	if opts.Replicas <= 0 {
		opts.Replicas = DefaultReplicas
	}
	if opts.Replicas > opts.Candidates {
		opts.Replicas = opts.Candidates
	}
	return &State{
		nodes:      nodes,
		users:      users,
		blobs:      blobs,
		logger:     logger.With(slog.String("component", "directory")),
		files:      make(map[string]*fileEntry),
		index:      newIndexes(),
		candidates: opts.Candidates,
		replicas:   opts.Replicas,
	}
}

// Lookup возвращает копию записи или nil
func (s *State) Lookup(fileID string) *models.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.files[fileID]; ok {
		return e.snapshot()
	}
	return nil
}

// Load возвращает счетчик файлов на узле
func (s *State) Load(node string) int64 {
	return s.load.get(node)
}

// OrderCandidateNodes возвращает ровно K узлов для записи файла record
// (record может быть nil). Без достижимых узлов возвращает nil.
func (s *State) OrderCandidateNodes(record *models.FileRecord) []string {
	return orderCandidates(record, s.nodes.Reachable(), s.load.get, s.candidates)
}

// Write вычисляет дельту записи файла: разницу между выбранными и текущими узлами.
// Пустая дельта означает, что набор узлов не изменился.
func (s *State) Write(ctx context.Context, filename, userID, password string) (*models.FileDelta, error) {
	if err := validateFile(userID, filename); err != nil {
		return nil, err
	}
	if err := s.authenticate(ctx, userID, password); err != nil {
		return nil, err
	}

	fileID := models.FileID(userID, filename)
	record := s.Lookup(fileID)

	ordered := s.OrderCandidateNodes(record)
	if len(ordered) == 0 {
		return nil, fmt.Errorf("%w: no storage node is reachable", models.ErrBadRequest)
	}
	target := firstDistinct(ordered, s.replicas)

	delta := &models.FileDelta{Owner: userID, Filename: filename}
	var current []string
	if record != nil {
		current = record.Locations
	}
	for _, n := range target {
		if !slices.Contains(current, n) {
			delta.AddedLocations = append(delta.AddedLocations, n)
		}
	}
	for _, n := range current {
		if !slices.Contains(target, n) {
			delta.RemovedLocations = append(delta.RemovedLocations, n)
		}
	}

	return delta, nil
}

// Backfill вычисляет дельту, добирающую узлы файла до числа реплик:
// следующие по порядку кандидаты, которых нет среди текущих узлов и в
// exclude (узлы, уже отказавшиеся принять байты). nil, если файл уже
// размещен полностью или подходящих кандидатов не осталось.
func (s *State) Backfill(owner, filename string, exclude []string) *models.FileDelta {
	record := s.Lookup(models.FileID(owner, filename))
	var current []string
	if record != nil {
		current = record.Locations
	}
	missing := s.replicas - len(current)
	if missing <= 0 {
		return nil
	}

	delta := &models.FileDelta{Owner: owner, Filename: filename}
	for _, n := range s.OrderCandidateNodes(record) {
		if len(delta.AddedLocations) == missing {
			break
		}
		if slices.Contains(current, n) || slices.Contains(exclude, n) || slices.Contains(delta.AddedLocations, n) {
			continue
		}
		delta.AddedLocations = append(delta.AddedLocations, n)
	}
	if len(delta.AddedLocations) == 0 {
		return nil
	}
	return delta
}

// Delete вычисляет дельту удаления файла
func (s *State) Delete(ctx context.Context, filename, userID, password string) (*models.FileDelta, error) {
	if err := validateFile(userID, filename); err != nil {
		return nil, err
	}
	if err := s.authenticate(ctx, userID, password); err != nil {
		return nil, err
	}

	fileID := models.FileID(userID, filename)
	if s.Lookup(fileID) == nil {
		return nil, fmt.Errorf("%w: file %s", models.ErrNotFound, fileID)
	}

	return &models.FileDelta{Owner: userID, Filename: filename, Removed: true}, nil
}

// Share вычисляет дельту, открывающую файл пользователю targetUserID.
// Повторный share успешен и возвращает пустую дельту.
func (s *State) Share(ctx context.Context, filename, userID, targetUserID, password string) (*models.FileDelta, error) {
	record, err := s.checkShare(ctx, filename, userID, targetUserID, password)
	if err != nil {
		return nil, err
	}

	delta := &models.FileDelta{Owner: userID, Filename: filename}
	if !slices.Contains(record.SharedWith, targetUserID) {
		delta.AddedShares = []string{targetUserID}
	}
	return delta, nil
}

// Unshare вычисляет дельту, закрывающую доступ пользователю targetUserID
func (s *State) Unshare(ctx context.Context, filename, userID, targetUserID, password string) (*models.FileDelta, error) {
	record, err := s.checkShare(ctx, filename, userID, targetUserID, password)
	if err != nil {
		return nil, err
	}

	delta := &models.FileDelta{Owner: userID, Filename: filename}
	if slices.Contains(record.SharedWith, targetUserID) {
		delta.RemovedShares = []string{targetUserID}
	}
	return delta, nil
}

func (s *State) checkShare(ctx context.Context, filename, userID, targetUserID, password string) (*models.FileRecord, error) {
	if err := validateFile(userID, filename); err != nil {
		return nil, err
	}
	if err := validation.ValidateUserID(targetUserID); err != nil {
		return nil, err
	}
	if err := s.authenticate(ctx, userID, password); err != nil {
		return nil, err
	}

	exists, err := s.users.Exists(ctx, targetUserID)
	if err != nil {
		return nil, usersError(err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, targetUserID)
	}

	fileID := models.FileID(userID, filename)
	record := s.Lookup(fileID)
	if record == nil {
		return nil, fmt.Errorf("%w: file %s", models.ErrNotFound, fileID)
	}
	return record, nil
}

// Read проверяет доступ requesterID и возвращает запись и лучший
// достижимый узел с ее байтами. Основной узел вычисляется при каждом
// чтении как первый достижимый из упорядоченных locations.
func (s *State) Read(ctx context.Context, filename, userID, requesterID, password string) (*models.FileRecord, string, error) {
	if err := validateFile(userID, filename); err != nil {
		return nil, "", err
	}
	if err := validation.ValidateUserID(requesterID); err != nil {
		return nil, "", err
	}
	if err := s.authenticate(ctx, requesterID, password); err != nil {
		return nil, "", err
	}

	fileID := models.FileID(userID, filename)
	record := s.Lookup(fileID)
	if record == nil {
		return nil, "", fmt.Errorf("%w: file %s", models.ErrNotFound, fileID)
	}
	if !record.HasAccess(requesterID) {
		return nil, "", fmt.Errorf("%w: %s has no access to %s", models.ErrForbidden, requesterID, fileID)
	}

	node, ok := primary(record.Locations, s.nodes.Reachable())
	if !ok {
		return nil, "", fmt.Errorf("%w: no replica of %s is reachable", models.ErrTimeout, fileID)
	}
	return record, node, nil
}

// ListAccessible возвращает собственные и открытые пользователю файлы
func (s *State) ListAccessible(ctx context.Context, userID, password string) ([]*models.FileRecord, error) {
	if err := validation.ValidateUserID(userID); err != nil {
		return nil, err
	}
	if err := s.authenticate(ctx, userID, password); err != nil {
		return nil, err
	}

	owned, shared := s.index.files(userID)

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.FileRecord, 0, len(owned)+len(shared))
	for _, ids := range [][]string{owned, shared} {
		for _, id := range ids {
			if e, ok := s.files[id]; ok {
				out = append(out, e.snapshot())
			}
		}
	}
	return out, nil
}

// Purge вычисляет дельты, удаляющие все следы пользователя:
// удаление его файлов и отзыв доступа к чужим.
func (s *State) Purge(userID string) []*models.FileDelta {
	owned, shared := s.index.files(userID)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.FileDelta
	for _, id := range owned {
		if e, ok := s.files[id]; ok {
			out = append(out, &models.FileDelta{Owner: e.owner, Filename: e.filename, Removed: true})
		}
	}
	for _, id := range shared {
		if e, ok := s.files[id]; ok {
			out = append(out, &models.FileDelta{Owner: e.owner, Filename: e.filename, RemovedShares: []string{userID}})
		}
	}
	return out
}

// ApplyDelta единственная точка изменения состояния. Идемпотентна по
// принадлежности множествам. При isLeader передает payload на новые узлы
// и возвращает компенсирующую дельту с узлами, которые запись не приняли.
func (s *State) ApplyDelta(ctx context.Context, delta *models.FileDelta, isLeader bool, payload []byte) (*models.FileDelta, error) {
	if err := delta.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDelta, err)
	}
	fileID := delta.FileID()

	if delta.Removed {
		removed := s.erase(fileID)
		if isLeader {
			s.discardBlobs(fileID, removed)
		}
		return nil, nil
	}

	s.mu.Lock()
	e, exists := s.files[fileID]
	if !exists {
		if len(delta.AddedLocations) == 0 {
			s.mu.Unlock()
			return nil, nil
		}
		e = &fileEntry{
			owner:    delta.Owner,
			filename: delta.Filename,
			shared:   make(map[string]struct{}),
		}
		s.files[fileID] = e
		s.index.addOwned(e.owner, fileID)
	}

	var added, dropped []string
	for _, n := range delta.AddedLocations {
		if !slices.Contains(e.locations, n) {
			e.locations = append(e.locations, n)
			added = append(added, n)
		}
	}
	for _, n := range delta.RemovedLocations {
		if i := slices.Index(e.locations, n); i >= 0 {
			e.locations = slices.Delete(e.locations, i, i+1)
			dropped = append(dropped, n)
		}
	}
	for _, u := range delta.AddedShares {
		if _, ok := e.shared[u]; !ok {
			e.shared[u] = struct{}{}
			s.index.addShared(u, fileID)
		}
	}
	for _, u := range delta.RemovedShares {
		if _, ok := e.shared[u]; ok {
			delete(e.shared, u)
			s.index.removeShared(u, fileID)
		}
	}
	if len(e.locations) == 0 {
		s.eraseLocked(fileID, e)
	}
	s.mu.Unlock()

	for _, n := range added {
		s.load.add(n, 1)
	}
	for _, n := range dropped {
		s.load.add(n, -1)
	}

	if !isLeader {
		return nil, nil
	}
	s.discardBlobs(fileID, dropped)
	if len(added) == 0 || payload == nil {
		return nil, nil
	}
	return s.push(ctx, delta.Owner, delta.Filename, added, payload), nil
}

// Refresh перезаписывает байты на текущих узлах файла, кроме skip
// (узлы, уже получившие байты при применении дельты). Возвращает
// компенсирующую дельту для отказавших узлов.
func (s *State) Refresh(ctx context.Context, fileID string, payload []byte, skip []string) *models.FileDelta {
	record := s.Lookup(fileID)
	if record == nil {
		return nil
	}
	var nodes []string
	for _, n := range record.Locations {
		if !slices.Contains(skip, n) {
			nodes = append(nodes, n)
		}
	}
	if len(nodes) == 0 {
		return nil
	}
	return s.push(ctx, record.Owner, record.Filename, nodes, payload)
}

// Primary возвращает первый достижимый узел записи
func (s *State) Primary(record *models.FileRecord) (string, bool) {
	return primary(record.Locations, s.nodes.Reachable())
}

func (s *State) push(ctx context.Context, owner, filename string, nodes []string, payload []byte) *models.FileDelta {
	fileID := models.FileID(owner, filename)
	var failed []string
	for _, n := range nodes {
		if err := s.blobs.Push(ctx, n, fileID, payload); err != nil {
			s.logger.WarnContext(ctx, "storage node rejected file bytes",
				slog.String("node", n),
				slog.String("file_id", fileID),
				slog.Any("error", err),
			)
			failed = append(failed, n)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &models.FileDelta{Owner: owner, Filename: filename, RemovedLocations: failed}
}

// erase удаляет запись и возвращает ее бывшие узлы
func (s *State) erase(fileID string) []string {
	s.mu.Lock()
	e, ok := s.files[fileID]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	locations := slices.Clone(e.locations)
	s.eraseLocked(fileID, e)
	s.mu.Unlock()

	for _, n := range locations {
		s.load.add(n, -1)
	}
	return locations
}

// eraseLocked удаляет запись и чистит индексы. Счетчики нагрузки
// корректирует вызывающий. Вызывается под s.mu.
func (s *State) eraseLocked(fileID string, e *fileEntry) {
	delete(s.files, fileID)
	s.index.removeOwned(e.owner, fileID)
	for u := range e.shared {
		s.index.removeShared(u, fileID)
	}
}

// discardBlobs удаляет байты с узлов в фоне; ошибки только логируются
func (s *State) discardBlobs(fileID string, nodes []string) {
	for _, n := range nodes {
		go func(node string) {
			ctx, cancel := context.WithTimeout(context.Background(), blobRemoveTimeout)
			defer cancel()
			if err := s.blobs.Remove(ctx, node, fileID); err != nil {
				s.logger.Debug("failed to remove file bytes",
					slog.String("node", node),
					slog.String("file_id", fileID),
					slog.Any("error", err),
				)
			}
		}(n)
	}
}

// Snapshot возвращает все записи, отсортированные по fileId
func (s *State) Snapshot() []models.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.FileRecord, 0, len(s.files))
	for _, e := range s.files {
		out = append(out, *e.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileID() < out[j].FileID() })
	return out
}

// Restore заменяет состояние снимком, перестраивая индексы и счетчики
func (s *State) Restore(records []models.FileRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files = make(map[string]*fileEntry, len(records))
	s.index.reset()
	s.load.reset()

	for _, r := range records {
		if len(r.Locations) == 0 {
			continue
		}
		fileID := r.FileID()
		e := &fileEntry{
			owner:     r.Owner,
			filename:  r.Filename,
			locations: slices.Clone(r.Locations),
			shared:    make(map[string]struct{}, len(r.SharedWith)),
		}
		s.files[fileID] = e
		s.index.addOwned(r.Owner, fileID)
		for _, u := range r.SharedWith {
			e.shared[u] = struct{}{}
			s.index.addShared(u, fileID)
		}
		for _, n := range e.locations {
			s.load.add(n, 1)
		}
	}
}

// forgetter реализуется кэширующими UserDirectory
type forgetter interface {
	Forget(userID string)
}

// ForgetUser сбрасывает закэшированные сведения о пользователе
func (s *State) ForgetUser(userID string) {
	if f, ok := s.users.(forgetter); ok {
		f.Forget(userID)
	}
}

func (s *State) authenticate(ctx context.Context, userID, password string) error {
	if err := s.users.Authenticate(ctx, userID, password); err != nil {
		return usersError(err)
	}
	return nil
}

// usersError недоступность сервиса пользователей сообщается как BadRequest
func usersError(err error) error {
	if errors.Is(err, models.ErrTimeout) {
		return fmt.Errorf("%w: users service unavailable: %v", models.ErrBadRequest, err)
	}
	return err
}

func validateFile(userID, filename string) error {
	if err := validation.ValidateUserID(userID); err != nil {
		return err
	}
	return validation.ValidateFilename(filename)
}
