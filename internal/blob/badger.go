package blob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger"
)

const deleteChunk = 1000

// Badger хранит объекты в LSM-базе badger
type Badger struct {
	db *badger.DB
}

// NewBadger открывает каталог базы badger
func NewBadger(dir string, logger *slog.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{logger: logger.With(slog.String("component", "badger"))})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

// Put сохраняет или перезаписывает объект
func (s *Badger) Put(ctx context.Context, fileID string, data []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(fileID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save object: %w", err)
	}
	return nil
}

// Get возвращает объект
func (s *Badger) Get(ctx context.Context, fileID string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(fileID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrObjectNotFound
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// Delete удаляет объект
func (s *Badger) Delete(ctx context.Context, fileID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(fileID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrObjectNotFound
			}
			return err
		}
		return txn.Delete([]byte(fileID))
	})
}

// DeleteOwner удаляет объекты с префиксом owner/
func (s *Badger) DeleteOwner(ctx context.Context, owner string) (int, error) {
	prefix := []byte(ownerPrefix(owner))

	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list objects of %s: %w", owner, err)
	}

	// размер одной транзакции badger ограничен, удаляем частями
	for chunk := range slices.Chunk(keys, deleteChunk) {
		err := s.db.Update(func(txn *badger.Txn) error {
			for _, k := range chunk {
				if err := txn.Delete(k); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("failed to delete objects of %s: %w", owner, err)
		}
	}
	return len(keys), nil
}

// Close закрывает базу
func (s *Badger) Close() error {
	return s.db.Close()
}

// badgerLogger направляет журнал badger в slog
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
