package blob

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketObjects = []byte("objects")

// Bolt хранит объекты в одном bucket bbolt, ключ - fileId
type Bolt struct {
	db *bbolt.DB
}

// NewBolt открывает или создает файл базы bbolt
func NewBolt(ctx context.Context, dbPath string) (*Bolt, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketObjects)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create objects bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Put сохраняет или перезаписывает объект
func (s *Bolt) Put(ctx context.Context, fileID string, data []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketObjects).Put([]byte(fileID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save object: %w", err)
	}
	return nil
}

// Get возвращает копию объекта
func (s *Bolt) Get(ctx context.Context, fileID string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		// пустой объект хранится как пустое значение, поэтому наличие
		// ключа проверяется курсором, а не по nil
		k, v := tx.Bucket(bucketObjects).Cursor().Seek([]byte(fileID))
		if !bytes.Equal(k, []byte(fileID)) {
			return ErrObjectNotFound
		}
		// значение действительно только внутри транзакции
		data = bytes.Clone(v)
		if data == nil {
			data = []byte{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Delete удаляет объект
func (s *Bolt) Delete(ctx context.Context, fileID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketObjects)
		if k, _ := b.Cursor().Seek([]byte(fileID)); !bytes.Equal(k, []byte(fileID)) {
			return ErrObjectNotFound
		}
		return b.Delete([]byte(fileID))
	})
}

// DeleteOwner удаляет объекты с префиксом owner/
func (s *Bolt) DeleteOwner(ctx context.Context, owner string) (int, error) {
	prefix := []byte(ownerPrefix(owner))
	deleted := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketObjects)
		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			keys = append(keys, bytes.Clone(k))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		deleted = len(keys)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete objects of %s: %w", owner, err)
	}
	return deleted, nil
}

// Close закрывает базу
func (s *Bolt) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
