package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/iudanet/gophdir/internal/models"
)

// FS хранит каждый объект отдельным файлом root/owner/filename
type FS struct {
	root string
}

// NewFS создает корневой каталог хранилища
func NewFS(root string) (*FS, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &FS{root: root}, nil
}

func (s *FS) path(fileID string) (string, error) {
	owner, filename, ok := models.SplitFileID(fileID)
	if !ok || !filepath.IsLocal(owner) || !filepath.IsLocal(filename) {
		return "", fmt.Errorf("%w: invalid object id %q", models.ErrBadRequest, fileID)
	}
	return filepath.Join(s.root, owner, filename), nil
}

// Put атомарно записывает объект через временный файл
func (s *FS) Put(ctx context.Context, fileID string, data []byte) error {
	path, err := s.path(fileID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create owner dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save object: %w", err)
	}
	return nil
}

// Get читает объект
func (s *FS) Get(ctx context.Context, fileID string) ([]byte, error) {
	path, err := s.path(fileID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

// Delete удаляет объект
func (s *FS) Delete(ctx context.Context, fileID string) error {
	path, err := s.path(fileID)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrObjectNotFound
	}
	return err
}

// DeleteOwner удаляет каталог владельца
func (s *FS) DeleteOwner(ctx context.Context, owner string) (int, error) {
	if !filepath.IsLocal(owner) {
		return 0, fmt.Errorf("%w: invalid owner %q", models.ErrBadRequest, owner)
	}
	dir := filepath.Join(s.root, owner)

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to list objects of %s: %w", owner, err)
	}

	count := 0
	for _, e := range entries {
		if e.Type().IsRegular() && e.Name()[0] != '.' {
			count++
		}
	}
	if err := os.RemoveAll(dir); err != nil {
		return 0, fmt.Errorf("failed to delete objects of %s: %w", owner, err)
	}
	return count, nil
}

// Close ничего не освобождает
func (s *FS) Close() error {
	return nil
}
